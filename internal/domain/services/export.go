package services

import "context"

// ExportService builds spreadsheet exports for document authors.
type ExportService interface {
	// AuthorDocumentsXLS renders every document of the author, one row per
	// document/comment pairing, and returns the workbook bytes plus a
	// suggested filename.
	AuthorDocumentsXLS(ctx context.Context, author string) ([]byte, string, error)
}
