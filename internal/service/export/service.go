// Package export builds spreadsheet exports of an author's documents.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"participa/internal/domain"
	"participa/internal/domain/repositories"
	"participa/internal/domain/services"
)

const sheetName = "Documents"

var headers = []string{
	"Document", "Created", "Closing date", "Published", "Supports",
	"Comment author", "Comment field", "Comment", "Resolved", "Commented at",
}

type exportService struct {
	docs     repositories.DocumentRepository
	versions repositories.VersionRepository
	comments repositories.CommentRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the export service.
func NewService(
	docs repositories.DocumentRepository,
	versions repositories.VersionRepository,
	comments repositories.CommentRepository,
	logger *slog.Logger,
) services.ExportService {
	return &exportService{
		docs:     docs,
		versions: versions,
		comments: comments,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *exportService) AuthorDocumentsXLS(ctx context.Context, author string) ([]byte, string, error) {
	if author == "" {
		return nil, "", fmt.Errorf("%w: missing author", domain.ErrUnauthorized)
	}

	docs, err := s.docs.List(ctx, repositories.DocumentFilter{Author: author})
	if err != nil {
		return nil, "", fmt.Errorf("list documents of %s: %w", author, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, "", fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for i := range docs {
		doc := &docs[i]
		current, err := s.versions.GetByID(ctx, doc.CurrentVersion)
		if err != nil {
			return nil, "", fmt.Errorf("resolve current version of %s: %w", doc.ID, err)
		}

		base := []interface{}{
			escapeTxt(current.Content.Title()),
			formatXlsDate(doc.CreatedAt),
			closingDateCell(current.Content.ClosingDate()),
			doc.Published,
			len(doc.Apoyos),
		}

		comments, err := s.comments.ListByDocument(ctx, doc.ID, repositories.CommentFilter{})
		if err != nil {
			return nil, "", fmt.Errorf("list comments of %s: %w", doc.ID, err)
		}
		if len(comments) == 0 {
			if err := writeRow(f, row, base); err != nil {
				return nil, "", err
			}
			row++
			continue
		}
		// One row per comment, the document columns repeated.
		for j := range comments {
			c := &comments[j]
			cells := append(append([]interface{}{}, base...),
				c.User,
				c.Field,
				escapeTxt(c.Content),
				c.Resolved,
				formatXlsDate(c.CreatedAt),
			)
			if err := writeRow(f, row, cells); err != nil {
				return nil, "", err
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("export built", "author", author, "documents", len(docs), "rows", row-2)

	filename := fmt.Sprintf("documents-%s.xlsx", s.now().UTC().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func writeRow(f *excelize.File, row int, cells []interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// escapeTxt flattens rich-text content into plain cell text: markup is
// stripped and whitespace collapsed.
func escapeTxt(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.Join(strings.Fields(s), " ")
}

// formatXlsDate renders timestamps the way the spreadsheet consumers expect.
func formatXlsDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02/01/2006 15:04")
}

func closingDateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatXlsDate(*t)
}
