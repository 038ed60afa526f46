package export

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/testutil"
)

func TestEscapeTxt(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"plain", "plain"},
		{"<p>rich <b>text</b></p>", "rich text"},
		{"a&nbsp;b", "a b"},
		{"  spaced \n out  ", "spaced out"},
		{"<br/>", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, escapeTxt(tt.in), "escapeTxt(%q)", tt.in)
	}
}

func TestFormatXlsDate(t *testing.T) {
	ts := time.Date(2025, 3, 9, 14, 30, 0, 0, time.UTC)
	require.Equal(t, "09/03/2025 14:30", formatXlsDate(ts))
	require.Empty(t, formatXlsDate(time.Time{}))
}

func TestAuthorDocumentsXLS(t *testing.T) {
	docs := &testutil.DocumentRepo{}
	versions := &testutil.VersionRepo{}
	comments := &testutil.CommentRepo{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := NewService(docs, versions, comments, logger)

	docs.Create(context.Background(), &models.Document{
		ID: "doc-1", Author: "user-1", CurrentVersion: "v1", Published: true,
	})
	versions.Create(context.Background(), &models.Version{
		ID: "v1", Document: "doc-1", Version: 1,
		Content: models.Content{"title": "<b>Water</b> access"},
	})
	comments.Create(context.Background(), &models.Comment{
		ID: "c1", Document: "doc-1", User: "user-2",
		Field: models.FieldArticles, Content: "needs work",
	})
	comments.Create(context.Background(), &models.Comment{
		ID: "c2", Document: "doc-1", User: "user-3",
		Field: "fundation", Content: "agreed",
	})

	data, filename, err := svc.AuthorDocumentsXLS(context.Background(), "user-1")
	require.NoError(t, err)
	require.Contains(t, filename, ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3) // header plus one row per comment
	require.Equal(t, "Water access", rows[1][0])
	require.Equal(t, "needs work", rows[1][7])
	require.Equal(t, "agreed", rows[2][7])
}

func TestExportRequiresAuthor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := NewService(&testutil.DocumentRepo{}, &testutil.VersionRepo{}, &testutil.CommentRepo{}, logger)

	_, _, err := svc.AuthorDocumentsXLS(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
