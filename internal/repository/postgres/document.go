package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new document row. The current version pointer is wired by
// the service inside the same transaction.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, author, custom_form, current_version, published, published_mail_sent, comments_count, revision, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
	`, r.tables.Documents)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		doc.ID,
		doc.Author,
		doc.CustomForm,
		doc.CurrentVersion,
		doc.Published,
		doc.PublishedMailSent,
		doc.CommentsCount,
		doc.Revision,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document together with its support list.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, author, custom_form, COALESCE(current_version, ''), published, published_mail_sent, comments_count, revision, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	exec := GetExecutor(ctx, r.pool)

	var doc models.Document
	err := exec.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Author,
		&doc.CustomForm,
		&doc.CurrentVersion,
		&doc.Published,
		&doc.PublishedMailSent,
		&doc.CommentsCount,
		&doc.Revision,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	supportsQuery := fmt.Sprintf(`
		SELECT COALESCE(user_id, ''), COALESCE(email, ''), COALESCE(display_name, ''), date
		FROM %s
		WHERE document = $1
		ORDER BY date ASC
	`, r.tables.Supports)

	rows, err := exec.Query(ctx, supportsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get document supports: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Support
		if err := rows.Scan(&s.UserID, &s.Email, &s.DisplayName, &s.Date); err != nil {
			return nil, fmt.Errorf("scan support: %w", err)
		}
		doc.Apoyos = append(doc.Apoyos, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supports: %w", err)
	}

	return &doc, nil
}

// List retrieves documents matching the filter, newest first, with the
// support list of each.
func (r *PostgresDocumentRepository) List(ctx context.Context, filter repositories.DocumentFilter) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, author, custom_form, COALESCE(current_version, ''), published, published_mail_sent, comments_count, revision, created_at, updated_at
		FROM %s
		WHERE ($1 = '' OR author = $1)
		  AND (NOT $2 OR published)
		ORDER BY created_at DESC
	`, r.tables.Documents)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, filter.Author, filter.PublishedOnly)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.Author,
			&doc.CustomForm,
			&doc.CurrentVersion,
			&doc.Published,
			&doc.PublishedMailSent,
			&doc.CommentsCount,
			&doc.Revision,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	if err := r.attachSupports(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *PostgresDocumentRepository) attachSupports(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	index := make(map[string]*models.Document, len(docs))
	ids := make([]string, len(docs))
	for i := range docs {
		index[docs[i].ID] = &docs[i]
		ids[i] = docs[i].ID
	}

	query := fmt.Sprintf(`
		SELECT document, COALESCE(user_id, ''), COALESCE(email, ''), COALESCE(display_name, ''), date
		FROM %s
		WHERE document = ANY($1)
		ORDER BY date ASC
	`, r.tables.Supports)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list supports: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docID string
		var s models.Support
		if err := rows.Scan(&docID, &s.UserID, &s.Email, &s.DisplayName, &s.Date); err != nil {
			return fmt.Errorf("scan support: %w", err)
		}
		if doc, ok := index[docID]; ok {
			doc.Apoyos = append(doc.Apoyos, s)
		}
	}
	return rows.Err()
}

// CountByAuthor counts documents owned by an author.
func (r *PostgresDocumentRepository) CountByAuthor(ctx context.Context, author string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE author = $1`, r.tables.Documents)

	var count int
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, author).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// UpdateEnvelope persists envelope fields guarded by the revision the caller
// read. A concurrent writer that bumped the revision first makes this call
// fail with ErrConflict.
func (r *PostgresDocumentRepository) UpdateEnvelope(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET published = $1, published_mail_sent = $2, current_version = NULLIF($3, ''), revision = revision + 1, updated_at = $4
		WHERE id = $5 AND revision = $6
	`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		doc.Published,
		doc.PublishedMailSent,
		doc.CurrentVersion,
		doc.UpdatedAt,
		doc.ID,
		doc.Revision,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, doc.ID); err != nil {
			return err
		}
		return fmt.Errorf("document %s revision %d: %w", doc.ID, doc.Revision, domain.ErrConflict)
	}

	doc.Revision++
	return nil
}

// SetCurrentVersion repoints the document at a version row.
func (r *PostgresDocumentRepository) SetCurrentVersion(ctx context.Context, docID, versionID string) error {
	query := fmt.Sprintf(`UPDATE %s SET current_version = $1, updated_at = NOW() WHERE id = $2`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, versionID, docID)
	if err != nil {
		return fmt.Errorf("set current version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	return nil
}

// AddCommentCount adjusts commentsCount by delta. The counter clamps at zero
// rather than going negative on out-of-order decrements.
func (r *PostgresDocumentRepository) AddCommentCount(ctx context.Context, docID string, delta int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET comments_count = GREATEST(comments_count + $1, 0), updated_at = NOW() WHERE id = $2
	`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, delta, docID)
	if err != nil {
		return fmt.Errorf("adjust comment count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	return nil
}

// AppendSupport appends one support entry.
func (r *PostgresDocumentRepository) AppendSupport(ctx context.Context, docID string, s models.Support) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document, user_id, email, display_name, date)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5)
	`, r.tables.Supports)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, docID, s.UserID, s.Email, s.DisplayName, s.Date)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("support on document %s: %w", docID, domain.ErrConflict)
		}
		return fmt.Errorf("append support: %w", err)
	}
	return nil
}

// Delete removes a document row.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
