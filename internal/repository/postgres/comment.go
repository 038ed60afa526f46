package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
)

// PostgresCommentRepository implements the CommentRepository interface.
type PostgresCommentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(config *RepositoryConfig) repositories.CommentRepository {
	return &PostgresCommentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const commentColumns = "id, document, version, user_id, field, content, decoration, resolved, COALESCE(reply, ''), created_at, updated_at"

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	err := row.Scan(
		&c.ID,
		&c.Document,
		&c.Version,
		&c.User,
		&c.Field,
		&c.Content,
		&c.Decoration,
		&c.Resolved,
		&c.Reply,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a comment row.
func (r *PostgresCommentRepository) Create(ctx context.Context, c *models.Comment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document, version, user_id, field, content, decoration, resolved, reply, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
	`, r.tables.Comments)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		c.ID,
		c.Document,
		c.Version,
		c.User,
		c.Field,
		c.Content,
		c.Decoration,
		c.Resolved,
		c.Reply,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment.
func (r *PostgresCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, commentColumns, r.tables.Comments)

	c, err := scanComment(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// ListByDocument returns a document's comments matching the filter, oldest
// first.
func (r *PostgresCommentRepository) ListByDocument(ctx context.Context, docID string, filter repositories.CommentFilter) ([]models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE document = $1
		  AND (cardinality($2::text[]) = 0 OR id = ANY($2))
		  AND ($3 = '' OR field = $3)
		  AND (NOT $4 OR NOT resolved)
		  AND (NOT $5 OR decoration IS NOT NULL)
		ORDER BY created_at ASC
	`, commentColumns, r.tables.Comments)

	ids := filter.IDs
	if ids == nil {
		ids = []string{}
	}
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, docID, ids, filter.Field, filter.UnresolvedOnly, filter.DecoratedOnly)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return collectComments(rows)
}

// ListByIDs resolves a set of comment ids. Missing ids are skipped.
func (r *PostgresCommentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Comment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1) ORDER BY created_at ASC`, commentColumns, r.tables.Comments)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list comments by ids: %w", err)
	}
	return collectComments(rows)
}

// Count counts a document's comments matching the filter.
func (r *PostgresCommentRepository) Count(ctx context.Context, docID string, filter repositories.CommentFilter) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE document = $1
		  AND ($2 = '' OR field = $2)
		  AND (NOT $3 OR NOT resolved)
		  AND (NOT $4 OR decoration IS NOT NULL)
	`, r.tables.Comments)

	var count int
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, docID, filter.Field, filter.UnresolvedOnly, filter.DecoratedOnly).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// SetResolved marks a comment resolved.
func (r *PostgresCommentRepository) SetResolved(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET resolved = TRUE, updated_at = NOW() WHERE id = $1
		RETURNING %s
	`, r.tables.Comments, commentColumns)

	c, err := scanComment(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("resolve comment: %w", err)
	}
	return c, nil
}

// SetReply sets the document author's reply on a comment.
func (r *PostgresCommentRepository) SetReply(ctx context.Context, id, reply string) (*models.Comment, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET reply = $1, updated_at = NOW() WHERE id = $2
		RETURNING %s
	`, r.tables.Comments, commentColumns)

	c, err := scanComment(GetExecutor(ctx, r.pool).QueryRow(ctx, query, reply, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("reply comment: %w", err)
	}
	return c, nil
}

// Delete removes a comment row.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Comments)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func collectComments(rows pgx.Rows) ([]models.Comment, error) {
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
