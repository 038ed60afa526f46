package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
)

// PostgresLikeRepository implements the LikeRepository interface. The
// (user_id, comment) unique index backs the one-like-per-pair invariant.
type PostgresLikeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewLikeRepository creates a new like repository.
func NewLikeRepository(config *RepositoryConfig) repositories.LikeRepository {
	return &PostgresLikeRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Get returns the like for (user, comment), or ErrNotFound.
func (r *PostgresLikeRepository) Get(ctx context.Context, userID, commentID string) (*models.Like, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, comment, created_at FROM %s WHERE user_id = $1 AND comment = $2
	`, r.tables.Likes)

	var l models.Like
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, userID, commentID).Scan(&l.ID, &l.User, &l.Comment, &l.CreatedAt)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("like by %s on %s: %w", userID, commentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get like: %w", err)
	}
	return &l, nil
}

// Create inserts a like row.
func (r *PostgresLikeRepository) Create(ctx context.Context, l *models.Like) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, comment, created_at) VALUES ($1, $2, $3, $4)
	`, r.tables.Likes)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, l.ID, l.User, l.Comment, l.CreatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("like by %s on %s: %w", l.User, l.Comment, domain.ErrConflict)
		}
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

// Delete removes a like row.
func (r *PostgresLikeRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Likes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("like %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CountByComment counts likes on a comment.
func (r *PostgresLikeRepository) CountByComment(ctx context.Context, commentID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE comment = $1`, r.tables.Likes)

	var count int
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, commentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}
