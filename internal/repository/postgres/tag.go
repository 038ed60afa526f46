package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
)

// PostgresTagRepository implements the TagRepository interface.
type PostgresTagRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewTagRepository creates a new tag repository.
func NewTagRepository(config *RepositoryConfig) repositories.TagRepository {
	return &PostgresTagRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a tag; the unique key index rejects duplicates.
func (r *PostgresTagRepository) Create(ctx context.Context, t *models.DocumentTag) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, name, key) VALUES ($1, $2, $3)`, r.tables.Tags)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, t.ID, t.Name, t.Key)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("tag %q: %w", t.Key, domain.ErrConflict)
		}
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// GetByID retrieves a tag.
func (r *PostgresTagRepository) GetByID(ctx context.Context, id string) (*models.DocumentTag, error) {
	query := fmt.Sprintf(`SELECT id, name, key FROM %s WHERE id = $1`, r.tables.Tags)

	var t models.DocumentTag
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Key)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &t, nil
}

// List returns all tags ordered by name.
func (r *PostgresTagRepository) List(ctx context.Context) ([]models.DocumentTag, error) {
	query := fmt.Sprintf(`SELECT id, name, key FROM %s ORDER BY name ASC`, r.tables.Tags)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.DocumentTag
	for rows.Next() {
		var t models.DocumentTag
		if err := rows.Scan(&t.ID, &t.Name, &t.Key); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// Delete removes a tag row.
func (r *PostgresTagRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Tags)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
