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

// PostgresVersionRepository implements the VersionRepository interface.
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewVersionRepository creates a new version repository.
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create appends a new version row. The (document, version) unique index
// backs the gapless-sequence invariant against concurrent forks.
func (r *PostgresVersionRepository) Create(ctx context.Context, v *models.Version) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document, version, content, contributions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.Versions)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		v.ID,
		v.Document,
		v.Version,
		v.Content,
		v.Contributions,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("version %d of document %s: %w", v.Version, v.Document, domain.ErrConflict)
		}
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

const versionColumns = "id, document, version, content, COALESCE(contributions, '{}'), created_at, updated_at"

func scanVersion(row pgx.Row) (*models.Version, error) {
	var v models.Version
	err := row.Scan(
		&v.ID,
		&v.Document,
		&v.Version,
		&v.Content,
		&v.Contributions,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID retrieves a version by its row id.
func (r *PostgresVersionRepository) GetByID(ctx context.Context, id string) (*models.Version, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, versionColumns, r.tables.Versions)

	v, err := scanVersion(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// GetByNumber is a point lookup of (document, version number).
func (r *PostgresVersionRepository) GetByNumber(ctx context.Context, docID string, number int) (*models.Version, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE document = $1 AND version = $2`, versionColumns, r.tables.Versions)

	v, err := scanVersion(GetExecutor(ctx, r.pool).QueryRow(ctx, query, docID, number))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("version %d of document %s: %w", number, docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// ListByDocument returns every version of a document, oldest first.
func (r *PostgresVersionRepository) ListByDocument(ctx context.Context, docID string) ([]models.Version, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE document = $1 ORDER BY version ASC`, versionColumns, r.tables.Versions)

	return r.queryVersions(ctx, query, docID)
}

// UpdateContent overwrites the content of a version row in place.
func (r *PostgresVersionRepository) UpdateContent(ctx context.Context, id string, content models.Content) error {
	query := fmt.Sprintf(`UPDATE %s SET content = $1, updated_at = NOW() WHERE id = $2`, r.tables.Versions)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, content, id)
	if err != nil {
		return fmt.Errorf("update version content: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListWithTag returns every version whose content tag list references tagID.
func (r *PostgresVersionRepository) ListWithTag(ctx context.Context, tagID string) ([]models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE content->'tags' ? $1 ORDER BY document, version ASC
	`, versionColumns, r.tables.Versions)

	return r.queryVersions(ctx, query, tagID)
}

func (r *PostgresVersionRepository) queryVersions(ctx context.Context, query string, args ...interface{}) ([]models.Version, error) {
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}
