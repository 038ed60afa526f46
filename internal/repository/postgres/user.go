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

// PostgresUserRepository implements the UserRepository interface.
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewUserRepository creates a new user repository.
func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const userColumns = "id, fullname, COALESCE(email, ''), COALESCE(avatar, ''), COALESCE(fields, '{}'), created_at, updated_at"

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Fullname, &u.Email, &u.Avatar, &u.Fields, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user row.
func (r *PostgresUserRepository) Create(ctx context.Context, u *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, fullname, email, avatar, fields, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)
	`, r.tables.Users)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, u.ID, u.Fullname, u.Email, u.Avatar, u.Fields, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("user %s: %w", u.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, userColumns, r.tables.Users)

	u, err := scanUser(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateFields replaces a user's profile payload.
func (r *PostgresUserRepository) UpdateFields(ctx context.Context, id string, fields models.Content) error {
	query := fmt.Sprintf(`UPDATE %s SET fields = $1, updated_at = NOW() WHERE id = $2`, r.tables.Users)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, fields, id)
	if err != nil {
		return fmt.Errorf("update user fields: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateAvatar replaces a user's avatar reference.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	query := fmt.Sprintf(`UPDATE %s SET avatar = NULLIF($1, ''), updated_at = NOW() WHERE id = $2`, r.tables.Users)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, avatar, id)
	if err != nil {
		return fmt.Errorf("update user avatar: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListWithTagsField returns every user whose profile carries a tag
// subscription list.
func (r *PostgresUserRepository) ListWithTagsField(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE fields ? 'tags'`, userColumns, r.tables.Users)

	return r.queryUsers(ctx, query)
}

// ListWithTag returns every user subscribed to tagID.
func (r *PostgresUserRepository) ListWithTag(ctx context.Context, tagID string) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE fields->'tags' ? $1`, userColumns, r.tables.Users)

	return r.queryUsers(ctx, query, tagID)
}

func (r *PostgresUserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
