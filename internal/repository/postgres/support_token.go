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

// PostgresSupportTokenRepository implements the SupportTokenRepository
// interface.
type PostgresSupportTokenRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewSupportTokenRepository creates a new support token repository.
func NewSupportTokenRepository(config *RepositoryConfig) repositories.SupportTokenRepository {
	return &PostgresSupportTokenRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const supportTokenColumns = "id, document, email, display_name, token, created_at"

func scanSupportToken(row pgx.Row) (*models.SupportToken, error) {
	var t models.SupportToken
	err := row.Scan(&t.ID, &t.Document, &t.Email, &t.DisplayName, &t.Token, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a token row.
func (r *PostgresSupportTokenRepository) Create(ctx context.Context, t *models.SupportToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document, email, display_name, token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.SupportTokens)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, t.ID, t.Document, t.Email, t.DisplayName, t.Token, t.CreatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("support token for %s: %w", t.Email, domain.ErrConflict)
		}
		return fmt.Errorf("create support token: %w", err)
	}
	return nil
}

// GetByEmail returns the token for an email.
func (r *PostgresSupportTokenRepository) GetByEmail(ctx context.Context, email string) (*models.SupportToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = $1`, supportTokenColumns, r.tables.SupportTokens)

	t, err := scanSupportToken(GetExecutor(ctx, r.pool).QueryRow(ctx, query, email))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("support token for %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get support token: %w", err)
	}
	return t, nil
}

// GetByToken returns the token matching the opaque secret.
func (r *PostgresSupportTokenRepository) GetByToken(ctx context.Context, token string) (*models.SupportToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE token = $1`, supportTokenColumns, r.tables.SupportTokens)

	t, err := scanSupportToken(GetExecutor(ctx, r.pool).QueryRow(ctx, query, token))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("support token: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get support token: %w", err)
	}
	return t, nil
}

// Delete removes a token row.
func (r *PostgresSupportTokenRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.SupportTokens)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete support token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("support token %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
