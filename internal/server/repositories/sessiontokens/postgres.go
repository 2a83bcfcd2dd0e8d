package sessiontokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) Upsert(ctx context.Context, token *models.SessionToken) error {
	query := `
		INSERT INTO session_tokens (user_id, purpose, token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, purpose)
		DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, token.UserID, string(token.Purpose), token.Token, token.ExpiresAt).
		Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, purpose models.TokenPurpose, value string) (*models.SessionToken, error) {
	query := `
		SELECT id, user_id, purpose, token, expires_at
		FROM session_tokens
		WHERE token = $1 AND purpose = $2
	`
	t := &models.SessionToken{}
	err := r.db.QueryRowContext(ctx, query, value, string(purpose)).
		Scan(&t.ID, &t.UserID, &t.Purpose, &t.Token, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if t.Expired(r.now()) {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE id = $1`, t.ID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return nil, common.ErrorNotFound
	}

	return t, nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string, purpose models.TokenPurpose) error {
	query := `
		DELETE FROM session_tokens
		WHERE user_id = $1 AND purpose = $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, string(purpose)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
