package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const createToken = `-- name: CreateRefreshToken
INSERT INTO refresh_tokens (id, key, owner, valid_until)
VALUES ($1, $2, $3, $4)
RETURNING id, key, owner, created_at, valid_until
`

func (r *RefreshTokenRepo) Create(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	created := token
	rows, err := r.DB.Query(ctx, createToken, token.ID, token.Key, token.Owner, token.ValidUntil)
	if err == nil {
		created, err = pgx.CollectOneRow(rows, rowToRefreshToken)
	}

	switch {
	case err == nil:
		return created, nil
	case IsUniqueViolation(err):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenExists)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const getTokenByKey = `-- name: GetRefreshTokenByKey
SELECT id, key, owner, created_at, valid_until
FROM refresh_tokens
WHERE key = $1
`

// Get token
// It should return result even it expired already
func (r *RefreshTokenRepo) GetByKey(ctx context.Context, key string) (models.RefreshToken, error) {
	rows, err := r.DB.Query(ctx, getTokenByKey, key)
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("db error: %w", err)
	}
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteTokenByOwner = `-- name: DeleteRefreshTokenByOwner
DELETE FROM refresh_tokens
WHERE owner = $1
`

func (r *RefreshTokenRepo) DeleteByOwner(ctx context.Context, owner uuid.UUID) error {
	_, err := r.DB.Exec(ctx, deleteTokenByOwner, owner)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteExpiredTokens = `-- name: DeleteExpiredRefreshTokens
DELETE FROM refresh_tokens
WHERE valid_until <= $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredTokens, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.Key, &t.Owner, &t.CreatedAt, &t.ValidUntil)
	return t, err
}
