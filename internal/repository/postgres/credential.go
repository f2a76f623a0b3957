package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/models"
)

type CredentialRepo struct {
	DB DBTX
}

const createCredential = `-- name: CreateCredential
INSERT INTO credentials (id, login, password_hash)
VALUES ($1, $2, $3)
RETURNING id, login, password_hash, created_at
`

func (r *CredentialRepo) CreateCredential(ctx context.Context, userID uuid.UUID, login string, passwordHash string) (models.Credential, error) {
	var cred models.Credential
	rows, err := r.DB.Query(ctx, createCredential, userID, login, passwordHash)
	if err == nil {
		cred, err = pgx.CollectOneRow(rows, rowToCredential)
	}

	switch {
	case err == nil:
		return cred, nil
	case IsUniqueViolation(err):
		return cred, apperrors.ErrAlreadyRegistered
	default:
		return cred, fmt.Errorf("db error: %w", err)
	}
}

const getCredentialByLogin = `-- name: GetCredentialByLogin
SELECT c.id, c.login, c.password_hash, c.created_at
FROM credentials c
JOIN users u ON u.id = c.id
WHERE c.login = $1 AND u.deleted_at IS NULL
`

func (r *CredentialRepo) GetByLogin(ctx context.Context, login string) (models.Credential, error) {
	rows, err := r.DB.Query(ctx, getCredentialByLogin, login)
	if err != nil {
		return models.Credential{}, fmt.Errorf("db error: %w", err)
	}
	cred, err := pgx.CollectOneRow(rows, rowToCredential)

	switch {
	case err == nil:
		return cred, nil
	case errors.Is(err, pgx.ErrNoRows):
		return cred, apperrors.ErrUserNotFound
	default:
		return cred, fmt.Errorf("db error: %w", err)
	}
}

// Deleted users keep their logins taken
const credentialExists = `-- name: CredentialExists
SELECT EXISTS (SELECT 1 FROM credentials WHERE login = $1)
`

func (r *CredentialRepo) Exists(ctx context.Context, login string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, credentialExists, login).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func rowToCredential(row pgx.CollectableRow) (models.Credential, error) {
	var c models.Credential
	err := row.Scan(&c.ID, &c.Login, &c.PasswordHash, &c.CreatedAt)
	return c, err
}
