package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/models"
	"github.com/nkiryanov/postboard/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `u.id, u.created_at, u.first_name, u.last_name, u.birth_date, u.deleted_at`

const createUser = `-- name: CreateUser
INSERT INTO users AS u (id, first_name, last_name, birth_date)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, err := r.DB.Query(ctx, createUser, uuid.New(), arg.FirstName, arg.LastName, arg.BirthDate)
	if err != nil {
		return models.User{}, fmt.Errorf("db error: %w", err)
	}

	user, err := pgx.CollectOneRow(rows, rowToUser)
	if err != nil {
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + `
FROM users u
WHERE u.id = $1 AND u.deleted_at IS NULL
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return r.getOne(ctx, getUserByID, id)
}

const getUserByLogin = `-- name: GetUserByLogin
SELECT ` + userColumns + `
FROM users u
JOIN credentials c ON c.id = u.id
WHERE c.login = $1 AND u.deleted_at IS NULL
`

func (r *UserRepo) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	return r.getOne(ctx, getUserByLogin, login)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (models.User, error) {
	rows, err := r.DB.Query(ctx, query, arg)
	if err != nil {
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const searchUsers = `-- name: SearchUsers
SELECT ` + userColumns + `
FROM users u
WHERE u.deleted_at IS NULL
  AND ($1::text = '' OR u.first_name = $1)
  AND ($2::text = '' OR u.last_name = $2)
  AND ($3::text = '' OR u.first_name ILIKE '%' || $3 || '%' ESCAPE '\' OR u.last_name ILIKE '%' || $3 || '%' ESCAPE '\')
  AND ($4::date IS NULL OR u.birth_date = $4)
ORDER BY u.last_name, u.first_name, u.id
`

// Escapes ILIKE wildcards so substring is matched literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *UserRepo) SearchUsers(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	rows, err := r.DB.Query(ctx, searchUsers, f.FirstName, f.LastName, likeEscaper.Replace(f.Substr), f.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

const softDeleteUser = `-- name: SoftDeleteUser
UPDATE users
SET deleted_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

func (r *UserRepo) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, softDeleteUser, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.FirstName, &u.LastName, &u.BirthDate, &u.DeletedAt)
	return u, err
}
