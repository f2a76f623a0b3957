package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/models"
	"github.com/nkiryanov/postboard/internal/repository"
)

type PostRepo struct {
	DB DBTX
}

const postColumns = `p.id, p.created_at, p.updated_at, p.header, p.body, p.owner,
	(SELECT count(*) FROM post_likes l WHERE l.post_id = p.id) AS likes,
	p.deleted_at`

const createPost = `-- name: CreatePost
INSERT INTO posts AS p (id, header, body, owner)
VALUES ($1, $2, $3, $4)
RETURNING ` + postColumns

func (r *PostRepo) CreatePost(ctx context.Context, arg repository.CreatePostParams) (models.Post, error) {
	rows, err := r.DB.Query(ctx, createPost, uuid.New(), arg.Header, arg.Body, arg.Owner)
	if err != nil {
		return models.Post{}, fmt.Errorf("db error: %w", err)
	}

	post, err := pgx.CollectOneRow(rows, rowToPost)
	if err != nil {
		return post, fmt.Errorf("db error: %w", err)
	}
	return post, nil
}

const getPost = `-- name: GetPost
SELECT ` + postColumns + `
FROM posts p
WHERE p.id = $1 AND p.deleted_at IS NULL
`

func (r *PostRepo) GetPost(ctx context.Context, id uuid.UUID) (models.Post, error) {
	rows, err := r.DB.Query(ctx, getPost, id)
	if err != nil {
		return models.Post{}, fmt.Errorf("db error: %w", err)
	}
	return collectPost(rows)
}

const countPosts = `-- name: CountPosts
SELECT count(*) FROM posts WHERE deleted_at IS NULL
`

const listPosts = `-- name: ListPosts
SELECT ` + postColumns + `
FROM posts p
WHERE p.deleted_at IS NULL
ORDER BY p.created_at DESC, p.id
LIMIT $1 OFFSET $2
`

func (r *PostRepo) ListPosts(ctx context.Context, opts repository.ListPostsOpts) (models.Page[models.Post], error) {
	page := models.Page[models.Post]{Limit: opts.Limit, Offset: opts.Offset}

	err := r.DB.QueryRow(ctx, countPosts).Scan(&page.Count)
	if err != nil {
		return page, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.DB.Query(ctx, listPosts, opts.Limit, opts.Offset)
	if err != nil {
		return page, fmt.Errorf("db error: %w", err)
	}
	page.Items, err = pgx.CollectRows(rows, rowToPost)
	if err != nil {
		return page, fmt.Errorf("db error: %w", err)
	}

	return page, nil
}

const updatePost = `-- name: UpdatePost
UPDATE posts AS p
SET header = COALESCE($2, p.header),
    body = COALESCE($3, p.body),
    updated_at = now()
WHERE p.id = $1 AND p.deleted_at IS NULL
RETURNING ` + postColumns

func (r *PostRepo) UpdatePost(ctx context.Context, id uuid.UUID, arg repository.UpdatePostParams) (models.Post, error) {
	rows, err := r.DB.Query(ctx, updatePost, id, arg.Header, arg.Body)
	if err != nil {
		return models.Post{}, fmt.Errorf("db error: %w", err)
	}
	return collectPost(rows)
}

const softDeletePost = `-- name: SoftDeletePost
UPDATE posts
SET deleted_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

func (r *PostRepo) SoftDeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, softDeletePost, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}

const isOwner = `-- name: IsOwner
SELECT p.owner = $2
FROM posts p
WHERE p.id = $1 AND p.deleted_at IS NULL
`

func (r *PostRepo) IsOwner(ctx context.Context, postID uuid.UUID, userID uuid.UUID) (bool, error) {
	var owner bool
	err := r.DB.QueryRow(ctx, isOwner, postID, userID).Scan(&owner)

	switch {
	case err == nil:
		return owner, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, apperrors.ErrPostNotFound
	default:
		return false, fmt.Errorf("db error: %w", err)
	}
}

const addLike = `-- name: AddLike
INSERT INTO post_likes (post_id, user_id)
VALUES ($1, $2)
ON CONFLICT (post_id, user_id) DO NOTHING
`

func (r *PostRepo) AddLike(ctx context.Context, postID uuid.UUID, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, addLike, postID, userID)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return apperrors.ErrPostNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const removeLike = `-- name: RemoveLike
DELETE FROM post_likes
WHERE post_id = $1 AND user_id = $2
`

func (r *PostRepo) RemoveLike(ctx context.Context, postID uuid.UUID, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, removeLike, postID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func collectPost(rows pgx.Rows) (models.Post, error) {
	post, err := pgx.CollectOneRow(rows, rowToPost)

	switch {
	case err == nil:
		return post, nil
	case errors.Is(err, pgx.ErrNoRows):
		return post, apperrors.ErrPostNotFound
	default:
		return post, fmt.Errorf("db error: %w", err)
	}
}

func rowToPost(row pgx.CollectableRow) (models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Header, &p.Body, &p.Owner, &p.Likes, &p.DeletedAt)
	return p, err
}
