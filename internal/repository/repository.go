package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/postboard/internal/models"
)

type CreateUserParams struct {
	FirstName string
	LastName  string
	BirthDate time.Time
}

// User repository interface
// Soft-deleted users are invisible for every read method
type UserRepo interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)

	// Lookup active user by the login of its credential
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByLogin(ctx context.Context, login string) (models.User, error)

	SearchUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error)

	// Set deleted_at for the user
	// If user not found or deleted already must return apperrors.ErrUserNotFound
	SoftDeleteUser(ctx context.Context, id uuid.UUID) error
}

// Credential repository interface
type CredentialRepo interface {
	// Create credential for the user
	// If login taken must return apperrors.ErrAlreadyRegistered
	CreateCredential(ctx context.Context, userID uuid.UUID, login string, passwordHash string) (models.Credential, error)

	// If credential not found must return apperrors.ErrUserNotFound
	GetByLogin(ctx context.Context, login string) (models.Credential, error)

	Exists(ctx context.Context, login string) (bool, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Create token in repository
	// Owner may have only one token: if it has one must return apperrors.ErrRefreshTokenExists
	Create(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return token by its key even it expired already
	// If the token not found must return apperrors.ErrRefreshTokenNotFound
	GetByKey(ctx context.Context, key string) (models.RefreshToken, error)

	// Delete token of the owner. Not existed token is not an error
	DeleteByOwner(ctx context.Context, owner uuid.UUID) error

	// Delete tokens that are not valid at the moment
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type CreatePostParams struct {
	Header string
	Body   string
	Owner  uuid.UUID
}

type UpdatePostParams struct {
	Header *string
	Body   *string
}

type ListPostsOpts struct {
	Limit  int
	Offset int
}

// Post repository interface
// Soft-deleted posts are invisible for every read method
type PostRepo interface {
	CreatePost(ctx context.Context, arg CreatePostParams) (models.Post, error)

	// If post not found must return apperrors.ErrPostNotFound
	GetPost(ctx context.Context, id uuid.UUID) (models.Post, error)

	ListPosts(ctx context.Context, opts ListPostsOpts) (models.Page[models.Post], error)

	// If post not found must return apperrors.ErrPostNotFound
	UpdatePost(ctx context.Context, id uuid.UUID, arg UpdatePostParams) (models.Post, error)

	// If post not found must return apperrors.ErrPostNotFound
	SoftDeletePost(ctx context.Context, id uuid.UUID) error

	// Check the user owns the post
	// If post not found must return apperrors.ErrPostNotFound
	IsOwner(ctx context.Context, postID uuid.UUID, userID uuid.UUID) (bool, error)

	// Likes are idempotent: like twice or dislike not liked post is not an error
	// If post not exists AddLike must return apperrors.ErrPostNotFound
	AddLike(ctx context.Context, postID uuid.UUID, userID uuid.UUID) error
	RemoveLike(ctx context.Context, postID uuid.UUID, userID uuid.UUID) error
}

type Storage interface {
	User() UserRepo
	Credential() CredentialRepo
	Refresh() RefreshTokenRepo
	Post() PostRepo

	// Run fn in transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
