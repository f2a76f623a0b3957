// Package access holds request authorizers.
// Routes declare a list of authorizers, the router runs them in order before the handler.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/models"
)

// Request is what authorizers decide on
type Request struct {
	User   *models.User // nil for anonymous request
	PostID uuid.UUID    // zero if route has no post
}

// Authorizer returns nil if the request is allowed
type Authorizer interface {
	Authorize(ctx context.Context, r Request) error
}

type AuthorizerFunc func(ctx context.Context, r Request) error

func (f AuthorizerFunc) Authorize(ctx context.Context, r Request) error {
	return f(ctx, r)
}

type OwnershipChecker interface {
	// If post not found must return apperrors.ErrPostNotFound
	IsOwner(ctx context.Context, postID uuid.UUID, userID uuid.UUID) (bool, error)
}

// Chain runs authorizers in order and stops on the first failure
type Chain []Authorizer

func (c Chain) Authorize(ctx context.Context, r Request) error {
	for _, a := range c {
		if err := a.Authorize(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// IsAuthenticated allows any request with resolved user
var IsAuthenticated Authorizer = AuthorizerFunc(func(_ context.Context, r Request) error {
	if r.User == nil {
		return apperrors.ErrNotAuthenticated
	}
	return nil
})

// OwnerOnly allows the request only if the user owns the post
func OwnerOnly(checker OwnershipChecker) Authorizer {
	return ownership{checker: checker, wantOwner: true}
}

// NotOwner allows the request only if the user doesn't own the post
func NotOwner(checker OwnershipChecker) Authorizer {
	return ownership{checker: checker, wantOwner: false}
}

type ownership struct {
	checker   OwnershipChecker
	wantOwner bool
}

func (o ownership) Authorize(ctx context.Context, r Request) error {
	if r.User == nil {
		return apperrors.ErrNotAuthenticated
	}

	isOwner, err := o.checker.IsOwner(ctx, r.PostID, r.User.ID)
	if err != nil {
		return err
	}
	if isOwner != o.wantOwner {
		return apperrors.ErrActionNotAllowed
	}

	return nil
}
