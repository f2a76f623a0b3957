package post

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
	"github.com/nkiryanov/postboard/internal/repository"
	"github.com/nkiryanov/postboard/internal/service/events"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Post service
// Ownership rules are checked by the caller (see access package), the service doesn't check them again
type PostService struct {
	storage repository.Storage
	events  events.Emitter
	logger  logger.Logger
}

func NewService(storage repository.Storage, emitter events.Emitter, l logger.Logger) *PostService {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &PostService{
		storage: storage,
		events:  emitter,
		logger:  l,
	}
}

func (s *PostService) Create(ctx context.Context, owner uuid.UUID, header string, body string) (models.Post, error) {
	post, err := s.storage.Post().CreatePost(ctx, repository.CreatePostParams{
		Header: header,
		Body:   body,
		Owner:  owner,
	})
	if err != nil {
		return post, fmt.Errorf("can't create post. Err: %w", err)
	}

	return post, nil
}

func (s *PostService) Get(ctx context.Context, id uuid.UUID) (models.Post, error) {
	post, err := s.storage.Post().GetPost(ctx, id)
	if err != nil {
		return post, fmt.Errorf("can't get post. Err: %w", err)
	}
	return post, nil
}

// List posts newest first
// Not positive limit replaced by default one, too big limit is capped
func (s *PostService) List(ctx context.Context, limit int, offset int) (models.Page[models.Post], error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	offset = max(offset, 0)

	page, err := s.storage.Post().ListPosts(ctx, repository.ListPostsOpts{Limit: limit, Offset: offset})
	if err != nil {
		return page, fmt.Errorf("can't list posts. Err: %w", err)
	}
	return page, nil
}

// Update changes only not nil fields
func (s *PostService) Update(ctx context.Context, id uuid.UUID, header *string, body *string) (models.Post, error) {
	post, err := s.storage.Post().UpdatePost(ctx, id, repository.UpdatePostParams{Header: header, Body: body})
	if err != nil {
		return post, fmt.Errorf("can't update post. Err: %w", err)
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	if err := s.storage.Post().SoftDeletePost(ctx, id); err != nil {
		return fmt.Errorf("can't delete post. Err: %w", err)
	}

	s.events.Emit(models.NewEvent(models.EventPostDeleted, actor, id))
	return nil
}

// Like the post and return it with fresh likes count
// Liking the same post twice keeps one like
func (s *PostService) Like(ctx context.Context, id uuid.UUID, actor uuid.UUID) (models.Post, error) {
	var post models.Post

	// Soft-deleted post still exists in the table, so check it before insert
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		if _, err := st.Post().GetPost(ctx, id); err != nil {
			return err
		}
		if err := st.Post().AddLike(ctx, id, actor); err != nil {
			return err
		}

		var err error
		post, err = st.Post().GetPost(ctx, id)
		return err
	})
	if err != nil {
		return post, fmt.Errorf("can't like post. Err: %w", err)
	}

	s.events.Emit(models.NewEvent(models.EventPostLiked, actor, id))
	return post, nil
}

func (s *PostService) Dislike(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		if _, err := st.Post().GetPost(ctx, id); err != nil {
			return err
		}
		return st.Post().RemoveLike(ctx, id, actor)
	})
	if err != nil {
		return fmt.Errorf("can't dislike post. Err: %w", err)
	}

	s.events.Emit(models.NewEvent(models.EventPostDisliked, actor, id))
	return nil
}

// IsOwner reports whether the user owns the post
// If post not found returns apperrors.ErrPostNotFound
func (s *PostService) IsOwner(ctx context.Context, postID uuid.UUID, userID uuid.UUID) (bool, error) {
	ok, err := s.storage.Post().IsOwner(ctx, postID, userID)
	if err != nil {
		return false, fmt.Errorf("can't check post owner. Err: %w", err)
	}
	return ok, nil
}
