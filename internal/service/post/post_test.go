package post

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/postboard/internal/access"
	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/models"
	"github.com/nkiryanov/postboard/internal/repository"
	"github.com/nkiryanov/postboard/internal/repository/postgres"
	"github.com/nkiryanov/postboard/internal/testutil"
)

type emitterFunc func(event models.Event) bool

func (f emitterFunc) Emit(event models.Event) bool { return f(event) }

func createUser(t *testing.T, storage repository.Storage) *models.User {
	t.Helper()

	user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
		FirstName: "fn",
		LastName:  "ln",
		BirthDate: time.Date(2000, 10, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return &user
}

func TestPost(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *PostService, storage repository.Storage, emitted *[]models.Event)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			var emitted []models.Event
			emitter := emitterFunc(func(event models.Event) bool {
				emitted = append(emitted, event)
				return true
			})

			storage := postgres.NewStorage(tx)
			fn(NewService(storage, emitter, nil), storage, &emitted)
		})
	}

	t.Run("create and get ok", func(t *testing.T) {
		inTx(t, func(s *PostService, storage repository.Storage, _ *[]models.Event) {
			owner := createUser(t, storage)

			created, err := s.Create(t.Context(), owner.ID, "header", "body")
			require.NoError(t, err)

			got, err := s.Get(t.Context(), created.ID)

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
			require.Equal(t, "header", got.Header)
			require.Equal(t, "body", got.Body)
			require.Equal(t, owner.ID, got.Owner)
			require.Zero(t, got.Likes)
		})
	})

	t.Run("get not existed fail", func(t *testing.T) {
		inTx(t, func(s *PostService, _ repository.Storage, _ *[]models.Event) {
			_, err := s.Get(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrPostNotFound)
		})
	})

	t.Run("list", func(t *testing.T) {
		inTx(t, func(s *PostService, storage repository.Storage, _ *[]models.Event) {
			owner := createUser(t, storage)
			for range 3 {
				_, err := s.Create(t.Context(), owner.ID, "header", "body")
				require.NoError(t, err)
			}

			t.Run("default limit", func(t *testing.T) {
				page, err := s.List(t.Context(), 0, -1)

				require.NoError(t, err)
				require.Equal(t, DefaultLimit, page.Limit)
				require.Equal(t, 0, page.Offset)
				require.Equal(t, 3, page.Count)
				require.Len(t, page.Items, 3)
			})

			t.Run("limit capped", func(t *testing.T) {
				page, err := s.List(t.Context(), 1000, 0)

				require.NoError(t, err)
				require.Equal(t, MaxLimit, page.Limit)
			})

			t.Run("offset", func(t *testing.T) {
				page, err := s.List(t.Context(), 2, 2)

				require.NoError(t, err)
				require.Equal(t, 3, page.Count, "count is total, not page size")
				require.Len(t, page.Items, 1)
			})
		})
	})

	t.Run("update only passed fields", func(t *testing.T) {
		inTx(t, func(s *PostService, storage repository.Storage, _ *[]models.Event) {
			owner := createUser(t, storage)
			created, err := s.Create(t.Context(), owner.ID, "header", "body")
			require.NoError(t, err)

			header := "new header"
			updated, err := s.Update(t.Context(), created.ID, &header, nil)

			require.NoError(t, err)
			require.Equal(t, "new header", updated.Header)
			require.Equal(t, "body", updated.Body)
		})
	})

	t.Run("delete", func(t *testing.T) {
		inTx(t, func(s *PostService, storage repository.Storage, emitted *[]models.Event) {
			owner := createUser(t, storage)
			created, err := s.Create(t.Context(), owner.ID, "header", "body")
			require.NoError(t, err)

			err = s.Delete(t.Context(), created.ID, owner.ID)
			require.NoError(t, err)

			_, err = s.Get(t.Context(), created.ID)
			require.ErrorIs(t, err, apperrors.ErrPostNotFound, "deleted post must be invisible")
			page, err := s.List(t.Context(), 0, 0)
			require.NoError(t, err)
			require.Zero(t, page.Count)

			require.Len(t, *emitted, 1)
			require.Equal(t, models.EventPostDeleted, (*emitted)[0].Type)
			require.Equal(t, created.ID, (*emitted)[0].PostID)

			err = s.Delete(t.Context(), created.ID, owner.ID)
			require.ErrorIs(t, err, apperrors.ErrPostNotFound, "delete twice fail")
		})
	})

	t.Run("like and dislike", func(t *testing.T) {
		inTx(t, func(s *PostService, storage repository.Storage, emitted *[]models.Event) {
			owner := createUser(t, storage)
			fan := createUser(t, storage)
			created, err := s.Create(t.Context(), owner.ID, "header", "body")
			require.NoError(t, err)

			liked, err := s.Like(t.Context(), created.ID, fan.ID)
			require.NoError(t, err)
			require.Equal(t, 1, liked.Likes)

			liked, err = s.Like(t.Context(), created.ID, fan.ID)
			require.NoError(t, err)
			require.Equal(t, 1, liked.Likes, "like twice keeps one like")

			err = s.Dislike(t.Context(), created.ID, fan.ID)
			require.NoError(t, err)
			got, err := s.Get(t.Context(), created.ID)
			require.NoError(t, err)
			require.Zero(t, got.Likes)

			require.Len(t, *emitted, 3)
			require.Equal(t, models.EventPostDisliked, (*emitted)[2].Type)
			require.Equal(t, fan.ID, (*emitted)[2].ActorID)
		})
	})

	t.Run("like deleted post fail", func(t *testing.T) {
		inTx(t, func(s *PostService, storage repository.Storage, _ *[]models.Event) {
			owner := createUser(t, storage)
			fan := createUser(t, storage)
			created, err := s.Create(t.Context(), owner.ID, "header", "body")
			require.NoError(t, err)
			err = s.Delete(t.Context(), created.ID, owner.ID)
			require.NoError(t, err)

			_, err = s.Like(t.Context(), created.ID, fan.ID)
			require.ErrorIs(t, err, apperrors.ErrPostNotFound)

			err = s.Dislike(t.Context(), created.ID, fan.ID)
			require.ErrorIs(t, err, apperrors.ErrPostNotFound)
		})
	})

	// A owns the post: A can't like but can delete, B can like but can't delete
	t.Run("ownership asymmetry", func(t *testing.T) {
		inTx(t, func(s *PostService, storage repository.Storage, _ *[]models.Event) {
			a := createUser(t, storage)
			b := createUser(t, storage)
			created, err := s.Create(t.Context(), a.ID, "header", "body")
			require.NoError(t, err)

			like := access.Chain{access.IsAuthenticated, access.NotOwner(s)}
			remove := access.Chain{access.IsAuthenticated, access.OwnerOnly(s)}

			err = like.Authorize(t.Context(), access.Request{User: a, PostID: created.ID})
			require.ErrorIs(t, err, apperrors.ErrActionNotAllowed, "owner can't like own post")

			err = remove.Authorize(t.Context(), access.Request{User: b, PostID: created.ID})
			require.ErrorIs(t, err, apperrors.ErrActionNotAllowed, "other user can't delete the post")

			err = like.Authorize(t.Context(), access.Request{User: b, PostID: created.ID})
			require.NoError(t, err, "other user may like the post")

			err = remove.Authorize(t.Context(), access.Request{User: a, PostID: created.ID})
			require.NoError(t, err, "owner may delete the post")

			err = remove.Authorize(t.Context(), access.Request{User: a, PostID: uuid.New()})
			require.ErrorIs(t, err, apperrors.ErrPostNotFound)
		})
	})
}
