package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/repository"
	"github.com/nkiryanov/postboard/internal/testutil"
)

func Test_CredentialRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	newUser := repository.CreateUserParams{FirstName: "fn", LastName: "ln", BirthDate: mustParseDate("2000-10-10")}

	t.Run("create and get ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), newUser)
			require.NoError(t, err)
			r := CredentialRepo{DB: tx}

			created, err := r.CreateCredential(t.Context(), user.ID, "JD", "hashed")
			require.NoError(t, err)
			assert.Equal(t, user.ID, created.ID, "credential shares id with user")

			got, err := r.GetByLogin(t.Context(), "JD")
			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("duplicate login fail", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := &UserRepo{DB: tx}
			r := CredentialRepo{DB: tx}
			first, err := users.CreateUser(t.Context(), newUser)
			require.NoError(t, err)
			second, err := users.CreateUser(t.Context(), newUser)
			require.NoError(t, err)

			_, err = r.CreateCredential(t.Context(), first.ID, "JD", "hashed")
			require.NoError(t, err)

			_, err = r.CreateCredential(t.Context(), second.ID, "JD", "hashed")
			require.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
		})
	})

	t.Run("exists", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := CredentialRepo{DB: tx}
			createTestUser(t, tx, "JD")

			exists, err := r.Exists(t.Context(), "JD")
			require.NoError(t, err)
			assert.True(t, exists)

			exists, err = r.Exists(t.Context(), "unknown")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	})

	t.Run("get by login not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := CredentialRepo{DB: tx}

			_, err := r.GetByLogin(t.Context(), "unknown")

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("deleted user credential not found but login taken", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := CredentialRepo{DB: tx}
			user := createTestUser(t, tx, "JD")
			require.NoError(t, (&UserRepo{DB: tx}).SoftDeleteUser(t.Context(), user.ID))

			_, err := r.GetByLogin(t.Context(), "JD")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)

			exists, err := r.Exists(t.Context(), "JD")
			require.NoError(t, err)
			assert.True(t, exists)
		})
	})
}
