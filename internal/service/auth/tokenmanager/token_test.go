package tokenmanager

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/postboard/internal/apperrors"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	newManager := func(t *testing.T, accessTTL time.Duration, refreshTTL time.Duration) *TokenManager {
		m, err := New(Config{
			SecretKey:  "test-secret-key",
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new fail", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err, "empty secret must fail")

		_, err = New(Config{SecretKey: "secret", Alg: "RS256"})
		require.Error(t, err, "only HMAC algorithms are supported")

		_, err = New(Config{SecretKey: "secret", Alg: "unknown"})
		require.Error(t, err)
	})

	t.Run("Issue", func(t *testing.T) {
		t.Run("access token expiration", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			issued, err := m.Issue(Access, "JD")

			require.NoError(t, err)
			assert.NotEmpty(t, issued.Value, "access token should not be empty")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 2*time.Second)
		})

		t.Run("refresh token expiration", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			issued, err := m.Issue(Refresh, uuid.NewString())

			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), issued.ExpiresAt, 2*time.Second)
		})

		t.Run("claims", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			issued, err := m.Issue(Access, "JD")
			require.NoError(t, err)

			// Parse without library validation to look at raw claims
			claims := &Claims{}
			_, _, err = jwt.NewParser().ParseUnverified(issued.Value, claims)
			require.NoError(t, err)

			assert.Equal(t, "JD", claims.User)
			assert.Equal(t, "access", claims.Type)
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.Nil(t, claims.ExpiresAt, "registered exp claim is not used")
			require.NotNil(t, claims.ExpirationDate)
			assert.WithinDuration(t, issued.ExpiresAt, claims.ExpirationDate.Time, 0, "expiration date should match issued token")
		})

		t.Run("generate different tokens", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			first, err := m.Issue(Refresh, "same-subject")
			require.NoError(t, err)
			second, err := m.Issue(Refresh, "same-subject")
			require.NoError(t, err)

			assert.NotEqual(t, first.Value, second.Value, "tokens should be different")
		})
	})

	t.Run("Verify", func(t *testing.T) {
		t.Run("round trip", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			issued, err := m.Issue(Access, "JD")
			require.NoError(t, err)

			claims, err := m.Verify(issued.Value, Access)

			require.NoError(t, err, "valid token should be parsed without errors")
			assert.Equal(t, "JD", claims.User)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpirationDate.Time, 2*time.Second)
		})

		t.Run("not a token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			_, err := m.Verify("invalid token", Access)

			require.ErrorIs(t, err, apperrors.ErrMalformedToken)
		})

		t.Run("expired token", func(t *testing.T) {
			m := newManager(t, time.Minute, time.Minute)
			issued, err := m.Issue(Access, "JD")
			require.NoError(t, err)

			// Move the clock after token lifetime
			m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
			_, err = m.Verify(issued.Value, Access)

			require.ErrorIs(t, err, apperrors.ErrExpiredSignature, "token has to become expired")
		})

		t.Run("expired token without expiry check", func(t *testing.T) {
			m := newManager(t, time.Minute, time.Minute)
			issued, err := m.Issue(Access, "JD")
			require.NoError(t, err)

			m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
			claims, err := m.Verify(issued.Value, Access, WithoutExpiry())

			require.NoError(t, err)
			assert.Equal(t, "JD", claims.User)
		})

		t.Run("signed with other key", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			other, err := New(Config{SecretKey: "other-key"})
			require.NoError(t, err)
			issued, err := other.Issue(Access, "JD")
			require.NoError(t, err)

			_, err = m.Verify(issued.Value, Access)

			require.ErrorIs(t, err, apperrors.ErrInvalidSignature)
		})

		t.Run("not signed token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			// Create valid but unsigned token
			token := jwt.NewWithClaims(
				jwt.SigningMethodNone,
				Claims{
					RegisteredClaims: jwt.RegisteredClaims{ID: uuid.NewString()},
					User:             "JD",
					ExpirationDate:   jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
				},
			)
			access, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)

			_, err = m.Verify(access, Access)

			require.ErrorIs(t, err, apperrors.ErrInvalidSignature, "Valid token with empty alg must fail")
		})

		t.Run("wrong kind", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			refresh, err := m.Issue(Refresh, "JD")
			require.NoError(t, err)
			access, err := m.Issue(Access, "JD")
			require.NoError(t, err)

			_, err = m.Verify(refresh.Value, Access)
			require.ErrorIs(t, err, apperrors.ErrWrongTokenType, "refresh token must not pass as access one")

			_, err = m.Verify(access.Value, Refresh, WithoutExpiry())
			require.ErrorIs(t, err, apperrors.ErrWrongTokenType, "access token must not pass as refresh one")

			claims, err := m.Verify(refresh.Value, Refresh)
			require.NoError(t, err)
			assert.Equal(t, "refresh", claims.Type)
		})

		t.Run("missing kind", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
				User:           "JD",
				ExpirationDate: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			})
			signed, err := token.SignedString([]byte("test-secret-key"))
			require.NoError(t, err)

			_, err = m.Verify(signed, Access)

			require.ErrorIs(t, err, apperrors.ErrWrongTokenType)
		})

		t.Run("missing subject", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			issued, err := m.Issue(Access, "")
			require.NoError(t, err)

			_, err = m.Verify(issued.Value, Access)

			require.ErrorIs(t, err, apperrors.ErrMalformedToken)
		})

		t.Run("missing expiration date", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{User: "JD"})
			signed, err := token.SignedString([]byte("test-secret-key"))
			require.NoError(t, err)

			_, err = m.Verify(signed, Access)

			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	})

	t.Run("Key", func(t *testing.T) {
		m := newManager(t, 15*time.Minute, 24*time.Hour)
		issued, err := m.Issue(Refresh, "id")
		require.NoError(t, err)

		key, err := Key(issued.Value)

		require.NoError(t, err)
		assert.Equal(t, strings.Split(issued.Value, ".")[1], key)

		_, err = Key("only.two")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}
