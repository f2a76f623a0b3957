package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/postboard/internal/handlers/middleware"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/repository/postgres"
	"github.com/nkiryanov/postboard/internal/service/auth"
	"github.com/nkiryanov/postboard/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/postboard/internal/service/post"
	"github.com/nkiryanov/postboard/internal/service/user"
	"github.com/nkiryanov/postboard/internal/testutil"
)

type Services struct {
	AuthService *auth.AuthService
	UserService *user.UserService
	PostService *post.PostService
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func serveWithTx(dbpool *pgxpool.Pool, t *testing.T, opts Options, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
		l := logger.NewNoOpLogger()

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"})
		require.NoError(t, err, "token manager should be created without errors")

		as, err := auth.NewService(auth.Config{Hasher: hasher}, tokenManager, storage, l)
		require.NoError(t, err, "auth service starting error", err)

		us := user.NewService(hasher, storage, nil, l)
		ps := post.NewService(storage, nil, l)

		if opts.Metrics == nil {
			reg := prometheus.NewRegistry()
			opts.Metrics, err = middleware.NewMetrics(reg)
			require.NoError(t, err)
			opts.Gatherer = reg
		}

		srv := httptest.NewServer(NewRouter(as, us, ps, opts, l))
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService: as,
			UserService: us,
			PostService: ps,
		})
	})
}

// Send request with optional bearer token and json body
// Returns status code and response body
func do(t *testing.T, method string, url string, token string, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(data)
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v), "body is not expected json: %s", body)
	return v
}

// Register user through API and login, returns access token
func registerAndLogin(t *testing.T, srvURL string, login string) string {
	t.Helper()

	code, body := do(t, http.MethodPost, srvURL+"/auth/register", "",
		`{"login": "`+login+`", "password": "today", "first_name": "John", "last_name": "Doe", "birth_date": "1990-05-17"}`)
	require.Equalf(t, http.StatusCreated, code, "register failed: %s", body)

	code, body = do(t, http.MethodPost, srvURL+"/auth/login", "", `{"login": "`+login+`", "password": "today"}`)
	require.Equalf(t, http.StatusOK, code, "login failed: %s", body)

	return decode[tokenPairResponse](t, body).AccessToken
}
