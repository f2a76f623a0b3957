package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nkiryanov/postboard/internal/access"
	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/handlers/middleware"
	"github.com/nkiryanov/postboard/internal/handlers/render"
	"github.com/nkiryanov/postboard/internal/handlers/userctx"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
	"github.com/nkiryanov/postboard/internal/ratelimit"
	"github.com/nkiryanov/postboard/internal/service/user"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// route is a handler with authorizers it requires
// Authorizers run in order before the handler, the first failure stops the request
type route struct {
	pattern    string
	handler    http.Handler
	authorizer access.Chain
}

type Options struct {
	// Throttles login attempts per client IP. Nil disables throttling
	LoginLimiter interface {
		Allow(ctx context.Context, key string) (ratelimit.Result, error)
	}

	// Per route metrics. Nil disables metrics
	Metrics *middleware.Metrics

	// Metrics exposed on /metrics. Nil disables the endpoint
	Gatherer prometheus.Gatherer
}

func NewRouter(
	authService authService,
	userService userService,
	postService postService,
	opts Options,
	logger logger.Logger,
) http.Handler {
	login := handleLogin(authService, logger)
	if opts.LoginLimiter != nil {
		login = middleware.RateLimit("login", opts.LoginLimiter, logger)(login)
	}

	authenticated := access.Chain{access.IsAuthenticated}
	ownerOnly := access.Chain{access.IsAuthenticated, access.OwnerOnly(postService)}
	notOwner := access.Chain{access.IsAuthenticated, access.NotOwner(postService)}

	routes := []route{
		{pattern: "POST /auth/register", handler: handleRegister(userService, logger)},
		{pattern: "POST /auth/login", handler: login},
		{pattern: "POST /auth/access-token", handler: login},
		{pattern: "POST /auth/refresh-token", handler: handleRefreshToken(authService, logger)},

		{pattern: "GET /posts", handler: handleListPosts(postService, logger), authorizer: authenticated},
		{pattern: "POST /posts", handler: handleCreatePost(postService, logger), authorizer: authenticated},
		{pattern: "GET /posts/{id}", handler: handleGetPost(postService, logger), authorizer: authenticated},
		{pattern: "PUT /posts/{id}", handler: handleUpdatePost(postService, logger), authorizer: ownerOnly},
		{pattern: "DELETE /posts/{id}", handler: handleDeletePost(postService, logger), authorizer: ownerOnly},
		{pattern: "POST /posts/{id}/like", handler: handleLikePost(postService, logger), authorizer: notOwner},
		{pattern: "DELETE /posts/{id}/dislike", handler: handleDislikePost(postService, logger), authorizer: notOwner},

		{pattern: "GET /users", handler: handleSearchUsers(userService, logger), authorizer: authenticated},
		{pattern: "GET /users/me", handler: handleUserMe(), authorizer: authenticated},
		{pattern: "DELETE /users/me", handler: handleDeleteMe(userService, logger), authorizer: authenticated},
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		h := dispatch(rt, logger)
		if opts.Metrics != nil {
			h = opts.Metrics.Instrument(rt.pattern)(h)
		}
		mux.Handle(rt.pattern, h)
	}

	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	handler := chain(mux,
		middleware.Recover(logger),
		middleware.LoggerMiddleware(logger),
		middleware.Auth(authService, logger),
	)

	return handler
}

// dispatch runs route authorizers and calls the handler only if all of them passed
func dispatch(rt route, l logger.Logger) http.Handler {
	if len(rt.authorizer) == 0 {
		return rt.handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := access.Request{User: userctx.FromContext(r.Context())}

		if r.PathValue("id") != "" {
			id, err := uuid.Parse(r.PathValue("id"))
			if err != nil {
				render.AppError(w, apperrors.ErrPostNotFound)
				return
			}
			req.PostID = id
		}

		if err := rt.authorizer.Authorize(r.Context(), req); err != nil {
			writeError(w, err, l)
			return
		}

		rt.handler.ServeHTTP(w, r)
	})
}

// writeError renders application error and logs it if it is internal one
func writeError(w http.ResponseWriter, err error, l logger.Logger) {
	code, message := render.ErrorStatus(err)
	if code == http.StatusInternalServerError {
		l.Error("Request failed", "error", err)
	}
	render.ServiceError(w, message, code)
}

type authService interface {
	// Login user with login and password
	// Has to return apperrors.ErrInvalidCredentials for unknown login and wrong password both
	Login(ctx context.Context, login string, password string) (models.TokenPair, error)

	// Issue new access token using refresh token
	RefreshToken(ctx context.Context, access string, refresh string) (models.TokenPair, error)

	// Resolve user from request. Nil user with nil error is anonymous request
	Authenticate(ctx context.Context, r *http.Request) (*models.User, error)
}

type userService interface {
	// Has to return apperrors.ErrAlreadyRegistered if login taken
	Register(ctx context.Context, p user.RegisterParams) (models.User, error)
	Search(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type postService interface {
	Create(ctx context.Context, owner uuid.UUID, header string, body string) (models.Post, error)
	Get(ctx context.Context, id uuid.UUID) (models.Post, error)
	List(ctx context.Context, limit int, offset int) (models.Page[models.Post], error)
	Update(ctx context.Context, id uuid.UUID, header *string, body *string) (models.Post, error)
	Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error
	Like(ctx context.Context, id uuid.UUID, actor uuid.UUID) (models.Post, error)
	Dislike(ctx context.Context, id uuid.UUID, actor uuid.UUID) error

	// Has to return apperrors.ErrPostNotFound if post not exists
	IsOwner(ctx context.Context, postID uuid.UUID, userID uuid.UUID) (bool, error)
}
