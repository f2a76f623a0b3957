package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/postboard/internal/db"
	"github.com/nkiryanov/postboard/internal/handlers"
	"github.com/nkiryanov/postboard/internal/handlers/middleware"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/ratelimit"
	"github.com/nkiryanov/postboard/internal/repository/postgres"
	"github.com/nkiryanov/postboard/internal/service/auth"
	"github.com/nkiryanov/postboard/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/postboard/internal/service/events"
	"github.com/nkiryanov/postboard/internal/service/post"
	"github.com/nkiryanov/postboard/internal/service/sweeper"
	"github.com/nkiryanov/postboard/internal/service/user"
)

const (
	shutdownTimeout   = 5 * time.Second
	loginLimitWindow  = time.Minute
	readHeaderTimeout = 5 * time.Second
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger     logger.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	publisher  events.Publisher
	dispatcher *events.Dispatcher
	sweeper    *sweeper.Sweeper
}

func NewServerApp(ctx context.Context, c *Config) (app *ServerApp, err error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app = &ServerApp{ListenAddr: c.ListenAddr, logger: l}
	defer func() {
		if err != nil {
			app.close()
			app = nil
		}
	}()

	// Connect to the database and run migrations
	app.pool, err = db.ConnectAndMigrate(ctx, c.DSN())
	if err != nil {
		return app, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	storage := postgres.NewStorage(app.pool)

	// Events go to the broker if it is configured
	app.publisher = events.NoopPublisher{}
	if c.AMQPURL != "" {
		exchange := c.EventsExchange
		if exchange == "" {
			exchange = events.DefaultExchange
		}
		amqpPublisher, err := events.NewAMQPPublisher(c.AMQPURL, exchange, l)
		if err != nil {
			return app, fmt.Errorf("error while connecting to broker. Err: %w", err)
		}
		app.publisher = amqpPublisher
	}
	app.dispatcher = events.NewDispatcher(events.DispatcherConfig{}, app.publisher, l)

	// Login throttling if redis is configured
	opts := handlers.Options{}
	if c.RedisAddr != "" {
		app.redis, err = ratelimit.Connect(ctx, c.RedisAddr)
		if err != nil {
			return app, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		opts.LoginLimiter = ratelimit.NewRedisLimiter(app.redis, c.LoginRateLimit, loginLimitWindow)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opts.Metrics, err = middleware.NewMetrics(registry)
	if err != nil {
		return app, fmt.Errorf("error while registering metrics. Err: %w", err)
	}
	opts.Gatherer = registry

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		Alg:        c.HashAlgorithm,
		AccessTTL:  time.Duration(c.AccessTokenLifetime) * time.Minute,
		RefreshTTL: time.Duration(c.RefreshTokenLifetime) * time.Minute,
	})
	if err != nil {
		return app, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{}, tokenManager, storage, l)
	if err != nil {
		return app, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage, app.dispatcher, l)
	postService := post.NewService(storage, app.dispatcher, l)

	app.sweeper = sweeper.New(0, storage.Refresh(), l)
	app.Handler = handlers.NewRouter(authService, userService, postService, opts, l)

	return app, nil
}

// Run starts http server and background workers, stops all of them gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	workersCtx, workersCancel := context.WithCancel(context.Background())
	dispatcherStopped := s.dispatcher.Run(workersCtx)
	sweeperStopped := s.sweeper.Run(workersCtx)

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	// Handlers are done, so no new events: let workers flush and stop
	workersCancel()
	<-dispatcherStopped
	<-sweeperStopped
	s.logger.Info("Background workers stopped")

	return err
}

func (s *ServerApp) close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("error while closing broker connection", "error", err.Error())
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("error while closing redis connection", "error", err.Error())
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
