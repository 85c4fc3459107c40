package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fintrack/apiserver/config"
	"github.com/fintrack/apiserver/internal/auth"
	"github.com/fintrack/apiserver/internal/handlers"
	"github.com/fintrack/apiserver/internal/logging"
	"github.com/fintrack/apiserver/internal/mq"
	"github.com/fintrack/apiserver/internal/services"
	"github.com/fintrack/apiserver/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	stores     *Stores
	queue      *mq.MQ
	logger     *slog.Logger
}

// New opens the configured stores and, when exports are enabled, the queue
// and object storage, then builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stores, err := OpenStores(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var (
		queue     *mq.MQ
		publisher services.Publisher
		objects   services.ObjectStore
	)
	if cfg.ExportsEnabled() {
		if queue, err = mq.NewFromConfig(ctx, cfg.MQ); err != nil {
			_ = stores.Close()
			return nil, err
		}
		store, err := storage.NewFromConfig(ctx, cfg.Storage)
		if err != nil {
			_ = queue.Close()
			_ = stores.Close()
			return nil, err
		}
		publisher, objects = queue, store
	}

	router, err := NewRouter(cfg, stores, publisher, objects, logger)
	if err != nil {
		if queue != nil {
			_ = queue.Close()
		}
		_ = stores.Close()
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		stores:     stores,
		queue:      queue,
		logger:     logging.Component(logger, "http"),
	}, nil
}

// NewRouter wires services and handlers over already opened dependencies.
// queue and objects may both be nil, which leaves the export routes out.
func NewRouter(
	cfg config.Config,
	stores *Stores,
	queue services.Publisher,
	objects services.ObjectStore,
	logger *slog.Logger,
) (*chi.Mux, error) {
	tokens, err := auth.NewTokenIssuer(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		cfg.Auth.Audience,
		auth.WithTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		return nil, err
	}

	authService := services.NewAuthService(stores.Users, tokens, auth.PasswordPolicy{MinLength: cfg.Auth.PasswordMinLength})
	userService := services.NewUserService(stores.Users)
	transactionService := services.NewTransactionService(stores.Transactions)

	var exportService *services.ExportService
	if queue != nil && objects != nil {
		exportService = services.NewExportService(stores.Exports, stores.Transactions, queue, objects, cfg.Export.Channel)
	}

	var authLimit func(http.Handler) http.Handler
	if cfg.RateLimit.AuthPerMinute > 0 {
		authLimit = handlers.NewIPRateLimiter(cfg.RateLimit.AuthPerMinute).Middleware
	}
	requireAuth := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logging.Component(logger, "http")),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Location", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
	)
	router.Get("/healthz", handlers.Healthz(stores.Health))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, userService, requireAuth, authLimit)
	})
	router.Route("/transactions", func(r chi.Router) {
		handlers.TransactionRouter(r, transactionService, exportService, requireAuth)
	})
	return router, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the queue and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		err = errors.Join(err, s.queue.Close())
	}
	return errors.Join(err, s.stores.Close())
}
