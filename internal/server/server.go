package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/varunSalat/Blog-backed/config"
	"github.com/varunSalat/Blog-backed/internal/cache"
	"github.com/varunSalat/Blog-backed/internal/db"
	"github.com/varunSalat/Blog-backed/internal/handlers"
	"github.com/varunSalat/Blog-backed/internal/mq"
	"github.com/varunSalat/Blog-backed/internal/services"
	"github.com/varunSalat/Blog-backed/internal/storage"
	"github.com/varunSalat/Blog-backed/internal/store"
)

const (
	defaultPort = 8080
	// requestTimeout must stay below writeTimeout, otherwise the connection
	// is cut before the handler's 503 can be written
	requestTimeout = 10 * time.Second
	readTimeout    = 15 * time.Second
	writeTimeout   = 15 * time.Second
	idleTimeout    = 60 * time.Second
)

// Server wraps the HTTP server, router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	mq         *mq.MQ
	objects    *storage.Storage
	logger     *slog.Logger
}

// New constructs a Server with basic middleware and defaults. Redis, object
// storage and the message queue are optional and only wired when configured.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.Default()

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if strings.TrimSpace(cfg.Auth.AccessText) == "" {
		return nil, errors.New("ACCESS_TEXT is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{db: dbConn, logger: logger}

	userRepo := store.NewUserRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)

	var postCache services.PostCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			s.closeResources()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.redis = rdb
		postCache = cache.NewPostCache(rdb, cfg.Redis.TTL)
		logger.Info("most viewed cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	var events services.EventPublisher
	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.closeResources()
		return nil, fmt.Errorf("open message queue: %w", err)
	}
	if queue != nil {
		s.mq = queue
		events = mq.NewEventPublisher(queue, cfg.MQ.Channel)
		logger.Info("post events enabled", "backend", cfg.MQ.Backend, "channel", cfg.MQ.Channel)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		s.closeResources()
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	s.objects = objects

	sessions := services.NewSessionVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	credentialService := services.NewCredentialService(userRepo, sessions, cfg.Auth.AccessText)
	userService := services.NewUserService(userRepo)
	postService := services.NewPostService(postRepo, userRepo, postCache, events, logger)

	cookie := handlers.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		TTL:    cfg.Auth.TokenTTL,
	}
	authMiddleware := handlers.RequireSession(sessions, cookie.Name)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(requestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, credentialService, userService, cookie, authMiddleware)
		handlers.PostRouter(r, postService, authMiddleware)
		if objects != nil {
			imageService := services.NewImageService(objects, cfg.Storage.PublicBaseURL, cfg.Storage.MaxUploadSize)
			handlers.ImageRouter(r, imageService, authMiddleware)
			logger.Info("image uploads enabled", "backend", cfg.Storage.Backend, "bucket", objects.Bucket())
		}
	})

	s.router = router
	s.httpServer = newHTTPServer(cfg.ServerPort, router)
	return s, nil
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	if port == 0 {
		port = defaultPort
	}
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes owned connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.logger.Warn("close message queue", "error", err)
		}
	}
	if s.objects != nil {
		if err := s.objects.Close(); err != nil {
			s.logger.Warn("close object storage", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("close redis", "error", err)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
