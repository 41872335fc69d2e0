package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/yummy-rest/apiserver/config"
	"github.com/yummy-rest/apiserver/internal/db"
	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/handlers"
	"github.com/yummy-rest/apiserver/internal/mq"
	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/internal/storage"
	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/internal/store/memory"
)

// Repositories groups the persistence layer the services run on.
type Repositories struct {
	Users      services.UserRepository
	Categories services.CategoryRepository
	Recipes    services.RecipeRepository
	Blacklist  services.BlacklistRepository
}

// PostgresRepositories builds repositories backed by conn.
func PostgresRepositories(conn *sql.DB) Repositories {
	return Repositories{
		Users:      store.NewUserRepository(conn),
		Categories: store.NewCategoryRepository(conn),
		Recipes:    store.NewRecipeRepository(conn),
		Blacklist:  store.NewBlacklistRepository(conn),
	}
}

// MemoryRepositories builds repositories that share m.
func MemoryRepositories(m *memory.Manager) Repositories {
	return Repositories{
		Users:      m.Users(),
		Categories: m.Categories(),
		Recipes:    m.Recipes(),
		Blacklist:  m.Blacklist(),
	}
}

// OpenRepositories picks the backend named by cfg.Database.Driver. The
// returned close function releases the database connection, if any.
func OpenRepositories(ctx context.Context, cfg config.Config) (Repositories, func() error, error) {
	switch cfg.Database.Driver {
	case "memory":
		return MemoryRepositories(memory.NewManager()), func() error { return nil }, nil
	case "", "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return Repositories{}, nil, fmt.Errorf("open database: %w", err)
		}
		return PostgresRepositories(conn), conn.Close, nil
	default:
		return Repositories{}, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// Services is the business layer shared by the router and the CLI.
type Services struct {
	Tokens     *services.TokenService
	Users      *services.UserService
	Categories *services.CategoryService
	Recipes    *services.RecipeService
	Exports    *services.ExportService
}

// NewServices wires the services over repos. objects may be nil, which
// disables exports.
func NewServices(cfg config.AuthConfig, repos Repositories, objects services.ObjectStore, publisher events.Publisher, userOpts ...services.UserOption) *Services {
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, repos.Users, repos.Blacklist)
	return &Services{
		Tokens:     tokens,
		Users:      services.NewUserService(repos.Users, tokens, publisher, userOpts...),
		Categories: services.NewCategoryService(repos.Categories, publisher),
		Recipes:    services.NewRecipeService(repos.Categories, repos.Recipes, publisher),
		Exports:    services.NewExportService(repos.Categories, repos.Recipes, objects, publisher),
	}
}

// NewRouter builds the HTTP routes with the standard middleware stack.
func NewRouter(cfg config.Config, svc *Services, logger *slog.Logger) *chi.Mux {
	guard := handlers.NewGuard(svc.Tokens, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	if cfg.Env != config.EnvTesting {
		router.Use(middleware.Logger)
	}
	router.Use(
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, svc.Users, guard, logger)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, svc.Users, guard, logger)
	})
	router.Route("/category", func(r chi.Router) {
		handlers.CategoryRouter(r, svc.Categories, svc.Recipes, svc.Exports, guard, logger)
	})
	return router
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	services   *Services
	closers    []func() error
	logger     *slog.Logger
}

// New opens the configured backends and constructs a Server.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{logger: logger}

	repos, closeRepos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeRepos)

	var objects services.ObjectStore
	objectStorage, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if objectStorage != nil {
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			s.close()
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		objects = objectStorage
	}

	var publisher events.Publisher = events.Nop{}
	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	if broker != nil {
		s.closers = append(s.closers, broker.Close)
		publisher = events.NewMQPublisher(broker, cfg.MQ.EventsChannel, logger)
	}

	s.services = NewServices(cfg.Auth, repos, objects, publisher)
	s.router = NewRouter(cfg, s.services, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		"port", port,
		"db_driver", cfg.Database.Driver,
		"storage_driver", cfg.Storage.Driver,
		"mq_driver", cfg.MQ.Driver,
	)
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Services exposes the business layer.
func (s *Server) Services() *Services {
	return s.services
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
