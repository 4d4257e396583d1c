// Package server is the composition root: it wires the store, the live
// connection registry, the services and the handlers into one router, and
// runs the HTTP server until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/notification-hub/internal/config"
	"github.com/sakif/notification-hub/internal/handler"
	"github.com/sakif/notification-hub/internal/middleware"
	"github.com/sakif/notification-hub/internal/push"
	"github.com/sakif/notification-hub/internal/repository"
	"github.com/sakif/notification-hub/internal/service"
)

// Server owns the store and closes it when Run returns.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	store    repository.Store
	registry *push.MemoryRegistry
	started  time.Time
}

func New(cfg config.Config, store repository.Store, logger *slog.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: push.NewMemoryRegistry(logger),
		started:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry is the live connection registry shared by every handler.
func (s *Server) Registry() push.Registry {
	return s.registry
}

// setupRoutes mirrors the public API:
//
//	GET    /health
//	GET    /api/sse/{userId}
//	GET    /api/notifications/{userId}
//	PUT    /api/notifications/{userId}/{notificationId}/seen
//	DELETE /api/notifications/{userId}
//	POST   /api/notifications
//	POST   /api/notifications/one-to-one
//	GET    /api/users
//	GET    /api/users/{userId}
//	POST   /api/users
//	PUT    /api/users/{userId}/status
//	POST   /api/follow
//	POST   /api/unfollow
//	GET    /api/connections
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS(s.config.CORSAllowedOrigins))

	dispatcher := push.NewDispatcher(s.registry, s.logger)

	notificationService := service.NewNotificationService(s.store, dispatcher, s.logger,
		service.WithRetention(s.config.NotificationRetention),
	)
	socialService := service.NewSocialService(s.store, notificationService, s.logger)
	userService := service.NewUserService(s.store.Users(), s.logger)
	presenceService := service.NewPresenceService(s.store.Users(), s.registry, s.logger)

	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)
	socialHandler := handler.NewSocialHandler(socialService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	sseHandler := handler.NewSSEHandler(presenceService, s.registry, s.config.SSEQueueSize, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.started, s.logger)

	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleNotFound)

	s.router.Get("/health", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/sse/{userId}", sseHandler.HandleStream)
		r.Get("/connections", sseHandler.HandleConnections)

		r.Get("/notifications/{userId}", notificationHandler.HandleList)
		r.Put("/notifications/{userId}/{notificationId}/seen", notificationHandler.HandleMarkSeen)
		r.Delete("/notifications/{userId}", notificationHandler.HandleClear)
		r.Post("/notifications", notificationHandler.HandleCreate)
		r.Post("/notifications/one-to-one", notificationHandler.HandleCreateOneToOne)

		r.Get("/users", userHandler.HandleList)
		r.Get("/users/{userId}", userHandler.HandleGet)
		r.Post("/users", userHandler.HandleCreate)
		r.Put("/users/{userId}/status", userHandler.HandleUpdateStatus)

		r.Post("/follow", socialHandler.HandleFollow)
		r.Post("/unfollow", socialHandler.HandleUnfollow)
	})
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run listens on the configured port and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		if cerr := s.store.Close(); cerr != nil {
			s.logger.Error("failed to close store", slog.String("error", cerr.Error()))
		}
		return fmt.Errorf("listening on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully: live
// streams are closed first so Shutdown does not wait on them, then the store.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	// the SSE handler clears WriteTimeout for its own connection
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(s.registry.CloseAll)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("db_driver", s.config.DBDriver),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
