package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/progress2win/apiserver/config"
	"github.com/progress2win/apiserver/internal/db"
	"github.com/progress2win/apiserver/internal/handlers"
	"github.com/progress2win/apiserver/internal/mailer"
	"github.com/progress2win/apiserver/internal/mq"
	"github.com/progress2win/apiserver/internal/services"
	"github.com/progress2win/apiserver/internal/storage"
	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.Bus

	dispatcherCancel context.CancelFunc
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)
	progressRepo := store.NewProgressRepository(dbConn)
	friendRepo := store.NewFriendRepository(dbConn)
	notificationRepo := store.NewNotificationRepository(dbConn)
	groupRepo := store.NewGroupRepository(dbConn)

	bus, err := newBus(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	avatars, err := newAvatarStore(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		closeBus(bus)
		return nil, err
	}

	codec := token.NewCodec(jwtSecret)

	authService := services.NewAuthService(userRepo, sessionRepo, codec, mailer.NewLogMailer(), cfg.Auth)
	userService := services.NewUserService(userRepo, avatars)
	progressService := services.NewProgressService(progressRepo)
	notificationService := services.NewNotificationService(notificationRepo, bus)
	compareService := services.NewCompareService(friendRepo, userRepo, progressRepo, notificationService)
	groupService := services.NewGroupService(groupRepo, notificationService)

	authMiddleware := handlers.RequireAuth(codec)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, codec)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/progress", func(r chi.Router) {
		handlers.ProgressRouter(r, progressService, authMiddleware)
	})
	router.Route("/compare", func(r chi.Router) {
		handlers.CompareRouter(r, compareService, authMiddleware)
	})
	router.Route("/notifications", func(r chi.Router) {
		handlers.NotificationRouter(r, notificationService, authMiddleware)
	})
	router.Route("/groups", func(r chi.Router) {
		handlers.GroupRouter(r, groupService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srv := &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
	}

	if bus != nil {
		dispatcherCtx, cancel := context.WithCancel(context.Background())
		srv.dispatcherCancel = cancel
		go func() {
			if err := notificationService.Run(dispatcherCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("notification dispatcher stopped: %v", err)
			}
		}()
	}

	return srv, nil
}

// newBus builds the notification event bus for the configured broker.
// An empty provider disables the bus and notifications are written
// directly to the store.
func newBus(ctx context.Context, cfg config.MQConfig) (*mq.Bus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.NewBus(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.NewBus(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq provider: %s", cfg.Provider)
	}
}

// newAvatarStore builds the avatar object store for the configured
// backend. An empty provider disables avatar uploads.
func newAvatarStore(ctx context.Context, cfg config.StorageConfig) (*storage.AvatarStore, error) {
	var backend storage.ObjectStorage
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}

	avatars := storage.NewAvatarStore(backend)
	if err := avatars.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return avatars, nil
}

func closeBus(bus *mq.Bus) {
	if bus != nil {
		_ = bus.Close()
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.dispatcherCancel != nil {
		s.dispatcherCancel()
	}
	closeBus(s.bus)
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
