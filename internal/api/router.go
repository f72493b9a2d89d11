package api

import (
	"net/http"

	"github.com/dom/taskflow/internal/api/handlers"
	"github.com/dom/taskflow/internal/api/middleware"
	"github.com/dom/taskflow/internal/config"
	"github.com/dom/taskflow/internal/logging"
	"github.com/dom/taskflow/internal/service"
	"github.com/dom/taskflow/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config, logger *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	dev := cfg.IsDevelopment()
	httpLog := logging.Component(logger, "http")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, httpLog, dev)
	taskHandler := handlers.NewTaskHandler(services.Task, httpLog, dev)
	userHandler := handlers.NewUserHandler(services.Auth, httpLog, dev)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, cfg.CORSAllowedOrigins, logging.Component(logger, "websocket"))

	requireAuth := middleware.Auth(services.Auth, httpLog)

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Put("/password", authHandler.ChangePassword)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/stats", taskHandler.Stats)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})

			r.With(middleware.RequireAdmin).Get("/users", userHandler.List)
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
