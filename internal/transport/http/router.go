package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photogram/internal/handler"
	"photogram/internal/httputil"
	"photogram/internal/model"
	authmw "photogram/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	FollowHandler  *handler.FollowHandler
	FeedHandler    *handler.FeedHandler
	PhotoHandler   *handler.PhotoHandler
	MediaHandler   *handler.MediaHandler
	Authenticator  authmw.Authenticator

	// UploadDir is served at /uploads/ when photos are stored on local disk.
	UploadDir      string
	MetricsEnabled bool
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	if cfg.UploadDir != "" {
		prefix := "/" + model.UploadFolder + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadDir))))
	}

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// Public account endpoints with optional authentication
	r.Route("/users", func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.Authenticator))
		r.Get("/search", cfg.AccountHandler.Search)
		r.Get("/{id}", cfg.AccountHandler.GetProfile)
		r.Get("/{id}/counts", cfg.AccountHandler.Counts)
		r.Get("/{id}/photos", cfg.AccountHandler.Photos)
		r.Get("/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/{id}/following", cfg.FollowHandler.GetFollowing)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.Authenticator))

		// Current account endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/me/profile-picture", cfg.MediaHandler.UploadProfilePicture)
		r.Get("/me/profile-picture", cfg.MediaHandler.GetProfilePicture)
		r.Delete("/me/profile-picture", cfg.MediaHandler.DeleteProfilePicture)

		// Follow/unfollow actions require authentication
		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

		// Feed endpoint
		r.Get("/feed", cfg.FeedHandler.GetFeed)

		// Photo endpoints; photos are addressed by URI
		r.Post("/photos", cfg.PhotoHandler.Upload)
		r.Delete("/photos", cfg.PhotoHandler.Delete)
		r.Post("/photos/like", cfg.PhotoHandler.Like)
		r.Post("/photos/unlike", cfg.PhotoHandler.Unlike)
		r.Post("/photos/comments", cfg.PhotoHandler.Comment)
		r.Get("/photos/details", cfg.PhotoHandler.Details)
	})

	return r
}
