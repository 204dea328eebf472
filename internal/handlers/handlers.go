package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"blog/internal/auth"
	"blog/internal/config"
	"blog/internal/media"
	"blog/internal/observability"
	"blog/internal/store"
)

type Handler struct {
	cfg      *config.Config
	db       *sql.DB
	tokens   *auth.Manager
	users    *store.UserStore
	profiles *store.ProfileStore
	posts    *store.PostStore
	media    *media.Storage
	log      *zap.Logger
}

func New(cfg *config.Config, db *sql.DB, tokens *auth.Manager, stores *store.Stores, storage *media.Storage, log *zap.Logger) *Handler {
	if log == nil {
		log = observability.Log
	}
	return &Handler{
		cfg:      cfg,
		db:       db,
		tokens:   tokens,
		users:    stores.Users,
		profiles: stores.Profiles,
		posts:    stores.Posts,
		media:    storage,
		log:      log,
	}
}

// Routes builds the API router. Paths match with or without a trailing slash.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(h.log))
	if h.cfg.MetricsEnabled {
		r.Use(observability.MetricsMiddleware(h.cfg.ServiceName))
	}
	r.Use(WithRecover(h.log))
	r.Use(middleware.StripSlashes)
	r.Use(Timeout(h.cfg.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, `Method "`+r.Method+`" not allowed.`)
	})

	r.Get("/health", observability.HealthLiveHandler)
	r.Get("/health/ready", observability.HealthReadyHandler(h.db))
	if h.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	if prefix := h.media.BaseURL(); strings.HasPrefix(prefix, "/") {
		files := http.StripPrefix(prefix, http.FileServer(h.media.FileSystem()))
		r.Handle(strings.TrimSuffix(prefix, "/")+"/*", files)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(RequireAuth).Post("/logout", h.Logout)

		r.With(RequireAuth).Get("/user", h.GetUser)
		r.With(RequireAuth).Put("/user", h.UpdateUser)
		r.With(RequireAuth).Patch("/user", h.UpdateUser)

		r.With(RequireAuth).Get("/profile", h.GetProfile)
		r.With(RequireAuth).Put("/profile", h.UpdateProfile)
		r.With(RequireAuth).Patch("/profile", h.UpdateProfile)

		r.Get("/posts", h.ListPosts)
		r.With(RequireAuth).Post("/posts", h.CreatePost)
		r.Get("/posts/{id}", h.GetPost)
		r.Put("/posts/{id}", h.UpdatePost)
		r.Patch("/posts/{id}", h.UpdatePost)
		r.Delete("/posts/{id}", h.DeletePost)

		r.With(RequireAuth).Get("/my-posts", h.MyPosts)
	})

	return r
}
