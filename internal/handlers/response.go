package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"blog/internal/auth"
	"blog/internal/models"
	"blog/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", "Token")
	if errors.Is(err, auth.ErrInvalidToken) {
		writeDetail(w, http.StatusUnauthorized, "Invalid token.")
		return
	}
	writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
}

// fail maps an error to its response. Unexpected errors are logged and
// surface as a bare 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr store.ValidationError
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr)
	case errors.Is(err, errMalformedBody):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooBig):
		writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large.")
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		writeUnauthorized(w, err)
	case errors.Is(err, auth.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn("request_timeout", zap.String("path", r.URL.Path), zap.Error(err))
		writeDetail(w, http.StatusServiceUnavailable, "Request timed out.")
	default:
		h.log.Error("request_failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

type userView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type profileView struct {
	ID          int64    `json:"id"`
	User        userView `json:"user"`
	PhoneNumber *string  `json:"phone_number"`
	Image       *string  `json:"image"`
}

type postView struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Image          *string   `json:"image"`
	CreatedAt      time.Time `json:"created_at"`
	Author         int64     `json:"author"`
	AuthorUsername string    `json:"author_username"`
}

func newUserView(u *models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func (h *Handler) newProfileView(r *http.Request, p *models.Profile) profileView {
	v := profileView{ID: p.ID, PhoneNumber: p.PhoneNumber, Image: h.imageURL(r, p.Image)}
	if p.User != nil {
		v.User = newUserView(p.User)
	}
	return v
}

func (h *Handler) newPostView(r *http.Request, p *models.Post) postView {
	return postView{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Image:          h.imageURL(r, p.Image),
		CreatedAt:      p.CreatedAt,
		Author:         p.AuthorID,
		AuthorUsername: p.AuthorUsername,
	}
}

func (h *Handler) newPostViews(r *http.Request, posts []*models.Post) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, h.newPostView(r, p))
	}
	return out
}

// imageURL turns a stored media path into an absolute URL for the current
// request's host; nil for an unset image.
func (h *Handler) imageURL(r *http.Request, rel string) *string {
	u := h.media.URL(rel)
	if u == "" {
		return nil
	}
	if strings.HasPrefix(u, "/") {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = p
		}
		u = scheme + "://" + r.Host + u
	}
	return &u
}
