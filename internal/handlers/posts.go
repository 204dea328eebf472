package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"blog/internal/auth"
	"blog/internal/media"
	"blog/internal/models"
	"blog/internal/store"
)

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newPostViews(r, posts))
}

// MyPosts lists the caller's own posts only.
func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	posts, err := h.posts.ListByAuthor(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newPostViews(r, posts))
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	b, err := h.parseBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	image, err := h.imageInput(b, media.PostImagesDir)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// any "author" in the body is ignored
	p, err := h.posts.Create(r.Context(), caller.ID, store.PostInput{
		Title:       b.str("title"),
		Description: b.str("description"),
		Image:       image,
	})
	if err != nil {
		h.discardUpload(image)
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.newPostView(r, p))
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.postFromURL(r)
	if err == nil {
		err = auth.Authorize(auth.UserFromContext(r.Context()), p.AuthorID, auth.Read)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newPostView(r, p))
}

// UpdatePost serves PUT (title and description required) and PATCH.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	p, err := h.postFromURL(r)
	if err == nil {
		err = auth.Authorize(caller, p.AuthorID, auth.Update)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.parseBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	image, err := h.imageInput(b, media.PostImagesDir)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.posts.Update(r.Context(), p.ID, store.PostInput{
		Title:       b.str("title"),
		Description: b.str("description"),
		Image:       image,
	}, r.Method == http.MethodPatch, ownerGuard(caller, auth.Update))
	if err != nil {
		h.discardUpload(image)
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newPostView(r, updated))
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	p, err := h.postFromURL(r)
	if err == nil {
		err = h.posts.Delete(r.Context(), p.ID, ownerGuard(caller, auth.Delete))
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownerGuard re-checks ownership against the row read inside the write
// transaction.
func ownerGuard(caller *models.User, action auth.Action) store.Guard {
	return func(prior *models.Post) error {
		return auth.Authorize(caller, prior.AuthorID, action)
	}
}

func (h *Handler) postFromURL(r *http.Request) (*models.Post, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, store.ErrNotFound
	}
	return h.posts.Get(r.Context(), id)
}
