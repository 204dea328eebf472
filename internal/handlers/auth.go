package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"blog/internal/auth"
	"blog/internal/store"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	b, err := h.parseBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, token, err := h.users.Register(r.Context(), store.UserInput{
		Username:  b.str("username"),
		Email:     b.str("email"),
		Password:  b.str("password"),
		FirstName: b.str("first_name"),
		LastName:  b.str("last_name"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("user_registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  newUserView(u),
		"token": token,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	b, err := h.parseBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := store.ValidationError{}
	username, password := b.str("username"), b.str("password")
	if username == nil {
		v.Add("username", "This field is required.")
	} else if *username == "" {
		v.Add("username", "This field may not be blank.")
	}
	if password == nil {
		v.Add("password", "This field is required.")
	} else if *password == "" {
		v.Add("password", "This field may not be blank.")
	}
	if err := v.Err(); err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.users.GetByUsername(r.Context(), *username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, r, err)
		return
	}
	if u == nil || !auth.CheckPassword(*password, u.PasswordHash) {
		h.fail(w, r, store.ValidationError{"non_field_errors": {"Unable to log in with provided credentials."}})
		return
	}

	token, err := h.tokens.Issue(r.Context(), nil, u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"user_id":  u.ID,
		"email":    u.Email,
		"username": u.Username,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if err := h.tokens.Revoke(r.Context(), caller.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
