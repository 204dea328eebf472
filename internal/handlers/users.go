package handlers

import (
	"net/http"

	"blog/internal/auth"
	"blog/internal/media"
	"blog/internal/store"
)

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserView(auth.UserFromContext(r.Context())))
}

// UpdateUser serves PUT (username required) and PATCH (any subset).
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	b, err := h.parseBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.users.Update(r.Context(), caller.ID, store.UserInput{
		Username:  b.str("username"),
		Email:     b.str("email"),
		Password:  b.str("password"),
		FirstName: b.str("first_name"),
		LastName:  b.str("last_name"),
	}, r.Method == http.MethodPatch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(u))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	p, err := h.profiles.Get(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newProfileView(r, p))
}

// UpdateProfile serves PUT and PATCH alike: every profile field is optional.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	b, err := h.parseBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	image, err := h.imageInput(b, media.ProfileImagesDir)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := store.ProfileInput{PhoneNumber: b.str("phone_number"), Image: image}
	in.ClearPhoneNumber = b.nulls["phone_number"]

	p, err := h.profiles.Update(r.Context(), caller.ID, in)
	if err != nil {
		h.discardUpload(image)
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newProfileView(r, p))
}
