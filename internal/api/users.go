package api

import (
	"net/http"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/users"
)

// UsersHandler handles user administration endpoints.
type UsersHandler struct {
	Users *users.Service
}

func nonNil(list []model.User) []model.User {
	if list == nil {
		return []model.User{}
	}
	return list
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(list))
}

// Pending handles GET /api/users/pending.
func (h *UsersHandler) Pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.Pending(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(list))
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req users.Input
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.Create(r.Context(), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req users.Input
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}?confirm=delete.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), r.PathValue("id"), r.URL.Query().Get("confirm")); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// Approve handles POST /api/users/{id}/approve.
func (h *UsersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Deny handles POST /api/users/{id}/deny.
func (h *UsersHandler) Deny(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Deny(r.Context(), r.PathValue("id")); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user denied"})
}
