package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/store"
)

// UsersHandler serves user profiles.
type UsersHandler struct {
	DB *sqlx.DB
}

// Me handles GET /api/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, userID(r))
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, r.PathValue("id"))
}

func (h *UsersHandler) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("error getting user", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

type updateMeRequest struct {
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

// UpdateMe handles PUT /api/me. Only the profile photo can change.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := userID(r)
	if err := store.UpdateUserPhoto(r.Context(), h.DB, id, req.PhotoURL); err != nil {
		slog.Error("error updating user photo", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("user photo updated", "id", id)
	h.writeUser(w, r, id)
}
