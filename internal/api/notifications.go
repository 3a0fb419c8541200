package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/polyswap/internal/model"
	"github.com/erazemk/polyswap/internal/notify"
)

// NotificationsHandler serves the caller's inbox.
type NotificationsHandler struct {
	Inbox *notify.Inbox
}

// List handles GET /api/notifications?unread=true.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	unread := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid unread flag")
			return
		}
		unread = v
	}

	items, err := h.Inbox.List(r.Context(), userID(r), unread)
	if err != nil {
		slog.Error("error listing notifications", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Inbox.MarkRead(r.Context(), r.PathValue("id"), userID(r))
	if err != nil {
		slog.Error("error marking notification read", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
