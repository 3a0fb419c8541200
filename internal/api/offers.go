package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/imaging"
	"github.com/erazemk/polyswap/internal/storage"
)

// OffersHandler drives an offer through the exchange lifecycle.
type OffersHandler struct {
	Engine *exchange.Engine
	Proofs storage.Storage
}

type scheduleRequest struct {
	Date string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	Time string `json:"scheduled_time" validate:"required,datetime=15:04"`
}

type proofRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// action is an engine operation that needs no payload.
type action func(ctx context.Context, offerID, actorID string) (*exchange.Result, error)

func (h *OffersHandler) run(w http.ResponseWriter, r *http.Request, op string, fn action) {
	id := r.PathValue("id")
	res, err := fn(r.Context(), id, userID(r))
	if err != nil {
		writeEngineError(w, op, err)
		return
	}
	if res.Changed {
		slog.Info("offer updated", "op", op, "offer", id, "stage", res.Stage, "user", userID(r))
	}
	jsonResponse(w, http.StatusOK, res)
}

// Get handles GET /api/offers/{id}. Only the two participants may view it.
func (h *OffersHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.Deal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, "get offer", err)
		return
	}
	if !exchange.ResolveActor(res.Deal, userID(r)).Participant() {
		jsonError(w, http.StatusForbidden, "not a party to this offer")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Delete handles DELETE /api/offers/{id}.
func (h *OffersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Engine.DeleteOffer(r.Context(), id, userID(r)); err != nil {
		writeEngineError(w, "delete offer", err)
		return
	}
	slog.Info("offer withdrawn", "offer", id, "user", userID(r))
	w.WriteHeader(http.StatusNoContent)
}

// Accept handles POST /api/offers/{id}/accept.
func (h *OffersHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "accept offer", h.Engine.AcceptOffer)
}

// Decline handles POST /api/offers/{id}/decline.
func (h *OffersHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "decline offer", h.Engine.DeclineOffer)
}

// CreateSchedule handles POST /api/offers/{id}/schedule.
func (h *OffersHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	h.schedule(w, r, "create schedule", h.Engine.CreateSchedule)
}

// EditSchedule handles PUT /api/offers/{id}/schedule.
func (h *OffersHandler) EditSchedule(w http.ResponseWriter, r *http.Request) {
	h.schedule(w, r, "edit schedule", h.Engine.EditSchedule)
}

func (h *OffersHandler) schedule(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, offerID, actorID, date, clock string) (*exchange.Result, error)) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.run(w, r, op, func(ctx context.Context, offerID, actorID string) (*exchange.Result, error) {
		return fn(ctx, offerID, actorID, req.Date, req.Time)
	})
}

// AgreeToSchedule handles POST /api/offers/{id}/schedule/agree.
func (h *OffersHandler) AgreeToSchedule(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "agree to schedule", h.Engine.AgreeToSchedule)
}

// ConfirmProof handles POST /api/offers/{id}/proof/confirm.
func (h *OffersHandler) ConfirmProof(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "confirm proof", h.Engine.ConfirmProof)
}

// MarkPayment handles POST /api/offers/{id}/payment.
func (h *OffersHandler) MarkPayment(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "mark payment", h.Engine.MarkPayment)
}

// Complete handles POST /api/offers/{id}/complete.
func (h *OffersHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "complete transaction", h.Engine.CompleteTransaction)
}

// Cancel handles POST /api/offers/{id}/cancel.
func (h *OffersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "cancel transaction", h.Engine.CancelTransaction)
}

// UploadProof handles POST /api/offers/{id}/proof. It accepts either a
// multipart "image" file, stored through the proof storage, or a JSON body
// naming an already hosted image.
func (h *OffersHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req proofRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.run(w, r, "upload proof", func(ctx context.Context, offerID, actorID string) (*exchange.Result, error) {
			return h.Engine.UploadProof(ctx, offerID, actorID, req.ImageURL)
		})
		return
	}

	if h.Proofs == nil {
		jsonError(w, http.StatusNotImplemented, "photo uploads are not configured")
		return
	}

	// Check the caller may upload before storing anything.
	id, uid := r.PathValue("id"), userID(r)
	current, err := h.Engine.Deal(r.Context(), id)
	if err != nil {
		writeEngineError(w, "upload proof", err)
		return
	}
	if !exchange.ResolveActor(current.Deal, uid).Handoff {
		jsonError(w, http.StatusForbidden, "only the party handing over the material may upload proof")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.NormalizeProof(file)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("error processing proof image", "offer", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to process image")
		return
	}

	obj, err := h.Proofs.PutProof(r.Context(), id, photo.Data, photo.MIME)
	if err != nil {
		slog.Error("error storing proof image", "offer", id, "error", err)
		jsonError(w, http.StatusBadGateway, "failed to store image")
		return
	}

	res, err := h.Engine.UploadProof(r.Context(), id, uid, obj.URL)
	if err != nil || !res.Changed {
		h.discard(obj)
	}
	if err != nil {
		writeEngineError(w, "upload proof", err)
		return
	}
	if res.Changed {
		slog.Info("proof uploaded", "offer", id, "object", obj.Name, "width", photo.Width, "height", photo.Height)
	}
	jsonResponse(w, http.StatusOK, res)
}

// discard removes a stored photo that was not attached to the offer.
func (h *OffersHandler) discard(obj *storage.Object) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Proofs.RemoveProof(ctx, obj.Name); err != nil {
		slog.Warn("failed to remove unattached proof", "object", obj.Name, "error", err)
	}
}
