package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/polyswap/internal/exchange"
)

var validate = validator.New()

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target and validates
// its struct tags.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s", verrs[0].Field())
		}
		return err
	}
	return nil
}

// writeEngineError maps exchange error kinds to HTTP statuses.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exchange.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, exchange.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrInvalidTransition),
		errors.Is(err, exchange.ErrDuplicateActiveOffer),
		errors.Is(err, exchange.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, exchange.ErrUpstream):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		slog.Error("exchange operation failed", "op", op, "error", err)
		jsonError(w, status, op+" failed")
		return
	}
	jsonError(w, status, err.Error())
}
