package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/model"
	"github.com/erazemk/polyswap/internal/store"
)

// TransactionsHandler serves the caller's exchanges.
type TransactionsHandler struct {
	DB *sqlx.DB
}

// List handles GET /api/transactions?stage=.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	var stage exchange.Stage
	if raw := r.URL.Query().Get("stage"); raw != "" {
		st, err := exchange.ParseStage(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		stage = st
	}

	txs, err := store.ListTransactions(r.Context(), h.DB, userID(r), stage)
	if err != nil {
		slog.Error("error listing transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txs)
}
