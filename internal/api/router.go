package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/notify"
	"github.com/erazemk/polyswap/internal/storage"
)

// Deps are the collaborators the API handlers need.
type Deps struct {
	DB        *sqlx.DB
	Engine    *exchange.Engine
	Inbox     *notify.Inbox
	Proofs    storage.Storage // nil disables photo uploads
	JWTSecret string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	usersHandler := &UsersHandler{DB: deps.DB}
	postsHandler := &PostsHandler{DB: deps.DB, Engine: deps.Engine}
	offersHandler := &OffersHandler{Engine: deps.Engine, Proofs: deps.Proofs}
	transactionsHandler := &TransactionsHandler{DB: deps.DB}
	notificationsHandler := &NotificationsHandler{Inbox: deps.Inbox}

	authMW := AuthMiddleware(deps.JWTSecret, deps.DB)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Users.
	mux.Handle("GET /api/me", authed(usersHandler.Me))
	mux.Handle("PUT /api/me", authed(usersHandler.UpdateMe))
	mux.Handle("GET /api/users/{id}", authed(usersHandler.Get))

	// Posts.
	mux.Handle("GET /api/posts", authed(postsHandler.List))
	mux.Handle("POST /api/posts", authed(postsHandler.Create))
	mux.Handle("GET /api/posts/{id}", authed(postsHandler.Get))
	mux.Handle("POST /api/posts/{id}/close", authed(postsHandler.Close))
	mux.Handle("GET /api/posts/{id}/offers", authed(postsHandler.ListOffers))
	mux.Handle("POST /api/posts/{id}/offers", authed(postsHandler.SubmitOffer))

	// Offers and their lifecycle.
	mux.Handle("GET /api/offers/{id}", authed(offersHandler.Get))
	mux.Handle("DELETE /api/offers/{id}", authed(offersHandler.Delete))
	mux.Handle("POST /api/offers/{id}/accept", authed(offersHandler.Accept))
	mux.Handle("POST /api/offers/{id}/decline", authed(offersHandler.Decline))
	mux.Handle("POST /api/offers/{id}/schedule", authed(offersHandler.CreateSchedule))
	mux.Handle("PUT /api/offers/{id}/schedule", authed(offersHandler.EditSchedule))
	mux.Handle("POST /api/offers/{id}/schedule/agree", authed(offersHandler.AgreeToSchedule))
	mux.Handle("POST /api/offers/{id}/proof", authed(offersHandler.UploadProof))
	mux.Handle("POST /api/offers/{id}/proof/confirm", authed(offersHandler.ConfirmProof))
	mux.Handle("POST /api/offers/{id}/payment", authed(offersHandler.MarkPayment))
	mux.Handle("POST /api/offers/{id}/complete", authed(offersHandler.Complete))
	mux.Handle("POST /api/offers/{id}/cancel", authed(offersHandler.Cancel))

	// Read models.
	mux.Handle("GET /api/transactions", authed(transactionsHandler.List))
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("POST /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))

	return mux
}
