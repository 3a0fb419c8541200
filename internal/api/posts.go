package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/model"
	"github.com/erazemk/polyswap/internal/store"
)

// PostsHandler handles post endpoints and offer submission.
type PostsHandler struct {
	DB     *sqlx.DB
	Engine *exchange.Engine
}

type createPostRequest struct {
	Category       string   `json:"category" validate:"required,oneof=SEEKING SELLING"`
	Title          string   `json:"title" validate:"required,max=120"`
	Description    string   `json:"description" validate:"max=2000"`
	TotalWeight    float64  `json:"total_weight" validate:"gt=0"`
	Price          float64  `json:"price" validate:"gte=0"`
	CollectionMode string   `json:"collection_mode" validate:"omitempty,oneof=meetup pickup dropoff"`
	Location       string   `json:"location" validate:"max=200"`
	ItemTypes      []string `json:"item_types" validate:"omitempty,dive,required"`
	Photos         []string `json:"photos" validate:"omitempty,dive,url"`
}

type submitOfferRequest struct {
	OfferedItems    []string `json:"offered_items" validate:"omitempty,dive,required"`
	OfferedWeight   float64  `json:"offered_weight" validate:"gt=0"`
	RequestedWeight float64  `json:"requested_weight" validate:"gte=0"`
	Price           float64  `json:"price" validate:"gte=0"`
	Message         string   `json:"message" validate:"max=1000"`
	Images          []string `json:"images" validate:"omitempty,dive,url"`
}

// List handles GET /api/posts?status=&category=&owner=.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := model.Category(q.Get("category"))
	if category != "" && !category.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid category")
		return
	}
	owner := q.Get("owner")
	if owner == "me" {
		owner = userID(r)
	}

	posts, err := store.ListPosts(r.Context(), h.DB, q.Get("status"), category, owner)
	if err != nil {
		slog.Error("error listing posts", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	jsonResponse(w, http.StatusOK, posts)
}

// Create handles POST /api/posts.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := store.CreatePost(r.Context(), h.DB, userID(r), store.PostInput{
		Category:       model.Category(req.Category),
		Title:          req.Title,
		Description:    req.Description,
		TotalWeight:    req.TotalWeight,
		Price:          req.Price,
		CollectionMode: req.CollectionMode,
		Location:       req.Location,
		ItemTypes:      req.ItemTypes,
		Photos:         req.Photos,
	})
	if err != nil {
		slog.Error("error creating post", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("post created", "id", post.ID, "owner", post.OwnerID, "category", post.Category)
	jsonResponse(w, http.StatusCreated, post)
}

// Get handles GET /api/posts/{id}.
func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, post)
}

// Close handles POST /api/posts/{id}/close.
func (h *PostsHandler) Close(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	if post.OwnerID != userID(r) {
		jsonError(w, http.StatusForbidden, "only the owner may close a post")
		return
	}

	closed, err := store.ClosePost(r.Context(), h.DB, post.ID, post.OwnerID)
	if err != nil {
		slog.Error("error closing post", "id", post.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !closed {
		jsonError(w, http.StatusConflict, "post is already closed")
		return
	}

	slog.Info("post closed", "id", post.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"status": model.PostStatusClosed})
}

// ListOffers handles GET /api/posts/{id}/offers. The owner sees every offer,
// anyone else only their own.
func (h *PostsHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}

	offers, err := store.ListOffersForPost(r.Context(), h.DB, post.ID)
	if err != nil {
		slog.Error("error listing offers", "post", post.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	uid := userID(r)
	visible := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		if post.OwnerID == uid || o.ResponderID == uid {
			visible = append(visible, o)
		}
	}
	jsonResponse(w, http.StatusOK, visible)
}

// SubmitOffer handles POST /api/posts/{id}/offers.
func (h *PostsHandler) SubmitOffer(w http.ResponseWriter, r *http.Request) {
	var req submitOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Engine.SubmitOffer(r.Context(), r.PathValue("id"), userID(r), exchange.OfferInput{
		OfferedItems:    req.OfferedItems,
		OfferedWeight:   req.OfferedWeight,
		RequestedWeight: req.RequestedWeight,
		Price:           req.Price,
		Message:         req.Message,
		Images:          req.Images,
	})
	if err != nil {
		writeEngineError(w, "submit offer", err)
		return
	}

	slog.Info("offer submitted", "offer", res.Deal.Offer.ID, "post", res.Deal.Post.ID, "responder", res.Deal.Offer.ResponderID)
	jsonResponse(w, http.StatusCreated, res)
}

func (h *PostsHandler) loadPost(w http.ResponseWriter, r *http.Request) (*model.Post, bool) {
	id := r.PathValue("id")
	post, err := store.GetPost(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("error getting post", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if post == nil {
		jsonError(w, http.StatusNotFound, "post not found")
		return nil, false
	}
	return post, true
}
