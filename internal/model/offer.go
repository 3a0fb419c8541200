package model

import "time"

// Offer statuses. An offer is "open" while pending or accepted.
const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusDeclined  = "declined"
	OfferStatusCancelled = "cancelled"
	OfferStatusCompleted = "completed"
)

// Offer is a counterparty's proposal against a post. SellerID is always the
// material source and BuyerID the collector, whatever the post category.
type Offer struct {
	ID              string     `json:"id" db:"id"`
	PostID          string     `json:"post_id" db:"post_id"`
	SellerID        string     `json:"seller_id" db:"seller_id"`
	BuyerID         string     `json:"buyer_id" db:"buyer_id"`
	ResponderID     string     `json:"responder_id" db:"responder_id"`
	OfferedItems    StringList `json:"offered_items" db:"offered_items"`
	OfferedWeight   float64    `json:"offered_weight" db:"offered_weight"`
	RequestedWeight float64    `json:"requested_weight,omitempty" db:"requested_weight"`
	Price           float64    `json:"price,omitempty" db:"price"`
	Message         string     `json:"message,omitempty" db:"message"`
	Images          StringList `json:"images" db:"images"`
	Status          string     `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Schedule is the collection logistics record of an accepted offer. Once it
// exists its Status is the authoritative stage of the exchange.
type Schedule struct {
	OfferID       string    `json:"offer_id" db:"offer_id"`
	PostID        string    `json:"post_id" db:"post_id"`
	OffererID     string    `json:"offerer_id" db:"offerer_id"`
	CollectorID   string    `json:"collector_id" db:"collector_id"`
	ProposedBy    string    `json:"proposed_by" db:"proposed_by"`
	ScheduledDate string    `json:"scheduled_date" db:"scheduled_date"`
	ScheduledTime string    `json:"scheduled_time" db:"scheduled_time"`
	Status        string    `json:"status" db:"status"`
	CollectionImg string    `json:"collection_img,omitempty" db:"collection_img"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Schedule date and time layouts.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)
