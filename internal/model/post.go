package model

import "time"

// Category decides which side of the exchange the post owner is on and who
// performs the physical hand-off.
type Category string

// Post categories.
const (
	CategorySeeking Category = "SEEKING"
	CategorySelling Category = "SELLING"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategorySeeking || c == CategorySelling
}

// Collection modes.
const (
	CollectionMeetup  = "meetup"
	CollectionPickup  = "pickup"
	CollectionDropoff = "dropoff"
)

// Post statuses.
const (
	PostStatusActive = "active"
	PostStatusClosed = "closed"
)

// Post is a listing of recyclable material.
type Post struct {
	ID              string     `json:"id" db:"id"`
	OwnerID         string     `json:"owner_id" db:"owner_id"`
	Category        Category   `json:"category" db:"category"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description,omitempty" db:"description"`
	TotalWeight     float64    `json:"total_weight" db:"total_weight"`
	RemainingWeight float64    `json:"remaining_weight" db:"remaining_weight"`
	Price           float64    `json:"price,omitempty" db:"price"`
	CollectionMode  string     `json:"collection_mode" db:"collection_mode"`
	Location        string     `json:"location,omitempty" db:"location"`
	ItemTypes       StringList `json:"item_types" db:"item_types"`
	Photos          StringList `json:"photos" db:"photos"`
	Status          string     `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// GoalMet reports whether the requested or available weight has been fully
// taken up by accepted offers.
func (p *Post) GoalMet() bool {
	return p.RemainingWeight <= 0
}
