package model

import "time"

// Notification categories.
const (
	NotifyOffer    = "offer"
	NotifySchedule = "schedule"
	NotifyProof    = "proof"
	NotifyPayment  = "payment"
	NotifyComplete = "completed"
	NotifyCancel   = "cancelled"
	NotifyGoalMet  = "goal_met"
)

// Notification is an inbox message for a user about an offer or post.
type Notification struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	Category  string     `json:"category" db:"category"`
	RefType   string     `json:"ref_type" db:"ref_type"`
	RefID     string     `json:"ref_id" db:"ref_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
}
