package model

import "time"

// Transaction is a display-only view joining an offer, its schedule, its post
// and both parties. It is derived on read and never written.
type Transaction struct {
	OfferID        string    `json:"offer_id" db:"offer_id"`
	PostID         string    `json:"post_id" db:"post_id"`
	PostTitle      string    `json:"post_title" db:"post_title"`
	Category       Category  `json:"category" db:"category"`
	SellerID       string    `json:"seller_id" db:"seller_id"`
	SellerName     string    `json:"seller_name" db:"seller_name"`
	SellerPhoto    string    `json:"seller_photo,omitempty" db:"seller_photo"`
	BuyerID        string    `json:"buyer_id" db:"buyer_id"`
	BuyerName      string    `json:"buyer_name" db:"buyer_name"`
	BuyerPhoto     string    `json:"buyer_photo,omitempty" db:"buyer_photo"`
	OfferedWeight  float64   `json:"offered_weight" db:"offered_weight"`
	Price          float64   `json:"price,omitempty" db:"price"`
	OfferStatus    string    `json:"offer_status" db:"offer_status"`
	ScheduleStatus string    `json:"schedule_status,omitempty" db:"schedule_status"`
	ScheduledDate  string    `json:"scheduled_date,omitempty" db:"scheduled_date"`
	ScheduledTime  string    `json:"scheduled_time,omitempty" db:"scheduled_time"`
	CollectionImg  string    `json:"collection_img,omitempty" db:"collection_img"`
	Stage          string    `json:"stage" db:"-"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
