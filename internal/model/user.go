package model

import (
	"fmt"
	"strings"
	"time"
)

// User is a marketplace participant. Authentication lives outside this
// service; a user is identified by the subject of a bearer token.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PhotoURL  string    `json:"photo_url,omitempty" db:"photo_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MaxNameLength is the longest display name accepted.
const MaxNameLength = 80

// ValidateName checks that a display name is non-blank and not too long.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}
