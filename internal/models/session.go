package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a login session backing one bearer token.
type Session struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
