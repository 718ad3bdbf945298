package domain

import "github.com/google/uuid"

// Identity is the authenticated caller on whose behalf an operation runs.
type Identity struct {
	UserID   uuid.UUID
	Username string
}
