package platform

import "github.com/google/uuid"

// NewID returns a fresh event identifier.
func NewID() string {
	return uuid.New().String()
}
