package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new time-ordered unique identifier, so ids issued for
// one auction sort in issue order
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ValidID reports whether s looks like an id produced by GenerateID
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
