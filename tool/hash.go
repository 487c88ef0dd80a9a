package tool

import "github.com/google/uuid"

// GenerateRandomUUID returns a random v4 UUID, used as session ID.
func GenerateRandomUUID() string {
	return uuid.New().String()
}
