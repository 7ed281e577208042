package orchestrator

import (
	"github.com/google/uuid"
)

// UserIDPrefix marks participant ids generated by the harness.
const UserIDPrefix = "user_"

// GenerateUserID creates a participant identifier for a fresh run.
// Format: user_{uuid}
// Example: user_0b6c3f0e-2f55-4b0e-9c2a-6a4d6f0b1a7e
func GenerateUserID() string {
	return UserIDPrefix + uuid.NewString()
}
