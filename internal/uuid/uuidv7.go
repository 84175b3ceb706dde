// Package uuid generates and checks the time-ordered identifiers used as
// primary keys for users, invoices and audit entries.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7. The 48-bit millisecond prefix keeps ids
// roughly in creation order, which the invoice listing relies on as a
// tie-breaker.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to standard UUIDv4 if random generation fails
		return googleuuid.New().String()
	}
	return id.String()
}

// IsValid checks if a string is a valid UUID in canonical form.
func IsValid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := googleuuid.Parse(s)
	return err == nil
}
