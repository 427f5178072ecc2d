package id

import "github.com/google/uuid"

// New returns a time-ordered identifier: ids generated later sort after
// earlier ones, both as UUIDs and as strings.
func New() string {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v.String()
}
