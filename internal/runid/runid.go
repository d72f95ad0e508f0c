// Package runid tags every RunSystem invocation with a unique identifier
// so logs and trace reports from concurrent or successive runs don't
// bleed into each other.
package runid

import "github.com/google/uuid"

// New returns a fresh run identifier.
func New() string {
	return uuid.NewString()
}
