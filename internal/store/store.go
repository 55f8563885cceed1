// Package store defines the key-value contract the relief engine persists through.
//
// Values are opaque strings (JSON-encoded collections). A write fully replaces
// the previous value for the key; there is no merge. The shared flag selects
// community-visible state versus state scoped to the current voter device.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Keys used by the engine.
const (
	KeyDonations = "donations"  // shared
	KeyProposals = "proposals"  // shared
	KeyUserVotes = "user_votes" // per device
)

const (
	sharedScope  = "shared"
	devicePrefix = "device:"
)

// Store is the persistent store adapter.
type Store interface {
	// Get returns the stored value, found=false when the key is absent.
	Get(ctx context.Context, key string, shared bool) (value string, found bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string, shared bool) error
}

// Closer is implemented by stores holding connections.
type Closer interface {
	Close() error
}

// Uncached strips caching decorators so reads reach the backend. Readers of
// values written by other processes must not be served from a local cache.
func Uncached(s Store) Store {
	for {
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

// Scope returns the namespace a key lives in.
func Scope(shared bool, deviceID string) string {
	if shared {
		return sharedScope
	}
	return devicePrefix + deviceID
}

// ValidateDeviceID rejects device ids that would collide with the shared scope
// or break key composition.
func ValidateDeviceID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("device id cannot be empty")
	}
	if strings.ContainsAny(id, ": \t\n") {
		return fmt.Errorf("device id %q must not contain ':' or whitespace", id)
	}
	return nil
}
