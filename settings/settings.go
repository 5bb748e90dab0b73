package settings

import "errors"

// ErrNotFound is returned by Get for keys that have never been set or have
// been removed.
var ErrNotFound = errors.New("settings key not found")

// Store is the persisted settings capability handed to the session
// controller at construction. The core uses it exclusively for token
// material; implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}
