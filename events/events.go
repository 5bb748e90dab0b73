package events

import "github.com/needle-digital/dh-importer/token"

// The core emits a small set of typed events to registered listeners.
// The UI layer owns all rendering decisions; nothing here knows about
// widgets or dialogs.

// SessionChanged fires whenever the authentication state flips or the
// role tier changes.
type SessionChanged struct {
	Authenticated bool
	Role          token.Role
}

// SessionExpired fires exactly once when an expired token is detected and
// the session has been torn down through the logout path.
type SessionExpired struct{}

// LoginRequired fires when an operation needed credentials and none were
// available; the UI should present the login surface.
type LoginRequired struct{}

// LogoutCompleted fires after every sub-step of a logout has run. Listeners
// use it to clear authentication-dependent state such as fetched datasets.
type LogoutCompleted struct{}

// FetchProgress fires after every page of a dataset fetch.
type FetchProgress struct {
	Kind    string
	Fetched int
	Total   int
}

// FetchError fires when a fetch fails for a reason the user should see.
// Cancellation is a normal termination and never produces a FetchError.
type FetchError struct {
	Kind    string
	Message string
}

// Status carries a human-readable progress message for a status bar.
type Status struct {
	Message string
}
