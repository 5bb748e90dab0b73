package session

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/needle-digital/dh-importer/api"
	"github.com/needle-digital/dh-importer/events"
	"github.com/needle-digital/dh-importer/settings"
	"github.com/needle-digital/dh-importer/token"
)

// AuthError taxonomy surfaced by Login.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNetworkFailure    = errors.New("network failure")
	ErrMalformedToken    = errors.New("malformed token")
)

// Persisted settings keys. These are the only keys the core ever writes to
// the external store.
const (
	KeyAccessToken  = "auth/accessToken"
	KeyRefreshToken = "auth/refreshToken"
	KeyExpiresAt    = "auth/expiresAt"
	KeyLastIdentity = "auth/lastIdentity"
)

func persistedKeys() []string {
	return []string{KeyAccessToken, KeyRefreshToken, KeyExpiresAt, KeyLastIdentity}
}

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// IdentityProvider is the identity-endpoint capability the controller
// depends on.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*api.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*api.Credentials, error)
}

// RequestCanceller aborts every in-flight request as a unit.
type RequestCanceller interface {
	CancelAll()
}

// Controller orchestrates the session lifecycle: login, logout, refresh
// scheduling and expiry validation. It is the only writer of the Store.
//
// State machine: LoggedOut -> [login success] -> LoggedIn -> [logout or
// expiry detected] -> LoggedOut. Refresh failure goes through the same
// logout path as user-initiated logout, never to a partially cleared state.
type Controller struct {
	store    *Store
	identity IdentityProvider
	settings settings.Store
	requests RequestCanceller
	bus      *events.Bus
	logger   zerolog.Logger

	refreshLead    time.Duration
	refreshTimeout time.Duration
	nowFunc        func() time.Time

	mu           sync.Mutex
	refreshTimer *time.Timer
	generation   uint64
}

type ControllerOption func(*Controller)

// WithClock sets the controller's clock (primarily for testing).
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.nowFunc = now
	}
}

// WithRefreshLead sets how long before expiry the refresh fires.
func WithRefreshLead(lead time.Duration) ControllerOption {
	return func(c *Controller) {
		c.refreshLead = lead
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController wires the controller to its collaborators. The settings
// store is injected as a capability so tests can substitute an in-memory
// fake.
func NewController(
	store *Store,
	identity IdentityProvider,
	settingsStore settings.Store,
	requests RequestCanceller,
	bus *events.Bus,
	options ...ControllerOption,
) (*Controller, error) {
	if store == nil {
		return nil, errors.New("[NewController] store is required")
	}
	if identity == nil {
		return nil, errors.New("[NewController] identity provider is required")
	}
	if settingsStore == nil {
		return nil, errors.New("[NewController] settings store is required")
	}
	if requests == nil {
		return nil, errors.New("[NewController] request canceller is required")
	}
	if bus == nil {
		return nil, errors.New("[NewController] event bus is required")
	}

	c := &Controller{
		store:          store,
		identity:       identity,
		settings:       settingsStore,
		requests:       requests,
		bus:            bus,
		logger:         zerolog.Nop(),
		refreshLead:    time.Minute,
		refreshTimeout: 30 * time.Second,
		nowFunc:        time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials with the identity provider, decodes the
// returned token for role and expiry, persists the token material and
// schedules the refresh timer.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" || !emailPattern.MatchString(email) {
		return errors.Wrap(ErrInvalidCredential, "a valid email and password are required")
	}

	creds, err := c.identity.SignIn(ctx, email, password)
	if err != nil {
		return mapAuthError(err, "[Controller.Login] SignIn")
	}

	if err := c.applyCredentials(creds, email); err != nil {
		return err
	}

	c.logger.Info().Str("identity", email).Str("role", string(c.store.Role())).Msg("login succeeded")
	return nil
}

// applyCredentials decodes the access token, installs the session, persists
// token material and schedules the next refresh. Shared by login, silent
// restore and the refresh timer.
func (c *Controller) applyCredentials(creds *api.Credentials, identity string) error {
	claims, err := token.Decode(creds.AccessToken)
	if err != nil {
		return errors.Wrap(ErrMalformedToken, err.Error())
	}

	expiresAt := claims.ExpiresAt
	if !expiresAt.After(c.nowFunc()) {
		// Issuers that omit a useful exp still report a TTL alongside the
		// token; fall back to that rather than installing a dead session.
		expiresAt = c.nowFunc().Add(creds.ExpiresIn)
	}

	if identity == "" {
		identity = claims.Email
	}

	c.store.Set(Snapshot{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    expiresAt,
		Role:         claims.Role,
		LastIdentity: identity,
	})

	c.persist(creds, expiresAt, identity)
	c.scheduleRefresh(expiresAt)

	c.bus.PublishSessionChanged(events.SessionChanged{Authenticated: true, Role: claims.Role})
	return nil
}

// persist writes the four token keys. Persistence failures degrade the
// restart experience but never fail a live login, so they are only logged.
func (c *Controller) persist(creds *api.Credentials, expiresAt time.Time, identity string) {
	pairs := map[string]string{
		KeyAccessToken:  creds.AccessToken,
		KeyRefreshToken: creds.RefreshToken,
		KeyExpiresAt:    strconv.FormatInt(expiresAt.Unix(), 10),
		KeyLastIdentity: identity,
	}
	for key, value := range pairs {
		if err := c.settings.Set(key, value); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to persist session key")
		}
	}
}

// Logout tears the session down. It is idempotent and total: every sub-step
// runs regardless of current state and the aggregate always succeeds.
// Dataset state is cleared by the UI collaborator on LogoutCompleted, not
// here; the controller owns auth state only.
func (c *Controller) Logout() {
	c.logout(false)
}

func (c *Controller) logout(expired bool) {
	c.bumpGeneration()
	c.stopRefreshTimer()
	c.store.Clear()
	c.requests.CancelAll()

	for _, key := range persistedKeys() {
		if err := c.settings.Remove(key); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to remove persisted key")
		}
	}

	c.bus.PublishSessionChanged(events.SessionChanged{Authenticated: false, Role: token.RoleUnset})
	if expired {
		c.bus.PublishSessionExpired(events.SessionExpired{})
	}
	c.bus.PublishLogoutCompleted(events.LogoutCompleted{})

	c.logger.Debug().Bool("expired", expired).Msg("session cleared")
}

// IsAuthenticated reports whether a token is set and unexpired.
func (c *Controller) IsAuthenticated() bool {
	return c.store.Authenticated()
}

// ValidateAndLogoutIfExpired is called at every dialog-show/focus event.
// If a token is present but expired, it runs the shared logout path and
// signals session expiry exactly once. Returns whether a logout occurred.
func (c *Controller) ValidateAndLogoutIfExpired() bool {
	snap := c.store.Snapshot()
	if snap.AccessToken == "" {
		return false
	}
	if c.store.Authenticated() {
		return false
	}
	c.logout(true)
	return true
}

// HandleLoginRequired performs a defensive logout so no stale token can leak
// into a subsequent login, then asks the UI to present the login surface.
func (c *Controller) HandleLoginRequired() {
	c.logout(false)
	c.bus.PublishLoginRequired(events.LoginRequired{})
}

// RestoreSession attempts a silent refresh from a persisted refresh token.
// Absence of a token or a failed refresh leaves the controller LoggedOut
// without any user-facing noise.
func (c *Controller) RestoreSession(ctx context.Context) {
	refreshToken, err := c.settings.Get(KeyRefreshToken)
	if err != nil || refreshToken == "" {
		return
	}

	identity, _ := c.settings.Get(KeyLastIdentity)

	creds, err := c.identity.Refresh(ctx, refreshToken)
	if err != nil {
		c.logger.Debug().Err(err).Msg("silent session restore failed")
		return
	}
	if err := c.applyCredentials(creds, identity); err != nil {
		c.logger.Debug().Err(err).Msg("silent session restore produced unusable token")
	}
}

// refreshNow runs on the refresh timer. Failure transitions to LoggedOut
// through the shared logout path. The generation guard keeps a refresh
// whose round-trip overlapped a logout from re-installing the session.
func (c *Controller) refreshNow() {
	snap := c.store.Snapshot()
	if snap.RefreshToken == "" {
		return
	}
	gen := c.sessionGeneration()

	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	creds, err := c.identity.Refresh(ctx, snap.RefreshToken)
	if c.sessionGeneration() != gen {
		c.logger.Debug().Msg("discarding refresh result, logged out during refresh")
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("token refresh failed, logging out")
		c.logout(true)
		return
	}
	if err := c.applyCredentials(creds, snap.LastIdentity); err != nil {
		c.logger.Warn().Err(err).Msg("refreshed token unusable, logging out")
		c.logout(true)
	}
}

func (c *Controller) scheduleRefresh(expiresAt time.Time) {
	delay := expiresAt.Sub(c.nowFunc()) - c.refreshLead
	if delay < 0 {
		delay = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	c.refreshTimer = time.AfterFunc(delay, c.refreshNow)
}

// bumpGeneration marks every earlier in-flight refresh as stale.
func (c *Controller) bumpGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
}

func (c *Controller) sessionGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Controller) stopRefreshTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

// Close stops the refresh timer. The controller is not usable afterwards.
func (c *Controller) Close() {
	c.stopRefreshTimer()
}

// mapAuthError folds wire-level failures into the AuthError taxonomy.
func mapAuthError(err error, context string) error {
	switch {
	case errors.Is(err, api.ErrInvalidCredential):
		return errors.Wrap(ErrInvalidCredential, err.Error())
	case errors.Is(err, api.ErrNetwork):
		return errors.Wrap(ErrNetworkFailure, err.Error())
	default:
		var serverErr *api.ServerError
		if errors.As(err, &serverErr) {
			return errors.Wrap(ErrNetworkFailure, serverErr.Error())
		}
		return errors.Wrap(err, context)
	}
}
