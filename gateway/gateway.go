// Package gateway issues authenticated HTTP calls against the data API,
// tracks in-flight requests so they can be cancelled as a unit, and applies
// role-based limits before anything reaches the wire.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/needle-digital/dh-importer/api"
	"github.com/needle-digital/dh-importer/token"
)

// RequestKind categorizes an in-flight request.
type RequestKind string

const (
	KindAuth      RequestKind = "auth"
	KindFetchPage RequestKind = "fetch-page"
	KindOther     RequestKind = "other"
)

// TierLimitError rejects a request locally when the requested record count
// exceeds the caller's tier ceiling. The server enforces the same limit, but
// rejecting client-side gives immediate, offline-capable feedback.
type TierLimitError struct {
	Requested int
	Allowed   int
}

func (e *TierLimitError) Error() string {
	return fmt.Sprintf("requested %d records exceeds tier limit of %d", e.Requested, e.Allowed)
}

// SessionReader is the read-only view of the session the gateway needs.
type SessionReader interface {
	AccessToken() (string, bool)
	Authenticated() bool
	Role() token.Role
}

type inflight struct {
	id     string
	kind   RequestKind
	cancel context.CancelFunc
}

// Gateway dispatches calls to the data API. All mutation of the in-flight
// set happens here; other components only trigger CancelAll through the
// session controller.
type Gateway struct {
	baseURL     string
	session     SessionReader
	client      *http.Client
	hardCeiling int
	logger      zerolog.Logger

	mu       sync.Mutex
	requests map[string]inflight
}

type Option func(*Gateway)

// WithHTTPClient overrides the transport, primarily for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.client = c
	}
}

// WithHardCeiling sets the API-wide record ceiling applied to every tier.
func WithHardCeiling(n int) Option {
	return func(g *Gateway) {
		g.hardCeiling = n
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func New(baseURL string, session SessionReader, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		session:     session,
		client:      &http.Client{Timeout: 5 * time.Minute},
		hardCeiling: 1_000_000,
		logger:      zerolog.Nop(),
		requests:    make(map[string]inflight),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// CheckTier rejects locally when the requested record count exceeds the
// current role's ceiling.
func (g *Gateway) CheckTier(requested int) error {
	allowed := g.session.Role().FetchCeiling(g.hardCeiling)
	if requested > allowed {
		return &TierLimitError{Requested: requested, Allowed: allowed}
	}
	return nil
}

// Get performs an authenticated GET against the data API and returns the
// raw body. The call is registered in the in-flight set for the whole of
// dispatch and body read, so CancelAll aborts it at any point.
func (g *Gateway) Get(ctx context.Context, kind RequestKind, endpoint string, query url.Values, requiresAuth bool) ([]byte, error) {
	bearer := ""
	if requiresAuth {
		accessToken, ok := g.session.AccessToken()
		if !ok || !g.session.Authenticated() {
			return nil, errors.Wrap(api.ErrUnauthenticated, "no valid session")
		}
		bearer = accessToken
	}

	requestURL := g.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	callCtx, cancel := context.WithCancel(ctx)
	id := g.register(kind, cancel)
	defer g.unregister(id)

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Get] build request")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, callCtx.Err()
		}
		return nil, errors.Wrap(api.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, callCtx.Err()
		}
		return nil, errors.Wrap(api.ErrNetwork, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrap(api.ErrUnauthenticated, resp.Status)
	case resp.StatusCode >= 400:
		return nil, &api.ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	return body, nil
}

// GetJSON is Get plus a JSON decode into out.
func (g *Gateway) GetJSON(ctx context.Context, kind RequestKind, endpoint string, query url.Values, requiresAuth bool, out any) error {
	body, err := g.Get(ctx, kind, endpoint, query, requiresAuth)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "[Gateway.GetJSON] decode response")
	}
	return nil
}

// CancelAll aborts every registered in-flight call and clears the set.
// Safe to call when the set is empty.
func (g *Gateway) CancelAll() {
	g.mu.Lock()
	cancelled := make([]inflight, 0, len(g.requests))
	for _, r := range g.requests {
		cancelled = append(cancelled, r)
	}
	g.requests = make(map[string]inflight)
	g.mu.Unlock()

	for _, r := range cancelled {
		r.cancel()
	}
	if len(cancelled) > 0 {
		g.logger.Debug().Int("count", len(cancelled)).Msg("cancelled in-flight requests")
	}
}

// InFlightCount reports the size of the in-flight set.
func (g *Gateway) InFlightCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *Gateway) register(kind RequestKind, cancel context.CancelFunc) string {
	id := uuid.NewString()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests[id] = inflight{id: id, kind: kind, cancel: cancel}
	return id
}

func (g *Gateway) unregister(id string) {
	g.mu.Lock()
	r, ok := g.requests[id]
	delete(g.requests, id)
	g.mu.Unlock()
	if ok {
		r.cancel()
	}
}
