package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/needle-digital/dh-importer/api"
	"github.com/needle-digital/dh-importer/gateway"
	"github.com/needle-digital/dh-importer/session"
	"github.com/needle-digital/dh-importer/token"
)

func authenticatedStore(t *testing.T, role token.Role) *session.Store {
	t.Helper()
	store := session.NewStore()
	store.Set(session.Snapshot{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		Role:         role,
		LastIdentity: "john.doe@example.com",
	})
	return store
}

func TestGet_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	g := gateway.New(srv.URL, authenticatedStore(t, token.RolePremium))
	body, err := g.Get(context.Background(), gateway.KindOther, "plugin/fetch_hole_type", nil, true)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": true}`, string(body))
	require.Equal(t, "Bearer access-token", gotAuth)
}

func TestGet_FailsFastWithoutSession(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	g := gateway.New(srv.URL, session.NewStore())
	_, err := g.Get(context.Background(), gateway.KindFetchPage, "plugin/fetch_drill_holes", nil, true)
	require.True(t, errors.Is(err, api.ErrUnauthenticated))
	require.Zero(t, calls.Load(), "unauthenticated request must never reach the wire")
}

func TestGet_MapsUpstreamStatuses(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	g := gateway.New(srv.URL, authenticatedStore(t, token.RolePremium))

	_, err := g.Get(context.Background(), gateway.KindFetchPage, "plugin/fetch_drill_holes", nil, true)
	require.True(t, errors.Is(err, api.ErrUnauthenticated))

	status = http.StatusBadGateway
	_, err = g.Get(context.Background(), gateway.KindFetchPage, "plugin/fetch_drill_holes", nil, true)
	var serverErr *api.ServerError
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, http.StatusBadGateway, serverErr.Status)
}

func TestCheckTier(t *testing.T) {
	g := gateway.New("http://unused", authenticatedStore(t, token.RoleFreeTrial))

	err := g.CheckTier(2000)
	var tierErr *gateway.TierLimitError
	require.True(t, errors.As(err, &tierErr))
	require.Equal(t, 2000, tierErr.Requested)
	require.Equal(t, 1000, tierErr.Allowed)

	require.NoError(t, g.CheckTier(1000))

	premium := gateway.New("http://unused", authenticatedStore(t, token.RolePremium))
	require.NoError(t, premium.CheckTier(2000))

	capped := gateway.New("http://unused", authenticatedStore(t, token.RoleAdmin), gateway.WithHardCeiling(500_000))
	err = capped.CheckTier(600_000)
	require.True(t, errors.As(err, &tierErr))
	require.Equal(t, 500_000, tierErr.Allowed)
}

func TestCancelAll_AbortsInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	g := gateway.New(srv.URL, authenticatedStore(t, token.RolePremium))

	errCh := make(chan error, 1)
	go func() {
		_, err := g.Get(context.Background(), gateway.KindFetchPage, "plugin/fetch_drill_holes", url.Values{"limit": {"100"}}, true)
		errCh <- err
	}()

	<-started
	require.Equal(t, 1, g.InFlightCount())
	g.CancelAll()

	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}
	require.Zero(t, g.InFlightCount())
}

func TestCancelAll_EmptySetIsSafe(t *testing.T) {
	g := gateway.New("http://unused", session.NewStore())
	g.CancelAll()
	g.CancelAll()
	require.Zero(t, g.InFlightCount())
}

func TestGet_UnregistersAfterCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := gateway.New(srv.URL, authenticatedStore(t, token.RolePremium))
	_, err := g.Get(context.Background(), gateway.KindOther, "companies/search", nil, true)
	require.NoError(t, err)
	require.Zero(t, g.InFlightCount())
}
