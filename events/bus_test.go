package events_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/needle-digital/dh-importer/events"
	"github.com/needle-digital/dh-importer/token"
)

func TestBus_DispatchesToAllListeners(t *testing.T) {
	bus := events.NewBus()

	var first, second []events.SessionChanged
	bus.OnSessionChanged(func(e events.SessionChanged) { first = append(first, e) })
	bus.OnSessionChanged(func(e events.SessionChanged) { second = append(second, e) })

	bus.PublishSessionChanged(events.SessionChanged{Authenticated: true, Role: token.RolePremium})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	require.Equal(t, token.RolePremium, first[0].Role)
	require.True(t, first[0].Authenticated)
}

func TestBus_NoListenersIsSafe(t *testing.T) {
	bus := events.NewBus()
	bus.PublishLogoutCompleted(events.LogoutCompleted{})
	bus.PublishFetchError(events.FetchError{Kind: "Holes", Message: "boom"})
}

func TestBus_ProgressOrdering(t *testing.T) {
	bus := events.NewBus()

	var got []int
	bus.OnFetchProgress(func(e events.FetchProgress) { got = append(got, e.Fetched) })

	for _, fetched := range []int{50, 100, 150, 200} {
		bus.PublishFetchProgress(events.FetchProgress{Kind: "Assays", Fetched: fetched, Total: 200})
	}

	require.Equal(t, []int{50, 100, 150, 200}, got)
}
