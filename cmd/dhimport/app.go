package main

import (
	"net/http"
	"net/url"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/needle-digital/dh-importer/api"
	"github.com/needle-digital/dh-importer/dataset"
	"github.com/needle-digital/dh-importer/events"
	"github.com/needle-digital/dh-importer/fetch"
	"github.com/needle-digital/dh-importer/gateway"
	"github.com/needle-digital/dh-importer/internal/config"
	"github.com/needle-digital/dh-importer/internal/logging"
	"github.com/needle-digital/dh-importer/session"
	"github.com/needle-digital/dh-importer/settings"
)

// app wires every component for a CLI invocation. The session controller is
// the only writer of session state; the fetch orchestrator is the only
// writer of dataset state.
type app struct {
	cfg        *config.AppConfig
	logger     zerolog.Logger
	bus        *events.Bus
	store      *session.Store
	controller *session.Controller
	gateway    *gateway.Gateway
	datasets   *dataset.Manager
	fetcher    *fetch.Orchestrator
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Environment)

	settingsStore, err := settings.NewFileStore(cfg.Settings.Path, settingsPassphrase())
	if err != nil {
		return nil, errors.Wrap(err, "open settings store")
	}

	identity := api.NewIdentityClient(
		keyedURL(cfg.Identity.SignInURL, cfg.Identity.APIKey),
		keyedURL(cfg.Identity.RefreshURL, cfg.Identity.APIKey),
	)

	bus := events.NewBus()
	store := session.NewStore()
	gw := gateway.New(cfg.API.BaseURL, store,
		gateway.WithHardCeiling(cfg.Fetch.HardCeiling),
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		gateway.WithLogger(logger),
	)

	controller, err := session.NewController(store, identity, settingsStore, gw, bus,
		session.WithRefreshLead(cfg.Identity.RefreshLead),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	datasets := dataset.NewManager(cfg.Display.Ceiling, cfg.Display.RecordsPerPage)
	fetcher := fetch.New(gw, datasets, controller, bus,
		fetch.WithPageLimit(cfg.Fetch.PageLimit),
		fetch.WithChunking(cfg.Fetch.ChunkSize, cfg.Fetch.ChunkThreshold),
		fetch.WithLogger(logger),
	)

	// Logout, however triggered, empties every dataset tab.
	bus.OnLogoutCompleted(func(events.LogoutCompleted) {
		datasets.ClearOnLogout()
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		bus:        bus,
		store:      store,
		controller: controller,
		gateway:    gw,
		datasets:   datasets,
		fetcher:    fetcher,
	}, nil
}

func (a *app) Close() {
	a.controller.Close()
}

// keyedURL appends the identity project key the way the hosted endpoints
// expect it.
func keyedURL(base, apiKey string) string {
	if apiKey == "" {
		return base
	}
	return base + "?key=" + url.QueryEscape(apiKey)
}

// settingsPassphrase keys the encrypted settings file. Overridable so
// shared machines can isolate their stores.
func settingsPassphrase() string {
	if p := os.Getenv("NEEDLE_SETTINGS_PASSPHRASE"); p != "" {
		return p
	}
	host, err := os.Hostname()
	if err != nil {
		host = "local"
	}
	return "dh-importer/" + host
}
