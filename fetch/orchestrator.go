// Package fetch drives paginated retrieval of potentially million-record
// datasets: strict page ordering, per-page progress, cooperative
// cancellation and all-or-nothing application to dataset state.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/needle-digital/dh-importer/api"
	"github.com/needle-digital/dh-importer/dataset"
	"github.com/needle-digital/dh-importer/events"
	"github.com/needle-digital/dh-importer/gateway"
)

// ErrCancelled is the normal termination of a cancelled fetch. It is never
// surfaced to the user as a failure.
var ErrCancelled = errors.New("fetch cancelled")

// Defaults mirroring the hosted service's limits.
const (
	DefaultPageLimit      = 50_000
	DefaultChunkSize      = 10_000
	DefaultChunkThreshold = 5_000
)

// DefaultHoleTypes is the static fallback when the hole-type endpoint is
// unreachable.
var DefaultHoleTypes = []string{"RAB", "DIAMOND", "AC", "RC"}

// SessionValidator lets the orchestrator kick an expired session through the
// shared logout path when the wire reports Unauthenticated.
type SessionValidator interface {
	ValidateAndLogoutIfExpired() bool
}

// Orchestrator coordinates the page loop between the request gateway and
// the dataset state.
type Orchestrator struct {
	gw       *gateway.Gateway
	datasets *dataset.Manager
	sessions SessionValidator
	bus      *events.Bus
	logger   zerolog.Logger

	pageLimit      int
	chunkSize      int
	chunkThreshold int
	nowFunc        func() time.Time

	mu            sync.Mutex
	currentID     string
	cancelCurrent context.CancelFunc
}

type Option func(*Orchestrator)

// WithPageLimit overrides the server page size, primarily for tests.
func WithPageLimit(n int) Option {
	return func(o *Orchestrator) {
		o.pageLimit = n
	}
}

// WithChunking overrides the import chunk size and threshold.
func WithChunking(size, threshold int) Option {
	return func(o *Orchestrator) {
		o.chunkSize = size
		o.chunkThreshold = threshold
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock sets the clock used for fetch timing.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.nowFunc = now
	}
}

func New(gw *gateway.Gateway, datasets *dataset.Manager, sessions SessionValidator, bus *events.Bus, options ...Option) *Orchestrator {
	o := &Orchestrator{
		gw:             gw,
		datasets:       datasets,
		sessions:       sessions,
		bus:            bus,
		logger:         zerolog.Nop(),
		pageLimit:      DefaultPageLimit,
		chunkSize:      DefaultChunkSize,
		chunkThreshold: DefaultChunkThreshold,
		nowFunc:        time.Now,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Fetch retrieves up to requested records for a dataset kind under the given
// filters. Pages are requested and applied strictly in order; progress is
// published after every page. The fetch is atomic: on cancellation or any
// page failure the dataset state is left exactly as it was before the call,
// and on success the dataset is replaced wholesale.
func (o *Orchestrator) Fetch(ctx context.Context, kind api.DatasetKind, filters map[string]string, requested int) (*Result, error) {
	if requested <= 0 {
		requested = 100
	}

	if err := o.gw.CheckTier(requested); err != nil {
		o.bus.PublishFetchError(events.FetchError{Kind: string(kind), Message: err.Error()})
		return nil, err
	}

	fetchCtx, cancel, fetchID := o.begin(ctx)
	defer o.end(fetchID, cancel)

	o.bus.PublishStatus(events.Status{Message: fmt.Sprintf("Preparing to fetch %d records...", requested)})
	start := o.nowFunc()

	var accumulated []api.Record
	var columns []string
	contributions := map[string]int{}
	serverTotal := 0

	for len(accumulated) < requested {
		if err := fetchCtx.Err(); err != nil {
			return nil, errors.Wrap(ErrCancelled, err.Error())
		}

		limit := min(o.pageLimit, requested-len(accumulated))
		query := buildQuery(filters)
		query.Set("limit", strconv.Itoa(limit))
		query.Set("skip", strconv.Itoa(len(accumulated)))

		body, err := o.gw.Get(fetchCtx, gateway.KindFetchPage, kind.DataEndpoint(), query, true)
		if err != nil {
			return nil, o.fail(kind, err)
		}

		page, err := api.DecodeDataPage(kind, body)
		if err != nil {
			return nil, o.fail(kind, errors.Wrap(api.ErrNetwork, err.Error()))
		}

		// Page N+1 never dispatches before page N is merged here, so
		// record order always matches server order.
		accumulated = append(accumulated, page.Records...)
		if len(page.Columns) > 0 {
			columns = page.Columns
		}
		if page.TotalCount > 0 {
			serverTotal = page.TotalCount
		}
		for state, n := range page.StateContributions {
			contributions[state] += n
		}

		target := requested
		if serverTotal > 0 && serverTotal < requested {
			target = serverTotal
		}
		o.bus.PublishFetchProgress(events.FetchProgress{Kind: string(kind), Fetched: len(accumulated), Total: target})
		o.bus.PublishStatus(events.Status{Message: fmt.Sprintf("Fetching %s: %d / %d records", kind, len(accumulated), target)})

		if len(page.Records) < limit {
			break // server exhausted
		}
		if serverTotal > 0 && len(accumulated) >= serverTotal {
			break
		}
	}

	if err := fetchCtx.Err(); err != nil {
		return nil, errors.Wrap(ErrCancelled, err.Error())
	}

	details := dataset.Details{
		TotalFetched:       len(accumulated),
		RequestedCount:     requested,
		FetchTime:          o.nowFunc().Sub(start),
		StateContributions: contributions,
	}

	o.datasets.SetFilterParams(kind, filters)
	o.datasets.Replace(kind, accumulated, columns, details)

	o.logger.Info().
		Str("kind", string(kind)).
		Int("records", len(accumulated)).
		Dur("elapsed", details.FetchTime).
		Msg("fetch complete")
	o.bus.PublishStatus(events.Status{Message: fmt.Sprintf("Fetched %d records", len(accumulated))})

	return &Result{
		Kind:           kind,
		Records:        accumulated,
		Columns:        columns,
		chunkSize:      o.chunkSize,
		chunkThreshold: o.chunkThreshold,
	}, nil
}

// Cancel aborts the in-progress fetch, if any. Partially accumulated
// records are discarded by the Fetch call itself.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancelCurrent
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CountRecords asks the server how many records match the filters without
// fetching any of them.
func (o *Orchestrator) CountRecords(ctx context.Context, kind api.DatasetKind, filters map[string]string) (int, error) {
	var resp api.CountResponse
	if err := o.gw.GetJSON(ctx, gateway.KindOther, kind.CountEndpoint(), buildQuery(filters), true, &resp); err != nil {
		return 0, o.fail(kind, err)
	}
	return resp.TotalCount, nil
}

// SearchCompanies queries the company directory. Queries shorter than three
// characters return an empty result without touching the network.
func (o *Orchestrator) SearchCompanies(ctx context.Context, name string) ([]string, error) {
	if len([]rune(name)) < 3 {
		return []string{}, nil
	}

	query := url.Values{}
	query.Set("company_name", name)

	body, err := o.gw.Get(ctx, gateway.KindOther, api.EndpointCompaniesSearch, query, true)
	if err != nil {
		return nil, err
	}
	return decodeCompanyList(body)
}

// HoleTypes fetches the server-side hole type list, falling back to the
// static default when the endpoint fails.
func (o *Orchestrator) HoleTypes(ctx context.Context) []string {
	body, err := o.gw.Get(ctx, gateway.KindOther, api.EndpointHoleTypes, nil, true)
	if err != nil {
		o.logger.Debug().Err(err).Msg("hole type lookup failed, using defaults")
		return DefaultHoleTypes
	}

	var types []string
	if err := json.Unmarshal(body, &types); err != nil || len(types) == 0 {
		var wrapped struct {
			HoleTypes []string `json:"hole_types"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil || len(wrapped.HoleTypes) == 0 {
			return DefaultHoleTypes
		}
		return wrapped.HoleTypes
	}
	return types
}

// begin installs the cancel handle for a new fetch, aborting any previous
// one first.
func (o *Orchestrator) begin(ctx context.Context) (context.Context, context.CancelFunc, string) {
	o.Cancel()
	fetchCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	o.mu.Lock()
	o.currentID = id
	o.cancelCurrent = cancel
	o.mu.Unlock()
	return fetchCtx, cancel, id
}

// end releases the handle, unless a newer fetch has already replaced it.
func (o *Orchestrator) end(id string, cancel context.CancelFunc) {
	o.mu.Lock()
	if o.currentID == id {
		o.currentID = ""
		o.cancelCurrent = nil
	}
	o.mu.Unlock()
	cancel()
}

// fail classifies a page failure. Cancellation never produces a FetchError
// event; Unauthenticated additionally runs the expiry-logout path before
// the error propagates, so the session is already cleaned up by the time
// the caller sees it.
func (o *Orchestrator) fail(kind api.DatasetKind, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(ErrCancelled, err.Error())
	}
	if errors.Is(err, api.ErrUnauthenticated) {
		o.sessions.ValidateAndLogoutIfExpired()
	}
	o.bus.PublishFetchError(events.FetchError{Kind: string(kind), Message: err.Error()})
	return err
}

func buildQuery(filters map[string]string) url.Values {
	query := url.Values{}
	for key, value := range filters {
		if value != "" {
			query.Set(key, value)
		}
	}
	return query
}

func decodeCompanyList(body []byte) ([]string, error) {
	// The directory endpoint returns either a bare list of names or a list
	// of objects with a name field.
	var names []string
	if err := json.Unmarshal(body, &names); err == nil {
		return names, nil
	}

	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil, errors.Wrap(err, "decode company search response")
	}
	names = make([]string, 0, len(objects))
	for _, obj := range objects {
		names = append(names, obj.Name)
	}
	return names, nil
}
