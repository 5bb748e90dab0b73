// Package dataset holds the per-dataset cache of fetched records, filter
// parameters and pagination cursors. It is consumed and invalidated by the
// fetch orchestrator and by the UI collaborator after logout.
package dataset

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/needle-digital/dh-importer/api"
)

// Defaults mirroring the hosted service's display behavior.
const (
	DefaultDisplayCeiling = 1000
	DefaultRecordsPerPage = 100
)

// Details records metadata about the last fetch, for a detail view.
type Details struct {
	TotalFetched       int
	RequestedCount     int
	FetchTime          time.Duration
	StateContributions map[string]int
}

// state is the cache for one dataset kind. displayRecords is always a
// prefix of records, capped at the display ceiling for responsive table
// pagination.
type state struct {
	records        []api.Record
	displayRecords []api.Record
	columns        []string
	headers        []string
	totalRecords   int
	currentPage    int // 0-based
	filterParams   map[string]string
	details        Details
}

// Manager owns the dataset states for every kind. States are recreated
// fresh at construction and replaced wholesale on fetch or logout.
type Manager struct {
	mu             sync.RWMutex
	tabs           map[api.DatasetKind]*state
	displayCeiling int
	recordsPerPage int
}

func NewManager(displayCeiling, recordsPerPage int) *Manager {
	if displayCeiling <= 0 {
		displayCeiling = DefaultDisplayCeiling
	}
	if recordsPerPage <= 0 {
		recordsPerPage = DefaultRecordsPerPage
	}
	m := &Manager{
		tabs:           make(map[api.DatasetKind]*state),
		displayCeiling: displayCeiling,
		recordsPerPage: recordsPerPage,
	}
	for _, kind := range api.Kinds() {
		m.tabs[kind] = emptyState()
	}
	return m
}

func emptyState() *state {
	return &state{
		records:        []api.Record{},
		displayRecords: []api.Record{},
		columns:        []string{},
		headers:        []string{},
		filterParams:   map[string]string{},
	}
}

// Replace atomically swaps the full dataset for one kind, recomputes the
// display prefix and resets the table cursor.
func (m *Manager) Replace(kind api.DatasetKind, records []api.Record, columns []string, details Details) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab := m.tab(kind)
	tab.records = records
	tab.displayRecords = records[:min(len(records), m.displayCeiling)]
	tab.columns = columns
	tab.headers = formatHeaders(columns)
	tab.totalRecords = details.TotalFetched
	tab.currentPage = 0
	tab.details = details
}

// SetFilterParams stores the last-applied filter for a kind. Filters persist
// across fetches of the same dataset unless explicitly reset.
func (m *Manager) SetFilterParams(kind api.DatasetKind, params map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	m.tab(kind).filterParams = copied
}

// ClearAll resets one dataset to empty including its filter parameters.
func (m *Manager) ClearAll(kind api.DatasetKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[kind] = emptyState()
}

// ClearDataOnly resets the records but preserves filter parameters, for
// re-fetches within an unchanged query.
func (m *Manager) ClearDataOnly(kind api.DatasetKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab := m.tab(kind)
	filters := tab.filterParams
	fresh := emptyState()
	fresh.filterParams = filters
	m.tabs[kind] = fresh
}

// ClearOnLogout empties every dataset including filter parameters, so no
// previously fetched records or filter selections remain observable to the
// next authenticated identity.
func (m *Manager) ClearOnLogout() {
	for _, kind := range api.Kinds() {
		m.ClearAll(kind)
	}
}

// Records returns the full fetched set for a kind.
func (m *Manager) Records(kind api.DatasetKind) []api.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tab(kind).records
}

// DisplayRecords returns the display-ceiling-capped prefix.
func (m *Manager) DisplayRecords(kind api.DatasetKind) []api.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tab(kind).displayRecords
}

// Columns returns the server-supplied column order.
func (m *Manager) Columns(kind api.DatasetKind) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tab(kind).columns
}

// Headers returns display-formatted column names.
func (m *Manager) Headers(kind api.DatasetKind) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tab(kind).headers
}

// TotalRecords returns the server-reported total for the last fetch.
func (m *Manager) TotalRecords(kind api.DatasetKind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tab(kind).totalRecords
}

// FilterParams returns a copy of the last-applied filter.
func (m *Manager) FilterParams(kind api.DatasetKind) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	params := m.tab(kind).filterParams
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return copied
}

// FetchDetails returns metadata about the last fetch.
func (m *Manager) FetchDetails(kind api.DatasetKind) Details {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tab(kind).details
}

func (m *Manager) tab(kind api.DatasetKind) *state {
	tab, ok := m.tabs[kind]
	if !ok {
		tab = emptyState()
		m.tabs[kind] = tab
	}
	return tab
}

// formatHeaders turns snake_case column names into display headers,
// e.g. "hole_id" -> "Hole Id".
func formatHeaders(columns []string) []string {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = formatColumnName(col)
	}
	return headers
}

func formatColumnName(column string) string {
	words := strings.Split(column, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
