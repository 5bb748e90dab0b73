package dataset

import "github.com/needle-digital/dh-importer/api"

// PageInfo describes the table-display pagination of one dataset. Pages are
// computed over the display prefix, not the full fetched set.
type PageInfo struct {
	CurrentPage    int // 1-based for display
	TotalPages     int
	RecordsPerPage int
	TotalRecords   int // full fetched set, may exceed the display ceiling
	DisplayCount   int
	HasData        bool
}

// PageInfo returns the pagination state for a kind.
func (m *Manager) PageInfo(kind api.DatasetKind) PageInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tab := m.tab(kind)
	displayCount := len(tab.displayRecords)
	if len(tab.records) == 0 {
		return PageInfo{RecordsPerPage: m.recordsPerPage}
	}

	totalPages := max(1, (displayCount+m.recordsPerPage-1)/m.recordsPerPage)
	return PageInfo{
		CurrentPage:    tab.currentPage + 1,
		TotalPages:     totalPages,
		RecordsPerPage: m.recordsPerPage,
		TotalRecords:   len(tab.records),
		DisplayCount:   displayCount,
		HasData:        true,
	}
}

// NavigateToPage moves the table cursor to a 1-based page, clamped to the
// valid range.
func (m *Manager) NavigateToPage(kind api.DatasetKind, page int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab := m.tab(kind)
	displayCount := len(tab.displayRecords)
	if displayCount == 0 {
		return
	}

	maxPage := max(1, (displayCount+m.recordsPerPage-1)/m.recordsPerPage)
	page = max(1, min(page, maxPage))
	tab.currentPage = page - 1
}

// NextPage advances the table cursor.
func (m *Manager) NextPage(kind api.DatasetKind) {
	m.NavigateToPage(kind, m.PageInfo(kind).CurrentPage+1)
}

// PreviousPage steps the table cursor back.
func (m *Manager) PreviousPage(kind api.DatasetKind) {
	m.NavigateToPage(kind, m.PageInfo(kind).CurrentPage-1)
}

// CurrentPageRecords returns the slice of display records visible on the
// current table page.
func (m *Manager) CurrentPageRecords(kind api.DatasetKind) []api.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tab := m.tab(kind)
	start := tab.currentPage * m.recordsPerPage
	if start >= len(tab.displayRecords) {
		return nil
	}
	end := min(start+m.recordsPerPage, len(tab.displayRecords))
	return tab.displayRecords[start:end]
}
