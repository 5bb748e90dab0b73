package dataset_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/needle-digital/dh-importer/api"
	"github.com/needle-digital/dh-importer/dataset"
)

func makeRecords(n int) []api.Record {
	records := make([]api.Record, n)
	for i := range records {
		records[i] = api.Record{"hole_id": fmt.Sprintf("H%d", i)}
	}
	return records
}

func TestReplace_DisplayPrefixInvariant(t *testing.T) {
	const ceiling = 1000

	for _, size := range []int{0, 1, 99, 999, 1000, 1001, 1500} {
		m := dataset.NewManager(ceiling, 100)
		records := makeRecords(size)
		m.Replace(api.KindHoles, records, []string{"hole_id"}, dataset.Details{TotalFetched: size})

		display := m.DisplayRecords(api.KindHoles)
		want := min(size, ceiling)
		require.Len(t, display, want, "size %d", size)
		for i := range display {
			require.Equal(t, records[i], display[i], "displayRecords must be a prefix of records")
		}
	}
}

func TestReplace_ResetsCursorAndFormatsHeaders(t *testing.T) {
	m := dataset.NewManager(1000, 100)
	m.Replace(api.KindHoles, makeRecords(500), []string{"hole_id", "max_depth"}, dataset.Details{TotalFetched: 500})
	m.NavigateToPage(api.KindHoles, 3)

	m.Replace(api.KindHoles, makeRecords(200), []string{"hole_id", "max_depth"}, dataset.Details{TotalFetched: 200})

	info := m.PageInfo(api.KindHoles)
	require.Equal(t, 1, info.CurrentPage)
	require.Equal(t, []string{"Hole Id", "Max Depth"}, m.Headers(api.KindHoles))
}

func TestClearDataOnly_PreservesFilters(t *testing.T) {
	m := dataset.NewManager(1000, 100)
	m.SetFilterParams(api.KindAssays, map[string]string{"state": "WA", "element": "au"})
	m.Replace(api.KindAssays, makeRecords(10), []string{"hole_id"}, dataset.Details{TotalFetched: 10})

	m.ClearDataOnly(api.KindAssays)

	require.Empty(t, m.Records(api.KindAssays))
	require.Equal(t, map[string]string{"state": "WA", "element": "au"}, m.FilterParams(api.KindAssays))
}

func TestClearAll_DropsFilters(t *testing.T) {
	m := dataset.NewManager(1000, 100)
	m.SetFilterParams(api.KindAssays, map[string]string{"state": "WA"})
	m.Replace(api.KindAssays, makeRecords(10), []string{"hole_id"}, dataset.Details{TotalFetched: 10})

	m.ClearAll(api.KindAssays)

	require.Empty(t, m.Records(api.KindAssays))
	require.Empty(t, m.FilterParams(api.KindAssays))
}

func TestClearOnLogout_EmptiesEveryKind(t *testing.T) {
	m := dataset.NewManager(1000, 100)
	for _, kind := range api.Kinds() {
		m.SetFilterParams(kind, map[string]string{"state": "QLD"})
		m.Replace(kind, makeRecords(50), []string{"hole_id"}, dataset.Details{TotalFetched: 50})
	}

	m.ClearOnLogout()

	for _, kind := range api.Kinds() {
		require.Empty(t, m.Records(kind), kind)
		require.Empty(t, m.DisplayRecords(kind), kind)
		require.Empty(t, m.FilterParams(kind), kind)
		require.Zero(t, m.TotalRecords(kind), kind)
		require.False(t, m.PageInfo(kind).HasData, kind)
	}
}

func TestPagination_Navigation(t *testing.T) {
	m := dataset.NewManager(1000, 100)
	m.Replace(api.KindHoles, makeRecords(250), []string{"hole_id"}, dataset.Details{TotalFetched: 250})

	info := m.PageInfo(api.KindHoles)
	require.Equal(t, 3, info.TotalPages)
	require.Equal(t, 1, info.CurrentPage)

	m.NextPage(api.KindHoles)
	require.Equal(t, 2, m.PageInfo(api.KindHoles).CurrentPage)
	require.Len(t, m.CurrentPageRecords(api.KindHoles), 100)

	m.NavigateToPage(api.KindHoles, 99)
	require.Equal(t, 3, m.PageInfo(api.KindHoles).CurrentPage)
	require.Len(t, m.CurrentPageRecords(api.KindHoles), 50)

	m.PreviousPage(api.KindHoles)
	require.Equal(t, 2, m.PageInfo(api.KindHoles).CurrentPage)

	m.NavigateToPage(api.KindHoles, -5)
	require.Equal(t, 1, m.PageInfo(api.KindHoles).CurrentPage)
}

func TestPagination_DisplayCeilingBoundsPages(t *testing.T) {
	m := dataset.NewManager(1000, 100)
	m.Replace(api.KindHoles, makeRecords(5000), []string{"hole_id"}, dataset.Details{TotalFetched: 5000})

	info := m.PageInfo(api.KindHoles)
	require.Equal(t, 10, info.TotalPages, "pages are computed over the display prefix")
	require.Equal(t, 5000, info.TotalRecords)
	require.Equal(t, 1000, info.DisplayCount)
}

func TestFetchDetails(t *testing.T) {
	m := dataset.NewManager(1000, 100)
	details := dataset.Details{
		TotalFetched:       200,
		RequestedCount:     500,
		FetchTime:          3 * time.Second,
		StateContributions: map[string]int{"WA": 150, "NSW": 50},
	}
	m.Replace(api.KindHoles, makeRecords(200), []string{"hole_id"}, details)

	require.Equal(t, details, m.FetchDetails(api.KindHoles))
}
