package api

import (
	"encoding/json"
	"time"
)

// Record is one mining entity (drill hole or assay sample). The field set is
// supplied by the server per response, not fixed at compile time, so records
// are schema-less mappings. Column order travels separately in DataPage.
type Record map[string]any

// Credentials is the decoded result of a credential exchange or a refresh
// grant against the identity provider.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// DataPage is one page of a dataset fetch.
type DataPage struct {
	Records            []Record
	Columns            []string
	TotalCount         int
	StateContributions map[string]int
}

// dataPageWire mirrors the upstream response shape. Records arrive under a
// kind-specific field; columns and totals are shared.
type dataPageWire struct {
	Holes              []Record       `json:"holes"`
	Assays             []Record       `json:"assays"`
	Columns            []string       `json:"columns"`
	TotalCount         int            `json:"total_count"`
	StateContributions map[string]int `json:"state_contributions"`
}

// DecodeDataPage parses a data-endpoint response body for the given kind.
func DecodeDataPage(kind DatasetKind, body []byte) (*DataPage, error) {
	var wire dataPageWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	records := wire.Holes
	if kind.recordsField() == "assays" {
		records = wire.Assays
	}
	if records == nil {
		records = []Record{}
	}

	return &DataPage{
		Records:            records,
		Columns:            wire.Columns,
		TotalCount:         wire.TotalCount,
		StateContributions: wire.StateContributions,
	}, nil
}

// CountResponse is the record-count preflight response.
type CountResponse struct {
	TotalCount int `json:"total_count"`
}
