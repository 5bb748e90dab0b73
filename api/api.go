// Package api defines the wire-level types and endpoints of the upstream
// mining-data service: the identity provider used for credential exchange
// and token refresh, and the data endpoints serving drill holes and assay
// samples in pages.
package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// DatasetKind selects one of the two tabular datasets the service exposes.
type DatasetKind string

const (
	KindHoles  DatasetKind = "Holes"
	KindAssays DatasetKind = "Assays"
)

// Kinds lists every dataset kind in a stable order.
func Kinds() []DatasetKind {
	return []DatasetKind{KindHoles, KindAssays}
}

// DataEndpoint returns the paginated data endpoint for the kind.
func (k DatasetKind) DataEndpoint() string {
	if k == KindAssays {
		return "plugin/fetch_assay_samples"
	}
	return "plugin/fetch_drill_holes"
}

// CountEndpoint returns the record-count preflight endpoint for the kind.
func (k DatasetKind) CountEndpoint() string {
	if k == KindAssays {
		return "plugin/fetch_assay_count"
	}
	return "plugin/fetch_dh_count"
}

// recordsField is the JSON field the data endpoint nests records under.
func (k DatasetKind) recordsField() string {
	if k == KindAssays {
		return "assays"
	}
	return "holes"
}

// Auxiliary endpoints.
const (
	EndpointCompaniesSearch = "companies/search"
	EndpointHoleTypes       = "plugin/fetch_hole_type"
)

// Wire-level errors. The session and fetch layers map these onto their own
// taxonomies.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNetwork           = errors.New("network failure")
)

// ServerError is a non-auth upstream failure carrying the HTTP status.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: status %d", e.Status)
	}
	return fmt.Sprintf("server error: status %d: %s", e.Status, e.Message)
}
