package fetch

import "github.com/needle-digital/dh-importer/api"

// NewChunkedResult builds a Result with explicit chunk configuration, for
// the external test package.
func NewChunkedResult(records []api.Record, columns []string, chunkSize, chunkThreshold int) *Result {
	return &Result{
		Kind:           api.KindHoles,
		Records:        records,
		Columns:        columns,
		chunkSize:      chunkSize,
		chunkThreshold: chunkThreshold,
	}
}
