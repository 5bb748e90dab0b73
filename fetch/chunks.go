package fetch

import (
	"context"

	"github.com/needle-digital/dh-importer/api"
)

// Result holds the records of a completed fetch, ready for chunked import
// into a GIS layer.
type Result struct {
	Kind    api.DatasetKind
	Records []api.Record
	Columns []string

	chunkSize      int
	chunkThreshold int
}

// Chunks returns an iterator over fixed-size slices of the result. A size
// of zero or less uses the configured default. Results at or below the
// chunking threshold are delivered as a single chunk.
func (r *Result) Chunks(size int) *ChunkIterator {
	if size <= 0 {
		size = r.chunkSize
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if r.chunkThreshold > 0 && len(r.Records) <= r.chunkThreshold {
		size = len(r.Records)
	}
	return &ChunkIterator{records: r.Records, size: size}
}

// ChunkIterator walks a result chunk by chunk in record order. Usage
// follows bufio.Scanner:
//
//	it := result.Chunks(0)
//	for it.Next(ctx) {
//	    importChunk(it.Chunk())
//	}
//	if err := it.Err(); err != nil { ... }
type ChunkIterator struct {
	records []api.Record
	size    int
	offset  int
	current []api.Record
	err     error
}

// Next advances to the next chunk. It returns false when the records are
// exhausted or the context is done; in the latter case Err reports the
// context error and the consumer can stop mid-import.
func (it *ChunkIterator) Next(ctx context.Context) bool {
	if it.err != nil || it.offset >= len(it.records) {
		return false
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		return false
	}

	end := it.offset + it.size
	if it.size <= 0 || end > len(it.records) {
		end = len(it.records)
	}
	it.current = it.records[it.offset:end]
	it.offset = end
	return true
}

// Chunk returns the slice produced by the last successful Next call.
func (it *ChunkIterator) Chunk() []api.Record {
	return it.current
}

// Err returns the error that stopped iteration, if any.
func (it *ChunkIterator) Err() error {
	return it.err
}

// Remaining reports how many records have not yet been delivered.
func (it *ChunkIterator) Remaining() int {
	return len(it.records) - it.offset
}
