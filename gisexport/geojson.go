// Package gisexport writes fetched datasets out as GIS interchange
// formats. Output is streamed chunk by chunk so million-record results
// never need a second in-memory copy.
package gisexport

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/needle-digital/dh-importer/api"
)

// ChunkSource yields records in fixed chunks. *fetch.ChunkIterator
// satisfies it.
type ChunkSource interface {
	Next(ctx context.Context) bool
	Chunk() []api.Record
	Err() error
}

// ProgressFunc is invoked after each chunk with the running feature count.
type ProgressFunc func(written int)

type geoJSONFeature struct {
	Type       string           `json:"type"`
	Geometry   *geoJSONGeometry `json:"geometry"`
	Properties api.Record       `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// WriteGeoJSON streams a FeatureCollection to w, one feature per record.
// Records carrying latitude and longitude become Point features; the rest
// get a null geometry so no record is silently dropped. The context is
// checked between chunks, so a cancelled export stops promptly with the
// context error. Returns the number of features written.
func WriteGeoJSON(ctx context.Context, w io.Writer, source ChunkSource, progress ProgressFunc) (int, error) {
	if _, err := io.WriteString(w, `{"type":"FeatureCollection","features":[`); err != nil {
		return 0, errors.Wrap(err, "[WriteGeoJSON] write header")
	}

	written := 0
	for source.Next(ctx) {
		for _, record := range source.Chunk() {
			if written > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return written, errors.Wrap(err, "[WriteGeoJSON] write separator")
				}
			}
			encoded, err := json.Marshal(featureFor(record))
			if err != nil {
				return written, errors.Wrap(err, "[WriteGeoJSON] encode feature")
			}
			if _, err := w.Write(encoded); err != nil {
				return written, errors.Wrap(err, "[WriteGeoJSON] write feature")
			}
			written++
		}
		if progress != nil {
			progress(written)
		}
	}
	if err := source.Err(); err != nil {
		return written, err
	}

	if _, err := io.WriteString(w, "]}"); err != nil {
		return written, errors.Wrap(err, "[WriteGeoJSON] write footer")
	}
	return written, nil
}

func featureFor(record api.Record) geoJSONFeature {
	feature := geoJSONFeature{Type: "Feature", Properties: record}
	lat, latOK := coordinate(record, "latitude", "lat")
	lon, lonOK := coordinate(record, "longitude", "lon")
	if latOK && lonOK {
		feature.Geometry = &geoJSONGeometry{
			Type:        "Point",
			Coordinates: [2]float64{lon, lat},
		}
	}
	return feature
}

// coordinate pulls a numeric field that may arrive as float, json.Number
// or string depending on the upstream serializer.
func coordinate(record api.Record, keys ...string) (float64, bool) {
	for _, key := range keys {
		raw, ok := record[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
