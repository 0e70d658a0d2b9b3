// Package extract turns WAT archive streams into link candidates.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/openwebdata/watlinks/internal/logging"
	"github.com/openwebdata/watlinks/internal/metrics"
	"github.com/openwebdata/watlinks/internal/warc"
)

// watMetadata mirrors the nesting of a WAT metadata record body. Levels
// absent from the JSON simply decode to their zero value, which leaves
// Links empty and the record contributes nothing.
type watMetadata struct {
	Envelope struct {
		PayloadMetadata struct {
			HTTPResponseMetadata struct {
				HTMLMetadata struct {
					Links []Link `json:"Links"`
				} `json:"HTML-Metadata"`
			} `json:"HTTP-Response-Metadata"`
		} `json:"Payload-Metadata"`
	} `json:"Envelope"`
}

// Extractor consumes WAT archive byte streams and emits link candidates.
type Extractor struct {
	log *slog.Logger
}

// NewExtractor creates an extractor with a component logger.
func NewExtractor() *Extractor {
	return &Extractor{log: logging.Component("extract")}
}

// Extract iterates the metadata records of one archive stream and returns
// every link candidate found. Record-level decode failures skip that
// record. A corrupt container aborts this file only: the candidates
// gathered so far come back together with the error, and the partial
// result is usable.
//
// The stream is consumed; a second pass needs a fresh reader.
func (e *Extractor) Extract(ctx context.Context, stream io.Reader) ([]Candidate, error) {
	var all []Candidate

	r, err := warc.NewReader(stream)
	if err != nil {
		return all, fmt.Errorf("open archive: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return all, nil
		}

		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			// Corrupt container: keep what we have, drop the rest.
			return all, fmt.Errorf("iterate archive: %w", err)
		}

		if rec.Type != warc.TypeMetadata {
			continue
		}

		var body watMetadata
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			e.log.Debug("record decode failed, skipping", "error", err)
			if m := metrics.Get(); m != nil {
				m.RecordsSkipped.Inc()
			}
			continue
		}
		if m := metrics.Get(); m != nil {
			m.RecordsDecoded.Inc()
		}

		links := body.Envelope.PayloadMetadata.HTTPResponseMetadata.HTMLMetadata.Links
		if len(links) == 0 {
			continue
		}

		cands := FilterLinks(links)
		if m := metrics.Get(); m != nil {
			m.CandidatesExtracted.Add(float64(len(cands)))
		}
		all = append(all, cands...)
	}
}
