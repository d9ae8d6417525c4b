// Package outputs writes a finished digest to its destinations.
package outputs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"digestbot/types"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned by a sink whose credentials are missing
var ErrNotConfigured = errors.New("sink not configured")

// Digest is the read-only payload handed to every sink
type Digest struct {
	Title       string
	DateRange   string
	Result      types.AggregatedResult
	Summary     string
	GeneratedAt time.Time
}

// Total is the article count of the digest
func (d *Digest) Total() int { return d.Result.Total() }

// Date keys the output filenames and archive paths
func (d *Digest) Date() string { return d.GeneratedAt.Format("2006-01-02") }

// Sink is one output destination. Write returns where the digest landed.
type Sink interface {
	Name() string
	Write(ctx context.Context, d *Digest) (string, error)
}

// WriteAll attempts every sink in order. A failing sink never stops the
// ones after it.
func WriteAll(ctx context.Context, sinks []Sink, d *Digest, logger zerolog.Logger) []types.SinkOutcome {
	outcomes := make([]types.SinkOutcome, 0, len(sinks))
	for _, s := range sinks {
		outcome := types.SinkOutcome{Sink: s.Name()}
		location, err := writeOne(ctx, s, d)
		switch {
		case errors.Is(err, ErrNotConfigured):
			outcome.Skipped = true
			outcome.Error = err.Error()
			logger.Warn().Str("stage", "output").Str("sink", s.Name()).Msg("sink not configured, skipped")
		case err != nil:
			outcome.Error = err.Error()
			logger.Error().Err(err).Str("stage", "output").Str("sink", s.Name()).Msg("sink failed")
		default:
			outcome.OK = true
			outcome.Location = location
			logger.Info().Str("stage", "output").Str("sink", s.Name()).Str("location", location).Msg("sink written")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func writeOne(ctx context.Context, s Sink, d *Digest) (location string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s sink panicked: %v", s.Name(), r)
		}
	}()
	return s.Write(ctx, d)
}

// SnapshotMeta is the header of the JSON snapshot
type SnapshotMeta struct {
	Title       string `json:"title"`
	DateRange   string `json:"date_range"`
	GeneratedAt string `json:"generated_at"`
	Total       int    `json:"total"`
}

// Snapshot is the machine readable form of a digest
type Snapshot struct {
	Meta      SnapshotMeta    `json:"meta"`
	AISummary *string         `json:"ai_summary"`
	Articles  orderedAccounts `json:"articles"`
}

// orderedAccounts encodes as a JSON object whose keys keep account order
type orderedAccounts []types.AccountArticles

func (o orderedAccounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, acc := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(acc.Account)
		if err != nil {
			return nil, err
		}
		articles := acc.Articles
		if articles == nil {
			articles = []types.Article{}
		}
		val, err := marshalNoEscape(articles)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewSnapshot builds the snapshot of d. A missing summary encodes as null.
func NewSnapshot(d *Digest) Snapshot {
	s := Snapshot{
		Meta: SnapshotMeta{
			Title:       d.Title,
			DateRange:   d.DateRange,
			GeneratedAt: d.GeneratedAt.Format(time.RFC3339),
			Total:       d.Total(),
		},
		Articles: orderedAccounts(d.Result.Accounts),
	}
	if d.Summary != "" {
		summary := d.Summary
		s.AISummary = &summary
	}
	return s
}

// SnapshotJSON renders the indented snapshot of d
func SnapshotJSON(d *Digest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewSnapshot(d)); err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
