package outputs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalSink writes <date>_digest.md and <date>_raw.json into Dir
type LocalSink struct {
	Dir string
}

// NewLocalSink creates a sink rooted at dir
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{Dir: dir}
}

func (l *LocalSink) Name() string { return "local" }

// Paths returns the report and snapshot paths for d
func (l *LocalSink) Paths(d *Digest) (markdown, snapshot string) {
	date := d.Date()
	return filepath.Join(l.Dir, date+"_digest.md"), filepath.Join(l.Dir, date+"_raw.json")
}

// Write creates the directory if needed and returns its absolute path
func (l *LocalSink) Write(_ context.Context, d *Digest) (string, error) {
	if l.Dir == "" {
		return "", fmt.Errorf("%w: local output directory is empty", ErrNotConfigured)
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	mdPath, jsonPath := l.Paths(d)
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(d)), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown: %w", err)
	}

	raw, err := SnapshotJSON(d)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	abs, err := filepath.Abs(l.Dir)
	if err != nil {
		return l.Dir, nil
	}
	return abs, nil
}
