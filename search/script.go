package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"digestbot/config"
	"digestbot/types"
)

// stderrLimit caps the tool diagnostics carried in an error
const stderrLimit = 200

// ScriptFetcher runs the external search script once per account
type ScriptFetcher struct {
	Runtime    string
	ScriptPath string
	MaxResults int
	Timeout    time.Duration
}

// NewScriptFetcher creates a fetcher using the fixed search timeout
func NewScriptFetcher(runtime, scriptPath string, maxResults int) *ScriptFetcher {
	return &ScriptFetcher{
		Runtime:    runtime,
		ScriptPath: scriptPath,
		MaxResults: maxResults,
		Timeout:    config.SearchTimeout,
	}
}

// Fetch invokes `<runtime> <script> <query> -n <max> -o <file>` and parses
// the file it writes. A missing output file yields an empty list.
func (f *ScriptFetcher) Fetch(ctx context.Context, account, query, group string) ([]types.Article, error) {
	if _, err := os.Stat(f.ScriptPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrToolMissing, f.ScriptPath)
		}
		return nil, fmt.Errorf("checking search tool: %w", err)
	}

	dir, err := os.MkdirTemp("", "wechat_search_")
	if err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	defer os.RemoveAll(dir)
	outPath := filepath.Join(dir, "articles.json")

	runCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, f.Runtime, f.ScriptPath, query,
		"-n", strconv.Itoa(f.MaxResults), "-o", outPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s [%s]", ErrTimeout, f.Timeout, account)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: runtime %s", ErrToolMissing, f.Runtime)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("search exited with code %d [%s]: %s",
				exitErr.ExitCode(), account, truncateBytes(stderr.Bytes(), stderrLimit))
		}
		return nil, fmt.Errorf("running search [%s]: %w", account, err)
	}

	data, err := os.ReadFile(outPath)
	if errors.Is(err, os.ErrNotExist) {
		return []types.Article{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading search output: %w", err)
	}

	items, err := decodePayload(data)
	if err != nil {
		return nil, err
	}
	return normalize(items, group), nil
}
