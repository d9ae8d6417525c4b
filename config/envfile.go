package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPair is one key to write back to the env file
type EnvPair struct {
	Key   string
	Value string
}

// ReadEnvFile returns the raw key/value pairs in path, or an empty map when
// the file does not exist.
func ReadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vars, nil
}

// WriteEnvFile updates keys in place, keeping comments, blank lines and keys
// it was not asked to touch. Keys missing from the file are appended in the
// order given.
func WriteEnvFile(path string, pairs []EnvPair) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	updates := make(map[string]string, len(pairs))
	for _, p := range pairs {
		updates[p.Key] = p.Value
	}

	var out bytes.Buffer
	written := make(map[string]bool, len(pairs))
	scanner := bufio.NewScanner(bytes.NewReader(existing))
	for scanner.Scan() {
		line := scanner.Text()
		if key, ok := lineKey(line); ok {
			if v, update := updates[key]; update {
				if written[key] {
					continue
				}
				entry, err := formatEntry(key, v)
				if err != nil {
					return err
				}
				out.WriteString(entry + "\n")
				written[key] = true
				continue
			}
		}
		out.WriteString(line + "\n")
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}

	for _, p := range pairs {
		if written[p.Key] {
			continue
		}
		entry, err := formatEntry(p.Key, p.Value)
		if err != nil {
			return err
		}
		out.WriteString(entry + "\n")
		written[p.Key] = true
	}

	if err := os.WriteFile(path, out.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func lineKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")
	key, _, found := strings.Cut(trimmed, "=")
	if !found {
		return "", false
	}
	return strings.TrimSpace(key), true
}

// formatEntry quotes the value the way godotenv does so Read gives it back.
func formatEntry(key, value string) (string, error) {
	line, err := godotenv.Marshal(map[string]string{key: value})
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", key, err)
	}
	return line, nil
}
