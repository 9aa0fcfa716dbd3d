// Package setup writes the backend location into a dotenv file.
package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"review-portal-backend/internal/config"
)

// MissingValuesMessage is printed when either value is left blank.
const MissingValuesMessage = "Both URL and Anon Key are required."

var ErrMissingValues = errors.New("both URL and anon key are required")

// Current returns the values already present in the env file. A missing file
// yields empty strings.
func Current(path string) (url, anonKey string, err error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values[config.EnvBackendURL], values[config.EnvBackendAnonKey], nil
}

// Update sets PORTAL_BACKEND_URL and PORTAL_BACKEND_ANON_KEY in the env file.
// Existing assignments are replaced in place, missing ones are appended and
// every other line is kept as is.
func Update(path, url, anonKey string) error {
	url = strings.TrimSpace(url)
	anonKey = strings.TrimSpace(anonKey)
	if url == "" || anonKey == "" {
		return ErrMissingValues
	}

	var content string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		content = string(data)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	updated := Apply(content, map[string]string{
		config.EnvBackendURL:     url,
		config.EnvBackendAnonKey: anonKey,
	})

	mode := fs.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(updated), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Apply rewrites KEY=value assignments in dotenv content. Missing keys are
// appended, backend keys first and the rest sorted.
func Apply(content string, values map[string]string) string {
	var extra []string
	for key := range values {
		if key != config.EnvBackendURL && key != config.EnvBackendAnonKey {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	keys := append([]string{config.EnvBackendURL, config.EnvBackendAnonKey}, extra...)

	var lines []string
	if content != "" {
		lines = strings.Split(content, "\n")
	}

	seen := make(map[string]bool, len(values))
	for i, line := range lines {
		for _, key := range keys {
			value, ok := values[key]
			if !ok {
				continue
			}
			if strings.HasPrefix(line, key+"=") {
				lines[i] = key + "=" + value
				seen[key] = true
			}
		}
	}

	// Keep a trailing newline at the end of the file.
	trailing := len(lines) > 0 && lines[len(lines)-1] == ""
	if trailing {
		lines = lines[:len(lines)-1]
	}
	for _, key := range keys {
		value, ok := values[key]
		if ok && !seen[key] {
			lines = append(lines, key+"="+value)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
