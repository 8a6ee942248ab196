// Package zones loads the landing-zone inventory: plain text with one
// "<account_id> <zone_name>" per line, from a local file or an HTTP
// endpoint. Blank lines and '#' comments are skipped.
package zones

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Entry is one inventory line before role/region are attached.
type Entry struct {
	AccountID string
	Name      string
}

// FetchURL downloads and parses the inventory from an HTTP endpoint.
func FetchURL(ctx context.Context, url string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build zones request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch zones: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch zones: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read zones response: %w", err)
	}
	return Parse(string(body))
}

// LoadFile parses the inventory from a local file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read zones file: %w", err)
	}
	return Parse(string(data))
}

// Parse reads inventory text, skipping blanks and comments. Each line
// must be "<account_id> <zone_name>".
func Parse(text string) ([]Entry, error) {
	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed zone line %q", line)
		}
		entries = append(entries, Entry{AccountID: fields[0], Name: fields[1]})
	}
	return entries, nil
}

// ParseOverride handles the "name:account_id" CLI form, bypassing the
// inventory. Returns false when s is a plain zone name.
func ParseOverride(s string) (Entry, bool) {
	name, account, ok := strings.Cut(s, ":")
	if !ok {
		return Entry{}, false
	}
	return Entry{AccountID: account, Name: name}, true
}

// FilterByName keeps entries whose zone name matches any of names.
func FilterByName(entries []Entry, names []string) []Entry {
	var kept []Entry
	for _, e := range entries {
		for _, name := range names {
			if e.Name == name {
				kept = append(kept, e)
				break
			}
		}
	}
	return kept
}

// FilterByEnvironment keeps entries whose zone name ends with the
// environment suffix (cmsnonprod matches "nonprod").
func FilterByEnvironment(entries []Entry, environment string) []Entry {
	if environment == "" {
		return nil
	}
	var kept []Entry
	for _, e := range entries {
		if strings.HasSuffix(e.Name, environment) {
			kept = append(kept, e)
		}
	}
	return kept
}
