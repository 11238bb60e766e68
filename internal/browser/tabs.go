package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Tab is the focused page of the focused window.
type Tab struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// TabQuerier resolves the active tab. A nil tab with a nil error means
// there is no active tab.
type TabQuerier interface {
	ActiveTab(ctx context.Context) (*Tab, error)
}

// TabFunc adapts a function to TabQuerier.
type TabFunc func(ctx context.Context) (*Tab, error)

// ActiveTab calls f.
func (f TabFunc) ActiveTab(ctx context.Context) (*Tab, error) {
	return f(ctx)
}

// StaticTab reports a fixed URL as the active tab. It backs every surface
// where the caller names the page explicitly (CLI flag, form field, MCP argument).
type StaticTab struct {
	URL   string
	Title string
}

// ActiveTab returns the fixed tab, or nil when URL is blank.
func (s StaticTab) ActiveTab(ctx context.Context) (*Tab, error) {
	if strings.TrimSpace(s.URL) == "" {
		return nil, nil
	}
	return &Tab{Title: s.Title, URL: s.URL}, nil
}

// DevToolsTabs reads the active tab from a Chrome DevTools HTTP endpoint.
// /json/list does not report focus and its order is not documented, so the
// first page target in the listing stands in for the focused tab. Pass an
// explicit URL when that guess is not good enough.
type DevToolsTabs struct {
	Endpoint string
	Client   *http.Client
}

// NewDevToolsTabs returns a DevToolsTabs for endpoint (e.g. http://127.0.0.1:9222).
func NewDevToolsTabs(endpoint string) *DevToolsTabs {
	return &DevToolsTabs{
		Endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

type devToolsTarget struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ActiveTab returns the first page target in listing order, or nil if the
// browser has none.
func (d *DevToolsTabs) ActiveTab(ctx context.Context) (*Tab, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Endpoint+"/json/list", nil)
	if err != nil {
		return nil, fmt.Errorf("devtools request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("devtools query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("devtools query: unexpected status %s", resp.Status)
	}

	var targets []devToolsTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("devtools decode: %w", err)
	}

	for _, t := range targets {
		if t.Type == "page" {
			return &Tab{ID: t.ID, Title: t.Title, URL: t.URL}, nil
		}
	}
	return nil, nil
}
