package capture

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	// SourceBrowserExtension tags every item captured from a tab.
	SourceBrowserExtension = "browser_extension"

	// PayloadTypeURL is the only payload type the queue holds.
	PayloadTypeURL = "url"

	// TimestampLayout renders captured_at the way a browser's Date.toISOString does.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Item is a single captured URL. Items have no id; identity is the position in the queue.
// Field order is part of the export format.
type Item struct {
	CapturedAt  string `json:"captured_at"`
	Source      string `json:"source"`
	PayloadType string `json:"payload_type"`
	PayloadRef  string `json:"payload_ref"`
}

// NewItem builds an item for url captured at now. The URL is stored verbatim.
func NewItem(url string, now time.Time) Item {
	return Item{
		CapturedAt:  now.UTC().Format(TimestampLayout),
		Source:      SourceBrowserExtension,
		PayloadType: PayloadTypeURL,
		PayloadRef:  url,
	}
}

// Valid reports whether the item is a url item with a non-empty reference.
func (i Item) Valid() bool {
	return i.PayloadType == PayloadTypeURL && strings.TrimSpace(i.PayloadRef) != ""
}

// Marshal encodes items as a pretty-printed JSON array (2-space indent).
// A nil slice encodes as [] so every export is an array.
func Marshal(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	return json.MarshalIndent(items, "", "  ")
}
