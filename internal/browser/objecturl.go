package browser

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ObjectURLPrefix starts every URL minted by ObjectURLs.
const ObjectURLPrefix = "blob:tinycapture/"

// Blob is a staged, in-memory file body.
type Blob struct {
	Type string
	Data []byte
}

// ObjectURLs maps ephemeral blob: URLs to staged bytes until they are revoked.
type ObjectURLs struct {
	mu    sync.Mutex
	blobs map[string]Blob
}

// NewObjectURLs returns an empty registry.
func NewObjectURLs() *ObjectURLs {
	return &ObjectURLs{blobs: make(map[string]Blob)}
}

// Create stages a copy of data and returns its URL.
func (o *ObjectURLs) Create(data []byte, mimeType string) string {
	url := ObjectURLPrefix + ulid.Make().String()
	buf := make([]byte, len(data))
	copy(buf, data)

	o.mu.Lock()
	o.blobs[url] = Blob{Type: mimeType, Data: buf}
	o.mu.Unlock()
	return url
}

// Resolve returns the blob behind url.
func (o *ObjectURLs) Resolve(url string) (Blob, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.blobs[url]
	return b, ok
}

// Revoke releases url. Revoking an unknown URL is a no-op.
func (o *ObjectURLs) Revoke(url string) {
	o.mu.Lock()
	delete(o.blobs, url)
	o.mu.Unlock()
}

// RevokeAfter releases url once d has elapsed. d <= 0 revokes immediately.
func (o *ObjectURLs) RevokeAfter(url string, d time.Duration) {
	if d <= 0 {
		o.Revoke(url)
		return
	}
	time.AfterFunc(d, func() { o.Revoke(url) })
}

// Len reports how many URLs are live.
func (o *ObjectURLs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.blobs)
}
