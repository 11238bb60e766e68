package capture

import "strings"

// internalSchemePrefixes are browser-owned pages that are never queued.
var internalSchemePrefixes = []string{"about:", "chrome:", "moz-extension:"}

// IsInternalURL reports whether url points at a browser-internal page.
func IsInternalURL(url string) bool {
	for _, prefix := range internalSchemePrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// InternalSchemePrefixes returns a copy of the rejected URL prefixes.
func InternalSchemePrefixes() []string {
	out := make([]string, len(internalSchemePrefixes))
	copy(out, internalSchemePrefixes)
	return out
}
