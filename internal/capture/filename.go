package capture

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const (
	// StampLayout is second-precision ISO-8601; ':' is swapped for '-' by FilenameStamp.
	StampLayout = "2006-01-02T15:04:05Z"

	queueExportPrefix = "aku_capture_queue_"
	itemExportPrefix  = "aku_capture_item_"

	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength   = 6
)

// FilenameStamp renders t as a filename-safe timestamp, e.g. 2026-02-12T15-30-00Z.
func FilenameStamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format(StampLayout), ":", "-")
}

// QueueExportFilename returns the bulk export name: aku_capture_queue_<stamp>.json.
func QueueExportFilename(t time.Time) string {
	return queueExportPrefix + FilenameStamp(t) + ".json"
}

// ItemExportFilename returns <subdir>/aku_capture_item_<stamp>_<suffix>.json.
// subdir is sanitized here so callers cannot bypass the rule.
func ItemExportFilename(subdir string, t time.Time, suffix string) string {
	return fmt.Sprintf("%s/%s%s_%s.json", SanitizeSubdir(subdir), itemExportPrefix, FilenameStamp(t), suffix)
}

// RandomSuffix returns a 6-character lowercase alphanumeric token.
// It only separates exports made within the same second.
func RandomSuffix() (string, error) {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf), nil
}
