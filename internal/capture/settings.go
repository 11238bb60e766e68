package capture

import (
	"strings"
	"unicode"
)

// DefaultSubdir is where auto-exported items land, relative to the downloads directory.
const DefaultSubdir = "any2ebook/inbox"

// Settings holds the persisted capture preferences.
type Settings struct {
	AutoExportEnabled bool   `json:"autoExportEnabled"`
	AutoExportSubdir  string `json:"autoExportSubdir"`
}

// SettingsPatch is a partial update. Nil fields keep their current value.
type SettingsPatch struct {
	AutoExportEnabled *bool   `json:"autoExportEnabled,omitempty"`
	AutoExportSubdir  *string `json:"autoExportSubdir,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.AutoExportEnabled == nil && p.AutoExportSubdir == nil
}

// DefaultSettings returns the settings used when nothing is stored.
// Every surface gets its defaults from here.
func DefaultSettings() Settings {
	return Settings{
		AutoExportEnabled: false,
		AutoExportSubdir:  DefaultSubdir,
	}
}

// Apply merges p onto s and re-sanitizes the subdirectory.
func (s Settings) Apply(p SettingsPatch) Settings {
	next := s
	if p.AutoExportEnabled != nil {
		next.AutoExportEnabled = *p.AutoExportEnabled
	}
	if p.AutoExportSubdir != nil {
		next.AutoExportSubdir = *p.AutoExportSubdir
	}
	next.AutoExportSubdir = SanitizeSubdir(next.AutoExportSubdir)
	return next
}

// SanitizeSubdir normalizes a user-supplied relative directory:
// 1. Convert backslashes to forward slashes
// 2. Strip leading/trailing slashes and whitespace (repeatedly)
// 3. Fall back to DefaultSubdir when nothing is left
//
// Whitespace and slashes are trimmed together so the result is a fixed point:
// SanitizeSubdir(SanitizeSubdir(s)) == SanitizeSubdir(s).
func SanitizeSubdir(raw string) string {
	s := strings.ReplaceAll(raw, `\`, "/")
	s = strings.TrimFunc(s, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})
	if s == "" {
		return DefaultSubdir
	}
	return s
}
