package capture

import "testing"

func TestIsInternalURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"about:preferences", true},
		{"about:blank", true},
		{"chrome://settings", true},
		{"chrome:newtab", true},
		{"moz-extension://1234/popup.html", true},
		{"https://example.com/", false},
		{"http://about.com/", false},
		{"file:///tmp/a.html", false},
		{"", false},
		{"ABOUT:config", false}, // prefixes are matched case-sensitively
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsInternalURL(tt.url); got != tt.want {
				t.Errorf("IsInternalURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestInternalSchemePrefixes_Copy(t *testing.T) {
	p := InternalSchemePrefixes()
	if len(p) != 3 {
		t.Fatalf("len = %d, want 3", len(p))
	}
	p[0] = "mutated"
	if !IsInternalURL("about:blank") {
		t.Error("mutating the returned slice changed the rejection list")
	}
}
