package capture

import (
	"testing"
)

func TestSanitizeSubdir(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: DefaultSubdir},
		{name: "only spaces", input: "   ", want: DefaultSubdir},
		{name: "single slash", input: "/", want: DefaultSubdir},
		{name: "single backslash", input: `\`, want: DefaultSubdir},
		{name: "many slashes", input: "///", want: DefaultSubdir},
		{name: "backslashes converted", input: `a\b\c/`, want: "a/b/c"},
		{name: "leading and trailing slashes", input: "//inbox//", want: "inbox"},
		{name: "surrounding whitespace", input: "  any2ebook/inbox  ", want: "any2ebook/inbox"},
		{name: "whitespace inside slashes", input: " / reading / ", want: "reading"},
		{name: "internal spaces kept", input: "my links/inbox", want: "my links/inbox"},
		{name: "already clean", input: "any2ebook/inbox", want: "any2ebook/inbox"},
		{name: "windows style", input: `\\captures\\today\\`, want: "captures//today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSubdir(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeSubdir(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeSubdir_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "/", `\`, `a\b\c/`, " a / ", "/ \t/x/ \n", `\ \ \`,
		"inbox", "  //a//b//  ", " dir ", "a/ ", " /a",
	}
	for _, in := range inputs {
		once := SanitizeSubdir(in)
		twice := SanitizeSubdir(once)
		if once != twice {
			t.Errorf("SanitizeSubdir not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func FuzzSanitizeSubdir(f *testing.F) {
	for _, seed := range []string{"", "/", `\`, `a\b\c/`, " a / ", "any2ebook/inbox"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := SanitizeSubdir(s)
		if once == "" {
			t.Fatalf("SanitizeSubdir(%q) returned empty string", s)
		}
		if twice := SanitizeSubdir(once); twice != once {
			t.Fatalf("SanitizeSubdir(%q) = %q, second pass = %q", s, once, twice)
		}
	})
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.AutoExportEnabled {
		t.Error("AutoExportEnabled should default to false")
	}
	if s.AutoExportSubdir != "any2ebook/inbox" {
		t.Errorf("AutoExportSubdir = %q, want %q", s.AutoExportSubdir, "any2ebook/inbox")
	}
}

func TestSettingsApply(t *testing.T) {
	enabled := true
	subdir := `\reading\queue\`

	base := Settings{AutoExportEnabled: false, AutoExportSubdir: "custom/dir"}

	t.Run("enabled only keeps subdir", func(t *testing.T) {
		got := base.Apply(SettingsPatch{AutoExportEnabled: &enabled})
		if !got.AutoExportEnabled {
			t.Error("AutoExportEnabled = false, want true")
		}
		if got.AutoExportSubdir != "custom/dir" {
			t.Errorf("AutoExportSubdir = %q, want %q", got.AutoExportSubdir, "custom/dir")
		}
	})

	t.Run("subdir is sanitized", func(t *testing.T) {
		got := base.Apply(SettingsPatch{AutoExportSubdir: &subdir})
		if got.AutoExportSubdir != "reading/queue" {
			t.Errorf("AutoExportSubdir = %q, want %q", got.AutoExportSubdir, "reading/queue")
		}
		if got.AutoExportEnabled {
			t.Error("AutoExportEnabled changed by subdir-only patch")
		}
	})

	t.Run("empty patch sanitizes dirty base", func(t *testing.T) {
		dirty := Settings{AutoExportSubdir: "  "}
		got := dirty.Apply(SettingsPatch{})
		if got.AutoExportSubdir != DefaultSubdir {
			t.Errorf("AutoExportSubdir = %q, want %q", got.AutoExportSubdir, DefaultSubdir)
		}
	})

	t.Run("does not mutate receiver", func(t *testing.T) {
		_ = base.Apply(SettingsPatch{AutoExportEnabled: &enabled})
		if base.AutoExportEnabled {
			t.Error("Apply mutated the receiver")
		}
	})
}

func TestSettingsPatch_IsEmpty(t *testing.T) {
	if !(SettingsPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	b := false
	if (SettingsPatch{AutoExportEnabled: &b}).IsEmpty() {
		t.Error("patch with a field should not be empty")
	}
}
