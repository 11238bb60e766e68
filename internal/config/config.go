package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ProjectDirName is the per-project override directory searched upward from the working dir.
const ProjectDirName = ".tinycapture"

// Config holds application configuration.
type Config struct {
	// DownloadsDir is the platform's default download location.
	// Exports are written relative to it. Empty means ~/Downloads.
	DownloadsDir string `json:"downloads_dir,omitempty" toml:"downloads_dir,omitempty"`

	// ObjectURLTTLSeconds is how long a staged export buffer stays resolvable
	// after the download was initiated.
	ObjectURLTTLSeconds int `json:"object_url_ttl_seconds,omitempty" toml:"object_url_ttl_seconds,omitempty"`

	// AllowedPaths lists extra directories import may read from, besides the
	// downloads directory and its auto-export folder. Only absolute paths are used.
	AllowedPaths []string `json:"allowed_paths,omitempty" toml:"allowed_paths,omitempty"`

	// DevToolsEndpoint is an optional Chrome DevTools HTTP endpoint
	// (e.g. http://127.0.0.1:9222) used to resolve the focused tab.
	DevToolsEndpoint string `json:"devtools_endpoint,omitempty" toml:"devtools_endpoint,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" toml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" toml:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" toml:"disabled_tools,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" toml:"log_level,omitempty"`

	// LogFormat is console or json. Empty picks console on a terminal, json otherwise.
	LogFormat string `json:"log_format,omitempty" toml:"log_format,omitempty"`

	// WebBind and WebPort locate the popup panel server.
	WebBind string `json:"web_bind,omitempty" toml:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty" toml:"web_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ObjectURLTTLSeconds: 5,
		LogLevel:            "info",
		WebBind:             "127.0.0.1",
		WebPort:             7842,
	}
}

// ResolveDownloadsDir returns DownloadsDir, defaulting to ~/Downloads.
func (c *Config) ResolveDownloadsDir() (string, error) {
	if c != nil && strings.TrimSpace(c.DownloadsDir) != "" {
		return expandHome(strings.TrimSpace(c.DownloadsDir))
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// ObjectURLTTL returns the staging buffer lifetime.
func (c *Config) ObjectURLTTL() time.Duration {
	if c == nil || c.ObjectURLTTLSeconds < 0 {
		return 0
	}
	return time.Duration(c.ObjectURLTTLSeconds) * time.Second
}

// Load loads configuration from baseDir/config.toml or baseDir/config.json.
// Returns default config if neither file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.tinycapture.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadDirRaw(baseDir)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithProject loads the global config and the nearest project config found by
// walking upward from startDir. Project values take precedence for scalars;
// arrays are merged (deduplicated). Either or both may be missing.
func LoadWithProject(globalDir, startDir string) (*Config, error) {
	global, err := loadDirRaw(globalDir)
	if err != nil {
		return nil, err
	}

	project := &Config{}
	if dir := FindProjectDir(startDir); dir != "" {
		project, err = loadDirRaw(dir)
		if err != nil {
			return nil, err
		}
	}

	return Merge(Merge(DefaultConfig(), global), project), nil
}

// FindProjectDir walks upward from startDir to find the nearest .tinycapture directory
// that holds a config file. Returns empty string if none is found.
func FindProjectDir(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, ProjectDirName)
		if configFile(candidate) != "" {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// configFile returns the config file inside dir, preferring TOML.
func configFile(dir string) string {
	for _, name := range []string{"config.toml", "config.json"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadDirRaw loads whichever config file dir holds.
// Returns zero-valued config if there is none (not defaults).
func loadDirRaw(dir string) (*Config, error) {
	path := configFile(dir)
	if path == "" {
		return &Config{}, nil
	}
	return loadFileRaw(path)
}

// loadFileRaw decodes a single config file by extension.
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch filepath.Ext(configPath) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.DownloadsDir = firstString(overlay.DownloadsDir, base.DownloadsDir)
	result.DevToolsEndpoint = firstString(overlay.DevToolsEndpoint, base.DevToolsEndpoint)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstString(overlay.LogFormat, base.LogFormat)
	result.WebBind = firstString(overlay.WebBind, base.WebBind)

	result.ObjectURLTTLSeconds = firstInt(overlay.ObjectURLTTLSeconds, base.ObjectURLTTLSeconds)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.WebPort = firstInt(overlay.WebPort, base.WebPort)

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(p, "~")), nil
}
