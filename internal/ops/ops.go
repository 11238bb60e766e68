package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hpungsan/tinycapture/internal/browser"
	"github.com/hpungsan/tinycapture/internal/config"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/logging"
)

// Storage keys in the key/value namespace.
const (
	KeyQueue             = "queue"
	KeyAutoExportEnabled = "autoExportEnabled"
	KeyAutoExportSubdir  = "autoExportSubdir"
)

// LockFileName guards queue and settings mutations across processes.
const LockFileName = "capture.lock"

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env carries everything an operation touches: storage, the browser
// primitives, config and logging.
type Env struct {
	DB        *sql.DB
	Config    *config.Config
	Tabs      browser.TabQuerier
	Downloads browser.Downloader
	Blobs     *browser.ObjectURLs
	Logger    *slog.Logger
	Now       func() time.Time

	// DownloadsDir is where exports land; import reads from it.
	DownloadsDir string

	mu   sync.Mutex
	lock *flock.Flock
}

// NewEnv wires the default browser primitives for baseDir.
// Exports go to the configured downloads directory. The active tab comes from
// the DevTools endpoint when one is configured; otherwise Tabs is nil and
// callers pass the URL with each capture.
func NewEnv(baseDir string, database *sql.DB, cfg *config.Config, logger *slog.Logger) (*Env, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	downloadsDir, err := cfg.ResolveDownloadsDir()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	blobs := browser.NewObjectURLs()
	env := &Env{
		DB:           database,
		Config:       cfg,
		Downloads:    &browser.DirDownloader{Dir: downloadsDir, Blobs: blobs},
		Blobs:        blobs,
		Logger:       logger,
		Now:          time.Now,
		DownloadsDir: downloadsDir,
		lock:         flock.New(filepath.Join(baseDir, LockFileName)),
	}
	if cfg.DevToolsEndpoint != "" {
		env.Tabs = browser.NewDevToolsTabs(cfg.DevToolsEndpoint)
	}
	return env, nil
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.Nop()
}

// withLock runs fn holding the in-process mutex and the cross-process file lock.
// A flock.Flock is re-entrant for its own holder, so the mutex is what keeps
// two goroutines sharing one Env apart.
func (e *Env) withLock(ctx context.Context, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lock != nil {
		locked, err := e.lock.TryLockContext(ctx, 25*time.Millisecond)
		if err != nil {
			if ctx.Err() != nil {
				return errors.NewCancelled("mutation")
			}
			return errors.NewInternal(fmt.Errorf("acquire %s: %w", LockFileName, err))
		}
		if !locked {
			return errors.NewInternal(fmt.Errorf("acquire %s: not locked", LockFileName))
		}
		defer func() {
			if err := e.lock.Unlock(); err != nil {
				e.logger().Warn("failed to release lock", "error", err)
			}
		}()
	}

	return fn()
}
