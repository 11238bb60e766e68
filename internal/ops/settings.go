package ops

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/db"
	"github.com/hpungsan/tinycapture/internal/errors"
)

// SettingsOutput contains the result of the UpdateSettings operation.
type SettingsOutput struct {
	capture.Settings
	Message string `json:"message"`
}

// GetSettings returns the stored settings with defaults applied.
// Missing or malformed values fall back to their defaults.
func GetSettings(ctx context.Context, env *Env) (capture.Settings, error) {
	return readSettings(ctx, env, env.DB)
}

// UpdateSettings applies patch to the stored settings and persists the result
// in one transaction. The subdirectory is sanitized before it is written.
func UpdateSettings(ctx context.Context, env *Env, patch capture.SettingsPatch) (*SettingsOutput, error) {
	if patch.IsEmpty() {
		return nil, errors.NewInvalidRequest("no settings to update")
	}

	var next capture.Settings
	err := env.withLock(ctx, func() error {
		return db.Update(ctx, env.DB, func(tx *sql.Tx) error {
			current, err := readSettings(ctx, env, tx)
			if err != nil {
				return err
			}
			next = current.Apply(patch)

			now := env.now()
			if err := db.Set(ctx, tx, KeyAutoExportEnabled, next.AutoExportEnabled, now); err != nil {
				return err
			}
			return db.Set(ctx, tx, KeyAutoExportSubdir, next.AutoExportSubdir, now)
		})
	})
	if err != nil {
		return nil, err
	}

	env.logger().Info("settings saved",
		"auto_export_enabled", next.AutoExportEnabled,
		"auto_export_subdir", next.AutoExportSubdir,
	)
	return &SettingsOutput{Settings: next, Message: settingsMessage(patch, next)}, nil
}

func settingsMessage(patch capture.SettingsPatch, s capture.Settings) string {
	switch {
	case patch.AutoExportEnabled != nil && patch.AutoExportSubdir != nil:
		return "Settings saved."
	case patch.AutoExportEnabled != nil && s.AutoExportEnabled:
		return "Auto-export enabled."
	case patch.AutoExportEnabled != nil:
		return "Auto-export disabled."
	default:
		return "Auto-export folder saved."
	}
}

func readSettings(ctx context.Context, env *Env, q db.Querier) (capture.Settings, error) {
	s := capture.DefaultSettings()

	values, err := db.Get(ctx, q, KeyAutoExportEnabled, KeyAutoExportSubdir)
	if err != nil {
		return s, err
	}

	if raw, ok := values[KeyAutoExportEnabled]; ok {
		var enabled bool
		if err := json.Unmarshal(raw, &enabled); err != nil {
			env.logger().Warn("ignoring malformed setting", "key", KeyAutoExportEnabled, "error", err)
		} else {
			s.AutoExportEnabled = enabled
		}
	}
	if raw, ok := values[KeyAutoExportSubdir]; ok {
		var subdir string
		if err := json.Unmarshal(raw, &subdir); err != nil {
			env.logger().Warn("ignoring malformed setting", "key", KeyAutoExportSubdir, "error", err)
		} else {
			s.AutoExportSubdir = subdir
		}
	}

	s.AutoExportSubdir = capture.SanitizeSubdir(s.AutoExportSubdir)
	return s, nil
}
