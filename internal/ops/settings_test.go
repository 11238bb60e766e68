package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/db"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestGetSettings_Defaults(t *testing.T) {
	env, _ := newTestEnv(t)

	s, err := GetSettings(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, capture.DefaultSettings(), s)
}

func TestGetSettings_SanitizesStoredSubdir(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, env.DB, KeyAutoExportSubdir, `\notes\inbox\`, fixedNow))

	s, err := GetSettings(ctx, env)
	require.NoError(t, err)
	require.Equal(t, "notes/inbox", s.AutoExportSubdir)
}

func TestGetSettings_MalformedFallsBack(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, env.DB, KeyAutoExportEnabled, "yes please", fixedNow))
	require.NoError(t, db.Set(ctx, env.DB, KeyAutoExportSubdir, 42, fixedNow))

	s, err := GetSettings(ctx, env)
	require.NoError(t, err)
	require.Equal(t, capture.DefaultSettings(), s)
}

func TestUpdateSettings_MergePreservesSubdir(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := UpdateSettings(ctx, env, capture.SettingsPatch{AutoExportSubdir: stringPtr("reading/queue")})
	require.NoError(t, err)

	out, err := UpdateSettings(ctx, env, capture.SettingsPatch{AutoExportEnabled: boolPtr(true)})
	require.NoError(t, err)
	require.True(t, out.AutoExportEnabled)
	require.Equal(t, "reading/queue", out.AutoExportSubdir)
	require.Equal(t, "Auto-export enabled.", out.Message)

	s, err := GetSettings(ctx, env)
	require.NoError(t, err)
	require.Equal(t, capture.Settings{AutoExportEnabled: true, AutoExportSubdir: "reading/queue"}, s)
}

func TestUpdateSettings_SanitizesBeforePersisting(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	out, err := UpdateSettings(ctx, env, capture.SettingsPatch{AutoExportSubdir: stringPtr(` /a\b\c/ `)})
	require.NoError(t, err)
	require.Equal(t, "a/b/c", out.AutoExportSubdir)
	require.Equal(t, "Auto-export folder saved.", out.Message)

	values, err := db.Get(ctx, env.DB, KeyAutoExportSubdir)
	require.NoError(t, err)
	require.JSONEq(t, `"a/b/c"`, string(values[KeyAutoExportSubdir]))

	out, err = UpdateSettings(ctx, env, capture.SettingsPatch{AutoExportSubdir: stringPtr("   ")})
	require.NoError(t, err)
	require.Equal(t, capture.DefaultSubdir, out.AutoExportSubdir)
}

func TestUpdateSettings_Messages(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	out, err := UpdateSettings(ctx, env, capture.SettingsPatch{AutoExportEnabled: boolPtr(false)})
	require.NoError(t, err)
	require.Equal(t, "Auto-export disabled.", out.Message)

	out, err = UpdateSettings(ctx, env, capture.SettingsPatch{
		AutoExportEnabled: boolPtr(true),
		AutoExportSubdir:  stringPtr("x"),
	})
	require.NoError(t, err)
	require.Equal(t, "Settings saved.", out.Message)
}

func TestUpdateSettings_EmptyPatch(t *testing.T) {
	env, _ := newTestEnv(t)

	_, err := UpdateSettings(context.Background(), env, capture.SettingsPatch{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
