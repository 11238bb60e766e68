package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGet_MissingKeys(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	got, err := Get(context.Background(), db, "queue", "autoExportEnabled")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = Get(context.Background(), db)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSetAndGet(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	require.NoError(t, Set(ctx, db, "autoExportEnabled", true, now))
	require.NoError(t, Set(ctx, db, "autoExportSubdir", "notes/inbox", now))

	got, err := Get(ctx, db, "autoExportEnabled", "autoExportSubdir", "queue")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.JSONEq(t, `true`, string(got["autoExportEnabled"]))
	require.JSONEq(t, `"notes/inbox"`, string(got["autoExportSubdir"]))

	// Overwrite replaces, never duplicates.
	require.NoError(t, Set(ctx, db, "autoExportEnabled", false, now.Add(time.Second)))
	got, err = Get(ctx, db, "autoExportEnabled")
	require.NoError(t, err)
	require.JSONEq(t, `false`, string(got["autoExportEnabled"]))

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&rows))
	require.Equal(t, 2, rows)
}

func TestUpdate_CommitsAndRollsBack(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	err = Update(ctx, db, func(tx *sql.Tx) error {
		if err := Set(ctx, tx, "a", 1, now); err != nil {
			return err
		}
		return Set(ctx, tx, "b", []string{"x"}, now)
	})
	require.NoError(t, err)

	err = Update(ctx, db, func(tx *sql.Tx) error {
		if err := Set(ctx, tx, "a", 2, now); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.EqualError(t, err, "abort")

	got, err := Get(ctx, db, "a", "b")
	require.NoError(t, err)

	var a int
	require.NoError(t, json.Unmarshal(got["a"], &a))
	require.Equal(t, 1, a, "rolled back write must not be visible")
	require.JSONEq(t, `["x"]`, string(got["b"]))
}
