package journal

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockJournal(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS artifacts").WillReturnResult(sqlmock.NewResult(0, 0))
	j, err := New(db)
	require.NoError(t, err)
	return j, mock
}

func TestNew(t *testing.T) {
	t.Run("nil database", func(t *testing.T) {
		j, err := New(nil)
		assert.Nil(t, j)
		assert.Contains(t, err.Error(), "database connection is required")
	})

	t.Run("table creation error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS artifacts").WillReturnError(errors.New("disk full"))
		j, err := New(db)
		assert.Nil(t, j)
		assert.Contains(t, err.Error(), "failed to ensure journal tables")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestArtifactHash(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		j, mock := setupMockJournal(t)
		mock.ExpectQuery("SELECT hash FROM artifacts WHERE path").
			WithArgs("/out/a.xml").
			WillReturnRows(sqlmock.NewRows([]string{"hash"}).AddRow("abc"))

		hash, ok, err := j.ArtifactHash(ctx, "/out/a.xml")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", hash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		j, mock := setupMockJournal(t)
		mock.ExpectQuery("SELECT hash FROM artifacts").WillReturnError(sql.ErrNoRows)

		_, ok, err := j.ArtifactHash(ctx, "/out/a.xml")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("query error", func(t *testing.T) {
		j, mock := setupMockJournal(t)
		mock.ExpectQuery("SELECT hash FROM artifacts").WillReturnError(errors.New("locked"))

		_, _, err := j.ArtifactHash(ctx, "/out/a.xml")
		assert.Contains(t, err.Error(), "failed to read artifact hash")
	})
}

func TestRecordSync(t *testing.T) {
	ctx := context.Background()
	j, mock := setupMockJournal(t)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &SyncRecord{
		Product:    "EssentialKit",
		Operation:  "prebuild",
		Status:     "success",
		Written:    2,
		Unchanged:  1,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}

	mock.ExpectExec("INSERT INTO syncs").
		WithArgs("EssentialKit", "prebuild", "success", 2, 1, "", start, start.Add(time.Second)).
		WillReturnResult(sqlmock.NewResult(7, 1))

	require.NoError(t, j.RecordSync(ctx, rec))
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, time.Second, rec.Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastSyncs(t *testing.T) {
	ctx := context.Background()
	j, mock := setupMockJournal(t)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "product", "operation", "status", "written", "unchanged", "error", "started_at", "finished_at"}).
		AddRow(3, "AdsKit", "sync", "error", 0, 0, "boom", start, start).
		AddRow(5, "EssentialKit", "prebuild", "success", 2, 0, "", start, start)
	mock.ExpectQuery("SELECT id, product").WillReturnRows(rows)

	records, err := j.LastSyncs(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "AdsKit", records[0].Product)
	assert.Equal(t, "boom", records[0].Error)
	assert.Equal(t, 2, records[1].Written)
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Ping(ctx))
	require.NoError(t, j.RecordArtifact(ctx, "android-manifest", "/out/a.xml", "h1"))
	require.NoError(t, j.RecordArtifact(ctx, "android-manifest", "/out/a.xml", "h2"))

	hash, ok, err := j.ArtifactHash(ctx, "/out/a.xml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "h2", hash)

	now := time.Now().UTC().Truncate(time.Second)
	for _, op := range []string{"sync", "prebuild"} {
		require.NoError(t, j.RecordSync(ctx, &SyncRecord{Product: "EssentialKit", Operation: op, Status: "success", StartedAt: now, FinishedAt: now}))
	}
	records, err := j.LastSyncs(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "prebuild", records[0].Operation)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
