package counter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "downloads.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRecordEventAccumulates(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordEvent("report.zip", base.Add(time.Duration(i)*time.Minute)))
	}
	require.NoError(t, s.RecordEvent("setup.exe", base))

	rows, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "report.zip", rows[0].Filename)
	assert.EqualValues(t, 5, rows[0].Total)
	assert.True(t, base.Add(4*time.Minute).Equal(rows[0].Timestamp))
	assert.Equal(t, "setup.exe", rows[1].Filename)
	assert.EqualValues(t, 1, rows[1].Total)
}

func TestStoreRecordEventLastWriteWins(t *testing.T) {
	s := openTestStore(t)
	newer := time.Date(2022, 3, 1, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	require.NoError(t, s.RecordEvent("report.zip", newer))
	// An older timestamp applied later still replaces the stored one:
	// last write wins, not max-of-all.
	require.NoError(t, s.RecordEvent("report.zip", older))

	rows, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0].Total)
	assert.True(t, older.Equal(rows[0].Timestamp))
}

func TestStoreWatermark(t *testing.T) {
	s := openTestStore(t)

	// Empty table yields the zero time.
	wm, err := s.Watermark()
	require.NoError(t, err)
	assert.True(t, wm.IsZero())

	t1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)
	require.NoError(t, s.RecordEvent("a.zip", t2))
	require.NoError(t, s.RecordEvent("b.zip", t1))

	wm, err = s.Watermark()
	require.NoError(t, err)
	assert.True(t, t2.Equal(wm))
}

func TestStoreReinitializeDropsRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordEvent("a.zip", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, s.Reinitialize())

	rows, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, rows)

	// The recreated table accepts new events.
	require.NoError(t, s.RecordEvent("a.zip", time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)))
	rows, err = s.Snapshot()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0].Total)
}

func TestStoreSnapshotOrderIsInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	names := []string{"z.zip", "a.zip", "m.zip"}
	for _, n := range names {
		require.NoError(t, s.RecordEvent(n, ts))
	}

	rows, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, n := range names {
		assert.Equal(t, n, rows[i].Filename)
		assert.Equal(t, uint(i+1), rows[i].ID)
	}
}

func TestOpenStoreIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "downloads.db")

	s, err := OpenStore(path, testLogger())
	require.NoError(t, err)
	ts := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordEvent("a.zip", ts))
	require.NoError(t, s.Close())

	// Reopening migrates in place without losing rows.
	s, err = OpenStore(path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a.zip", rows[0].Filename)
}
