package task

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepScratch(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	stale := filepath.Join(dir, "stale.jpg")
	fresh := filepath.Join(dir, "fresh.jpg")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("y"), 0o644))
	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	b := NewBroker(dir)
	b.now = func() time.Time { return now }

	assert.Equal(t, 1, b.SweepScratch())
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.Equal(t, 0, b.SweepScratch())
}

func TestSweepScratch_MissingDir(t *testing.T) {
	b := NewBroker(filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, 0, b.SweepScratch())
}

func TestBrokerLifecycle(t *testing.T) {
	b := NewBroker(t.TempDir())
	b.RegisterCronJobs()
	assert.Len(t, b.cron.Entries(), 1)
	b.Start()
	b.Stop()
}
