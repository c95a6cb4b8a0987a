package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troopbase/troopbase/pkg/observability"
)

// syncBuffer guards the log buffer against the watcher goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchAppliesLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troopbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("observability:\n  log_level: info\n"), 0o644))

	out := &syncBuffer{}
	logger := observability.NewLogger(observability.InfoLevel, out)

	watcher, err := Watch(path, logger)
	require.NoError(t, err)
	defer watcher.Close()

	logger.Debug("before reload")
	assert.NotContains(t, out.String(), "before reload")

	require.NoError(t, os.WriteFile(path, []byte("observability:\n  log_level: debug\n"), 0o644))

	require.Eventually(t, func() bool {
		logger.Debug("after reload")
		return bytes.Contains([]byte(out.String()), []byte("after reload"))
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchIgnoresMalformedReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troopbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("observability:\n  log_level: warn\n"), 0o644))

	out := &syncBuffer{}
	logger := observability.NewLogger(observability.WarnLevel, out)

	watcher, err := Watch(path, logger)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte("observability: [broken"), 0o644))

	// The bad file is reported and the previous level stays in force.
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Ignoring config reload"))
	}, 5*time.Second, 50*time.Millisecond)

	logger.Info("still suppressed")
	assert.NotContains(t, out.String(), "still suppressed")
}
