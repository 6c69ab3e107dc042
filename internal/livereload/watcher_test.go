package livereload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotplate-dev/hotplate/internal/config"
)

func newTestWatcher(t *testing.T, root string, mutate func(*config.Config)) (*Watcher, *Bus) {
	t.Helper()
	cfg := config.New(root, root)
	if mutate != nil {
		mutate(&cfg)
	}
	bus := NewBus()
	w := NewWatcher(cfg, bus, nil, zerolog.Nop())
	return w, bus
}

func TestWatcherPublishesOnWrite(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o644))

	w, bus := newTestWatcher(t, root, nil)
	sub := bus.Subscribe()
	require.NoError(t, w.Start())
	defer w.Close()

	// Give fsnotify a moment to register the watch before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("<html>changed</html>"), 0o644))

	select {
	case rel := <-sub:
		assert.Equal(t, "index.html", rel)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestWatcherReEmitsDuringSustainedBurst(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o644))

	w, bus := newTestWatcher(t, root, nil)
	sub := bus.Subscribe()
	require.NoError(t, w.Start())
	defer w.Close()

	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(650 * time.Millisecond)
		for time.Now().Before(deadline) {
			_ = os.WriteFile(path, []byte("<html>churn</html>"), 0o644)
			time.Sleep(40 * time.Millisecond)
		}
	}()

	var count int
	timeout := time.After(1500 * time.Millisecond)
loop:
	for {
		select {
		case <-sub:
			count++
		case <-done:
			// Drain whatever arrives shortly after the burst ends.
			select {
			case <-sub:
				count++
			case <-time.After(200 * time.Millisecond):
			}
			break loop
		case <-timeout:
			break loop
		}
	}

	// A ~650ms burst of 40ms-spaced writes against a 150ms leading-edge
	// throttle should yield periodic re-emission (spec.md §4.1, testable
	// property 3), not a single trailing-edge notification once the
	// burst goes quiet.
	assert.Greater(t, count, 1)
}

func TestShouldIgnoreIgnoredDir(t *testing.T) {
	w, _ := newTestWatcher(t, t.TempDir(), nil)
	assert.True(t, w.shouldIgnore(filepath.Join(w.Root, "node_modules", "pkg", "index.js")))
}

func TestShouldIgnoreBadExtension(t *testing.T) {
	w, _ := newTestWatcher(t, t.TempDir(), nil)
	assert.True(t, w.shouldIgnore(filepath.Join(w.Root, "main.swp")))
}

func TestShouldIgnoreOutsideWhitelist(t *testing.T) {
	w, _ := newTestWatcher(t, t.TempDir(), nil)
	assert.True(t, w.shouldIgnore(filepath.Join(w.Root, "main.rs")))
}

func TestShouldIgnoreWildcardWhitelist(t *testing.T) {
	w, _ := newTestWatcher(t, t.TempDir(), func(cfg *config.Config) {
		cfg.WatchExtensions = []string{"*"}
	})
	assert.False(t, w.shouldIgnore(filepath.Join(w.Root, "main.rs")))
}

func TestShouldIgnoreUserGlob(t *testing.T) {
	w, _ := newTestWatcher(t, t.TempDir(), func(cfg *config.Config) {
		cfg.IgnoreGlobs = []string{"*.generated.css"}
	})
	assert.True(t, w.shouldIgnore(filepath.Join(w.Root, "app.generated.css")))
	assert.False(t, w.shouldIgnore(filepath.Join(w.Root, "app.css")))
}

func TestRelativize(t *testing.T) {
	w, _ := newTestWatcher(t, "/workspace/site", nil)
	assert.Equal(t, "css/app.css", w.relativize("/workspace/site/css/app.css"))
}
