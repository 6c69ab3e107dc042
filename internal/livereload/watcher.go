package livereload

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/hotplate-dev/hotplate/internal/config"
	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

// Watcher recursively watches a root directory and publishes the
// root-relative, forward-slash path of each surviving change onto a
// Bus, debounced per spec.md §4.1. It runs on a dedicated goroutine:
// fsnotify's own delivery already happens off the OS notifier thread,
// so this goroutine never shares a scheduler with request-handling
// code the way the original's tokio split keeps watching off the
// cooperative runtime.
type Watcher struct {
	Root   string
	Config config.Config
	Bus    *Bus
	Events *telemetry.EventLog
	Log    zerolog.Logger

	userGlobs []string
	fsw       *fsnotify.Watcher
}

// NewWatcher builds a Watcher rooted at cfg.Root, publishing onto bus.
// events may be nil (Append is a nil-safe no-op).
func NewWatcher(cfg config.Config, bus *Bus, events *telemetry.EventLog, log zerolog.Logger) *Watcher {
	return &Watcher{
		Root:      cfg.Root,
		Config:    cfg,
		Bus:       bus,
		Events:    events,
		Log:       log,
		userGlobs: cfg.IgnoreGlobs,
	}
}

// Start begins watching in the background. Call Close to stop.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	dirs, err := recursiveDirs(w.Root)
	if err != nil {
		fsw.Close()
		return err
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			w.Log.Warn().Err(err).Str("dir", d).Msg("failed to watch directory")
		}
	}

	go w.loop()
	return nil
}

// Close stops the watcher and releases the underlying notifier.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}

// window is the leading-edge throttle spec.md §4.1 mandates: "if less
// than 150ms has elapsed since the last emitted notification, drop;
// otherwise emit ... immediately." A sustained burst of sub-window
// events therefore still yields a notification roughly every window,
// rather than waiting for the burst to go quiet.
const window = 150 * time.Millisecond

func (w *Watcher) loop() {
	var lastEmit time.Time

	for {
		select {
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// A single bad notifier event must not kill the watcher
			// (spec.md §7(d)) — log and continue.
			w.Log.Warn().Err(err).Msg("watcher notifier error")

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRawEvent(ev)
			if !w.relevant(ev) {
				continue
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			now := time.Now()
			if now.Sub(lastEmit) < window {
				continue
			}
			lastEmit = now

			rel := w.relativize(ev.Name)
			w.Log.Debug().Str("path", rel).Msg("file changed")
			w.Events.Append(telemetry.KindFileChange, map[string]any{"path": rel})
			w.Bus.Publish(rel)
		}
	}
}

// handleRawEvent keeps the underlying watch set in sync with
// directory creation/rename/removal, independent of the debounce and
// filtering pipeline (so a renamed-away file doesn't leak a stale
// watch).
func (w *Watcher) handleRawEvent(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		if dirs, err := recursiveDirs(ev.Name); err == nil {
			for _, d := range dirs {
				_ = w.fsw.Add(d)
			}
		}
	case ev.Has(fsnotify.Rename), ev.Has(fsnotify.Remove):
		if dirs, err := recursiveDirs(ev.Name); err == nil {
			for _, d := range dirs {
				_ = w.fsw.Remove(d)
			}
		}
		_ = w.fsw.Remove(ev.Name)
	}
}

// relevant implements spec.md §4.1: "Only event kinds create, modify,
// remove are considered."
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove)
}

// shouldIgnore runs the four-step filtering pipeline of spec.md §4.1.
func (w *Watcher) shouldIgnore(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		for _, dir := range config.IgnoreDirs {
			if seg == dir {
				return true
			}
		}
	}

	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	lowerExt := strings.ToLower(ext)
	for _, bad := range config.IgnoreExts {
		if lowerExt == bad {
			return true
		}
	}

	if !w.Config.AllowsExtension(ext) {
		return true
	}

	if len(w.userGlobs) > 0 {
		rel := w.relativize(p)
		for _, pattern := range w.userGlobs {
			if ok, _ := path.Match(pattern, rel); ok {
				return true
			}
		}
	}

	return false
}

func (w *Watcher) relativize(p string) string {
	rel, err := filepath.Rel(w.Root, p)
	if err != nil {
		rel = p
	}
	return filepath.ToSlash(rel)
}

// recursiveDirs walks root and returns every directory beneath it
// (including root itself), the same shape as the teacher's
// recursiveWalk.
func recursiveDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		}
		return nil
	})
	return dirs, err
}
