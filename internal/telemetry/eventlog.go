package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// maxSessionFiles is how many past events-*.jsonl files are kept
// (spec.md §5: "the ten most recent session files are kept; older
// ones are deleted"), matching original_source/src/events.rs's
// cleanup_old_sessions.
const maxSessionFiles = 10

// EventLog appends Records to a single append-only JSONL file, one per
// server run, through a dedicated writer goroutine so concurrent
// Append calls never interleave partial lines (spec.md §5, C6).
//
// Grounded on original_source/src/events.rs's EventLogger (mpsc
// channel + background writer task), translated to a Go channel plus
// goroutine. The log field is a caller-supplied zerolog.Logger used only
// for the writer's own warnings, never for the records themselves.
type EventLog struct {
	session string
	enabled bool
	ch      chan Record
	done    chan struct{}
	log     zerolog.Logger
}

// Open starts an EventLog writing to dir/events-<session>.jsonl,
// pruning older session files beyond maxSessionFiles. If enabled is
// false, Append is a cheap no-op (spec.md: event logging can be
// disabled via configuration).
func Open(dir, session string, enabled bool, log zerolog.Logger) (*EventLog, error) {
	el := &EventLog{
		session: session,
		enabled: enabled,
		ch:      make(chan Record, 256),
		done:    make(chan struct{}),
		log:     log,
	}
	if !enabled {
		close(el.done)
		return el, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create event log dir: %w", err)
	}
	if err := pruneOldSessions(dir, session); err != nil {
		log.Warn().Err(err).Msg("failed to prune old session logs")
	}

	path := filepath.Join(dir, fmt.Sprintf("events-%s.jsonl", session))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open event log: %w", err)
	}

	go el.writeLoop(f)
	return el, nil
}

// Append enqueues a Record of the given kind for durable logging. It
// never blocks the caller on disk I/O; if the writer is backed up past
// its buffer, the record is dropped and a warning logged — matching
// the bus's own lossy-under-load stance (spec.md §4.2).
func (el *EventLog) Append(kind string, data any) {
	if el == nil || !el.enabled {
		return
	}
	rec := Record{
		Time:    time.Now().UTC(),
		Session: el.session,
		Kind:    kind,
		Data:    data,
	}
	select {
	case el.ch <- rec:
	default:
		el.log.Warn().Str("kind", kind).Msg("event log backlog full, dropping record")
	}
}

// Close stops the writer goroutine and closes the underlying file.
func (el *EventLog) Close() {
	if el == nil || !el.enabled {
		return
	}
	close(el.ch)
	<-el.done
}

func (el *EventLog) writeLoop(f *os.File) {
	defer close(el.done)
	defer f.Close()

	enc := json.NewEncoder(f)
	for rec := range el.ch {
		if err := enc.Encode(rec); err != nil {
			el.log.Warn().Err(err).Msg("failed to write event record")
		}
	}
}

// pruneOldSessions deletes all but the maxSessionFiles-1 most recent
// events-*.jsonl files in dir, making room for the new current
// session's file (spec.md §5).
func pruneOldSessions(dir, currentSession string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) > len("events-")+len(".jsonl") &&
			name[:len("events-")] == "events-" &&
			filepath.Ext(name) == ".jsonl" {
			files = append(files, name)
		}
	}
	sort.Strings(files) // session ids are lexically sortable by construction

	keep := maxSessionFiles - 1
	if len(files) <= keep {
		return nil
	}
	for _, name := range files[:len(files)-keep] {
		_ = os.Remove(filepath.Join(dir, name))
	}
	return nil
}

// ListSessions returns the session ids discoverable in dir, oldest
// first, for the hotplate_server_logs "list sessions" mode (spec.md
// §6, C9).
func ListSessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sessions []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".jsonl" {
			continue
		}
		const prefix, suffix = "events-", ".jsonl"
		if len(name) > len(prefix)+len(suffix) && name[:len(prefix)] == prefix {
			sessions = append(sessions, name[len(prefix):len(name)-len(suffix)])
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}

// ReadSession returns every Record logged for the given session id.
func ReadSession(dir, session string) ([]Record, error) {
	path := filepath.Join(dir, fmt.Sprintf("events-%s.jsonl", session))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// ReadAllSessions returns every Record across every retained session
// file, oldest session first.
func ReadAllSessions(dir string) ([]Record, error) {
	sessions, err := ListSessions(dir)
	if err != nil {
		return nil, err
	}
	var all []Record
	for _, s := range sessions {
		recs, err := ReadSession(dir, s)
		if err != nil {
			continue
		}
		all = append(all, recs...)
	}
	return all, nil
}

func decodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var out []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}
