package scopecfg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// EventType represents the kind of scope-config change detected.
type EventType int

const (
	// EventTypeConfigured indicates a scope config file appeared or was replaced.
	EventTypeConfigured EventType = iota

	// EventTypeRemoved indicates the folder no longer holds a scope config file.
	EventTypeRemoved
)

// Event represents a detected scope-config presence change.
type Event struct {
	// Type is the change type
	Type EventType

	// Filename is the active file's base name (empty for removals)
	Filename string

	// Timestamp is when the change was detected
	Timestamp time.Time
}

// Watcher detects out-of-band changes to the scope-config folder.
//
// The REST API is the normal way the folder changes, but operators can also
// drop or delete files directly. The watcher keeps the daemon's view (logs,
// presence gauge) honest either way.
type Watcher struct {
	folder  *Folder
	watcher *fsnotify.Watcher
	events  chan Event
	stop    chan struct{}
	current string // last known active filename, "" when none
}

// NewWatcher creates a watcher for the scope-config folder.
func NewWatcher(folder *Folder) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		folder:  folder,
		watcher: watcher,
		events:  make(chan Event, 10),
		stop:    make(chan struct{}),
	}, nil
}

// Start begins watching the folder.
//
// Events are delivered on the Events() channel from a background goroutine.
// Call Stop() to clean up resources.
func (w *Watcher) Start(ctx context.Context) error {
	// Snapshot current state so only real changes emit events
	if name, err := w.folder.CurrentFilename(); err == nil {
		w.current = name
	}

	if err := w.watcher.Add(w.folder.Dir()); err != nil {
		return fmt.Errorf("watching scope config dir: %w", err)
	}

	go w.processEvents(ctx)

	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped
		return
	default:
		close(w.stop)
		_ = w.watcher.Close() // Best-effort cleanup, ignore error
	}
}

// Events returns the channel for receiving scope-config events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// processEvents processes filesystem events and emits presence changes.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.recheck()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Keep watching; the next event triggers a fresh recheck
		}
	}
}

// recheck compares the folder's active file against the last known state
// and emits an event when it changed.
func (w *Watcher) recheck() {
	name, err := w.folder.CurrentFilename()
	if err != nil {
		name = ""
	}

	if name == w.current {
		return
	}
	w.current = name

	event := Event{Timestamp: time.Now()}
	if name == "" {
		event.Type = EventTypeRemoved
	} else {
		event.Type = EventTypeConfigured
		event.Filename = name
	}

	// Send event (non-blocking)
	select {
	case w.events <- event:
	default:
		// Channel full, skip event
	}
}
