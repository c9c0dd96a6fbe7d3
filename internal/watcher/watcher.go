// Package watcher observes the script base folder for changes and
// delivers debounced change batches to registered handlers, typically a
// live reload broadcast and cache invalidation.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/srcserve/srcserve/internal/logging"
)

// ChangeEvent describes a single file change.
type ChangeEvent struct {
	Type EventType
	Path string
}

// EventType classifies a file change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Filter reports whether a changed path is of interest.
type Filter func(path string) bool

// Handler receives a debounced batch of change events.
type Handler func(events []ChangeEvent)

// ExtensionFilter keeps paths whose extension is in endings.
func ExtensionFilter(endings []string) Filter {
	set := make(map[string]struct{}, len(endings))
	for _, ending := range endings {
		set[strings.ToLower(ending)] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[strings.ToLower(filepath.Ext(path))]
		return ok
	}
}

// SkipHidden drops paths with a dot-prefixed or node_modules component.
func SkipHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "node_modules" {
			return false
		}
		if len(part) > 1 && strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

// Watcher watches the base folder for script changes with debouncing.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *debouncer
	filters   []Filter
	handlers  []Handler
	logger    logging.Logger
	mutex     sync.RWMutex
}

// New creates a Watcher that groups changes arriving within delay into a
// single batch.
func New(delay time.Duration, logger logging.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		debouncer: newDebouncer(delay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter registers a path filter. All filters must pass for an event
// to be delivered.
func (w *Watcher) AddFilter(filter Filter) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.filters = append(w.filters, filter)
}

// AddHandler registers a batch handler.
func (w *Watcher) AddHandler(handler Handler) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.handlers = append(w.handlers, handler)
}

// WatchRecursive watches root and every directory below it, skipping
// hidden directories and node_modules.
func (w *Watcher) WatchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if !SkipHidden(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Start runs the watch and dispatch loops until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.debouncer.run(ctx)
	go w.dispatchLoop(ctx)
	go w.watchLoop(ctx)
}

// Stop closes the underlying fs watcher.
func (w *Watcher) Stop() error {
	w.debouncer.stop()
	return w.fsWatcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(ctx, err, "watch error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.mutex.RLock()
	filters := w.filters
	w.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	var eventType EventType
	switch {
	case event.Op.Has(fsnotify.Create):
		eventType = EventCreated
	case event.Op.Has(fsnotify.Write):
		eventType = EventModified
	case event.Op.Has(fsnotify.Remove):
		eventType = EventDeleted
	case event.Op.Has(fsnotify.Rename):
		eventType = EventRenamed
	default:
		eventType = EventModified
	}

	w.debouncer.add(ChangeEvent{Type: eventType, Path: event.Name})
}

func (w *Watcher) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-w.debouncer.output:
			w.mutex.RLock()
			handlers := w.handlers
			w.mutex.RUnlock()

			w.logger.Debug(ctx, "dispatching change batch", "events", len(events))
			for _, handler := range handlers {
				handler(events)
			}
		}
	}
}

// debouncer groups rapid changes into one batch per quiet period.
type debouncer struct {
	delay   time.Duration
	input   chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		input:  make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.input:
			d.append(event)
		}
	}
}

func (d *debouncer) add(event ChangeEvent) {
	select {
	case d.input <- event:
	default:
		// Channel full, drop the event; the next change re-triggers.
	}
}

func (d *debouncer) append(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Deduplicate by path, keeping the latest event.
	latest := make(map[string]ChangeEvent, len(d.pending))
	order := make([]string, 0, len(d.pending))
	for _, event := range d.pending {
		if _, seen := latest[event.Path]; !seen {
			order = append(order, event.Path)
		}
		latest[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(latest))
	for _, path := range order {
		events = append(events, latest[path])
	}

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
