// Package moderation appends user-report events to a single
// append-only log file.
//
// Many producers enqueue formatted event lines onto a bounded
// in-process queue; exactly one background consumer owns the file and
// drains the queue. The single-writer discipline keeps concurrent
// reports from interleaving half-written lines without any file
// locking.
package moderation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/octospacc/Pignio/internal/logger"
)

var (
	// ErrQueueFull is returned when the bounded queue cannot accept
	// another event. The event is dropped; producers never block.
	ErrQueueFull = errors.New("moderation: event queue full")

	// ErrStopped is returned when enqueueing after Stop.
	ErrStopped = errors.New("moderation: log stopped")
)

// Event is one immutable log line: kind@unixTimestamp:field,field,...
type Event struct {
	Kind   string
	Time   time.Time
	Fields []string
}

// Line renders the event in its on-disk format.
func (e Event) Line() string {
	return fmt.Sprintf("%s@%d:%s", e.Kind, e.Time.Unix(), strings.Join(e.Fields, ","))
}

// ParseEvent decodes one log line.
func ParseEvent(line string) (Event, error) {
	kind, rest, found := strings.Cut(line, "@")
	if !found {
		return Event{}, fmt.Errorf("moderation: malformed event %q", line)
	}
	stamp, payload, found := strings.Cut(rest, ":")
	if !found {
		return Event{}, fmt.Errorf("moderation: malformed event %q", line)
	}

	var unix int64
	if _, err := fmt.Sscanf(stamp, "%d", &unix); err != nil {
		return Event{}, fmt.Errorf("moderation: malformed timestamp in %q", line)
	}

	return Event{
		Kind:   kind,
		Time:   time.Unix(unix, 0).UTC(),
		Fields: strings.Split(payload, ","),
	}, nil
}

// Log is the single-writer moderation event log.
//
// Construct with New, call Start once, and Stop during shutdown; Stop
// drains queued events before closing the file. There are no
// import-time side effects: the consumer goroutine exists only between
// Start and Stop.
type Log struct {
	path  string
	queue chan Event

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
}

// New creates a Log writing to path with the given bounded queue size.
func New(path string, queueSize int) *Log {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Log{
		path:  path,
		queue: make(chan Event, queueSize),
	}
}

// Start launches the consumer goroutine. Starting twice is an error.
func (l *Log) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return errors.New("moderation: log already started")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create moderation log directory: %w", err)
	}

	l.started = true
	l.done = make(chan struct{})
	go l.consume()
	return nil
}

// Stop closes the queue and waits for the consumer to drain and exit.
func (l *Log) Stop() {
	l.mu.Lock()
	if !l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	close(l.queue)
	done := l.done
	l.mu.Unlock()

	<-done
}

// Report enqueues a user report for an item. Producers never write
// the file directly and never block: a full queue drops the event
// with ErrQueueFull.
func (l *Log) Report(itemID, reporter string) error {
	return l.Append(Event{
		Kind:   "report",
		Time:   time.Now(),
		Fields: []string{itemID, reporter},
	})
}

// Append enqueues an arbitrary event. The lock is held across the
// send so a concurrent Stop cannot close the queue mid-enqueue; the
// send itself never blocks.
func (l *Log) Append(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started || l.stopped {
		return ErrStopped
	}

	select {
	case l.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// consume is the single writer: dequeue, append, flush, repeat until
// the queue closes.
func (l *Log) consume() {
	defer close(l.done)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Error("moderation log unavailable: %v", err)
		// Drain the queue so producers and Stop never hang.
		for range l.queue {
		}
		return
	}
	defer f.Close()

	for event := range l.queue {
		if _, err := f.WriteString(event.Line() + "\n"); err != nil {
			logger.Error("failed to append moderation event: %v", err)
			continue
		}
		if err := f.Sync(); err != nil {
			logger.Warn("failed to flush moderation log: %v", err)
		}
	}
}

// ReadAll loads every event currently in the log file, oldest first.
// Intended for admin review tooling, not the hot path.
func (l *Log) ReadAll() ([]Event, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var events []Event
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		event, err := ParseEvent(line)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
