package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
)

// Sink persists audit events. The SQLite store implements it.
type Sink interface {
	AppendAuditEvent(ctx context.Context, event *Event) error
}

// Notifier receives a rendered message for severe events. Optional.
type Notifier interface {
	Notify(text string)
}

const defaultBufferSize = 256

// Logger queues events and persists them on a background goroutine so audit
// writes never block or fail the triggering operation.
type Logger struct {
	sink     Sink
	notifier Notifier
	log      *logging.Logger
	events   chan *Event

	dropMu  sync.Mutex
	dropped int64
	onDrop  func()

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option configures a Logger.
type Option func(*Logger)

// WithNotifier forwards error/critical events to an operator notifier.
func WithNotifier(n Notifier) Option {
	return func(l *Logger) {
		l.notifier = n
	}
}

// WithDropHook runs fn each time an event is dropped. Used to feed a
// metrics counter.
func WithDropHook(fn func()) Option {
	return func(l *Logger) {
		l.onDrop = fn
	}
}

// WithBufferSize overrides the event queue size.
func WithBufferSize(size int) Option {
	return func(l *Logger) {
		if size > 0 {
			l.events = make(chan *Event, size)
		}
	}
}

// NewLogger creates a Logger and starts its writer goroutine.
func NewLogger(sink Sink, log *logging.Logger, opts ...Option) *Logger {
	l := &Logger{
		sink:   sink,
		log:    log,
		events: make(chan *Event, defaultBufferSize),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.wg.Add(1)
	go l.run()
	return l
}

// Record enqueues an event without blocking. If the queue is full the event
// is dropped and counted; the caller never waits on audit I/O.
func (l *Logger) Record(event *Event) {
	select {
	case l.events <- event:
	default:
		l.dropMu.Lock()
		l.dropped++
		l.dropMu.Unlock()
		if l.onDrop != nil {
			l.onDrop()
		}
		l.log.Warn("audit queue full, event dropped", "kind", string(event.Kind))
	}
}

// Dropped returns how many events were discarded due to a full queue.
func (l *Logger) Dropped() int64 {
	l.dropMu.Lock()
	defer l.dropMu.Unlock()
	return l.dropped
}

// Close stops accepting events and drains the queue.
func (l *Logger) Close() {
	l.stopOnce.Do(func() {
		close(l.events)
	})
	l.wg.Wait()
}

func (l *Logger) run() {
	defer l.wg.Done()

	for event := range l.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := l.sink.AppendAuditEvent(ctx, event); err != nil {
			// Swallowed: audit failures surface only in local diagnostics.
			l.log.Error("failed to persist audit event",
				"kind", string(event.Kind),
				"error", err.Error(),
			)
		}
		cancel()

		if l.notifier != nil && (event.Severity == SeverityError || event.Severity == SeverityCritical) {
			l.notifier.Notify(renderNotification(event))
		}
	}
}

func renderNotification(event *Event) string {
	if event.UserID != "" {
		return fmt.Sprintf("[%s] %s user=%s", event.Severity, event.Kind, event.UserID)
	}
	return fmt.Sprintf("[%s] %s", event.Severity, event.Kind)
}
