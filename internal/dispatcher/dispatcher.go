package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownCommand is returned by Dispatch when no handler is registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrClosed is returned by Dispatch once Close has been called.
	ErrClosed = errors.New("dispatcher closed")
)

// Event is one tracker command, e.g. {":HIT:", ["c1", "3", "12", "bypass"]}.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(o *options) {
		o.logged = true
	}
}

// Dispatcher routes events to registered handlers. Handlers run on the
// caller's goroutine; Close waits for the ones in flight.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
	rejected  metric.Int64Counter
	inFlight  metric.Int64UpDownCounter
	duration  metric.Float64Histogram

	mu      sync.RWMutex
	running sync.WaitGroup
	closed  bool
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	m := meter()
	var err error

	if d.processed, err = m.Int64Counter(
		"tracker.commands.processed",
		metric.WithDescription("Commands handled successfully"),
	); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	if d.failed, err = m.Int64Counter(
		"tracker.commands.failed",
		metric.WithDescription("Commands rejected by their handler"),
	); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	if d.rejected, err = m.Int64Counter(
		"tracker.commands.rejected",
		metric.WithDescription("Commands with no handler or sent after shutdown"),
	); err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	if d.inFlight, err = m.Int64UpDownCounter(
		"tracker.commands.in_flight",
		metric.WithDescription("Commands currently being handled"),
	); err != nil {
		return nil, fmt.Errorf("creating in-flight counter: %w", err)
	}

	if d.duration, err = m.Float64Histogram(
		"tracker.commands.duration",
		metric.WithDescription("Command handling time"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Registering a command again replaces its handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	handler := d.withMetrics(command, h)
	if o.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.reject(e.Command, "closed")
		return nil, fmt.Errorf("%w: %s", ErrClosed, e.Command)
	}
	h, ok := d.handlers[e.Command]
	if ok {
		d.running.Add(1)
	}
	d.mu.RUnlock()

	if !ok {
		d.reject(e.Command, "unknown")
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	defer d.running.Done()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

func (d *Dispatcher) reject(command, reason string) {
	d.rejected.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("reason", reason),
	))
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cmds := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		cmds = append(cmds, cmd)
	}
	slices.Sort(cmds)
	return cmds
}

// Close rejects further events and waits for running handlers to return.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.running.Wait()
}

func (d *Dispatcher) withMetrics(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := metric.WithAttributes(attribute.String("command", command))
	return func(e Event) (any, error) {
		ctx := context.Background()
		d.inFlight.Add(ctx, 1, cmdAttr)
		start := time.Now()

		result, err := h(e)

		d.inFlight.Add(ctx, -1, cmdAttr)
		d.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, cmdAttr)
		if err != nil {
			d.failed.Add(ctx, 1, cmdAttr)
		} else {
			d.processed.Add(ctx, 1, cmdAttr)
		}
		return result, err
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
