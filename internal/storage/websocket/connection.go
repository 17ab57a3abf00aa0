package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/redtable/combat-tracker/pkg/streaming"
)

const (
	frameQueueSize = 256
	ackQueueSize   = 16
	maxRedials     = 10
	maxBackoff     = 30 * time.Second
	writeWait      = 10 * time.Second
	ackTimeout     = 10 * time.Second
)

// displayLink is the session with one display server. Hellos and hits are
// written in order through frames. Snapshots are full turn orders, so only
// the newest unsent one is kept; the writer picks it up on snapshotReady.
type displayLink struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool

	frames        chan []byte
	snapshotReady chan struct{}
	acks          chan streaming.AckMessage
	done          chan struct{}

	endpoint string
	secret   string

	hello         []byte // opens every session, replayed on redial
	unsent        []byte // newest snapshot not yet written
	lastSnapshot  []byte // newest snapshot, for redial and resync
	droppedFrames int

	logger *slog.Logger
}

func newDisplayLink(logger *slog.Logger) *displayLink {
	return &displayLink{
		frames:        make(chan []byte, frameQueueSize),
		snapshotReady: make(chan struct{}, 1),
		acks:          make(chan streaming.AckMessage, ackQueueSize),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// open dials the display server and starts the reader and writer.
func (l *displayLink) open(endpoint, secret string) error {
	l.endpoint = endpoint
	l.secret = secret

	conn, err := l.dial()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go l.writer()
	go l.reader()
	return nil
}

// dial connects once, passing the secret as a query parameter.
func (l *displayLink) dial() (*ws.Conn, error) {
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", l.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (l *displayLink) current() *ws.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func writeFrame(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writer is the only goroutine writing to the socket. It exits on a write
// error, handing over to redial.
func (l *displayLink) writer() {
	for {
		var data []byte
		select {
		case <-l.done:
			return
		case data = <-l.frames:
		case <-l.snapshotReady:
			l.mu.Lock()
			data, l.unsent = l.unsent, nil
			l.mu.Unlock()
		}
		if data == nil {
			continue
		}

		conn := l.current()
		if conn == nil {
			continue
		}
		if err := writeFrame(conn, data); err != nil {
			l.logger.Warn("Display write failed", "error", err)
			go l.redial()
			return
		}
	}
}

// reader routes acks to the waiting sender and answers resync requests
// with the newest snapshot.
func (l *displayLink) reader() {
	for {
		conn := l.current()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			l.logger.Warn("Display read failed", "error", err)
			go l.redial()
			return
		}

		var msg streaming.AckMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			l.logger.Debug("Ignoring display message", "raw", string(message))
			continue
		}

		switch msg.Type {
		case streaming.TypeAck:
			select {
			case l.acks <- msg:
			default:
				l.logger.Debug("Ack queue full, dropping", "for", msg.For)
			}
		case streaming.TypeResync:
			l.mu.Lock()
			last := l.lastSnapshot
			l.mu.Unlock()
			if last != nil {
				l.logger.Debug("Display asked for resync")
				l.pushSnapshot(last)
			}
		}
	}
}

// backoff doubles from one second up to maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt > 16 {
		return maxBackoff
	}
	d := time.Second << (attempt - 1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// redial replaces a broken connection. On success the hello and the newest
// snapshot are written before anything else, so the display starts from
// the current turn order.
func (l *displayLink) redial() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
	l.mu.Unlock()

	for attempt := 1; attempt <= maxRedials; attempt++ {
		wait := backoff(attempt)
		l.logger.Info("Reconnecting to display", "attempt", attempt, "backoff", wait)
		select {
		case <-l.done:
			return
		case <-time.After(wait):
		}

		conn, err := l.dial()
		if err != nil {
			l.logger.Warn("Display redial failed", "attempt", attempt, "error", err)
			continue
		}

		l.mu.Lock()
		replay := [][]byte{l.hello, l.lastSnapshot}
		l.unsent = nil
		l.mu.Unlock()

		if err := replaySession(conn, replay); err != nil {
			l.logger.Warn("Failed to replay session after redial", "error", err)
			_ = conn.Close()
			continue
		}

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()

		l.logger.Info("Display reconnected", "attempt", attempt)
		go l.writer()
		go l.reader()
		return
	}

	l.logger.Error("Giving up on display server", "attempts", maxRedials)
}

func replaySession(conn *ws.Conn, frames [][]byte) error {
	for _, f := range frames {
		if f == nil {
			continue
		}
		if err := writeFrame(conn, f); err != nil {
			return err
		}
	}
	return nil
}

// pushSnapshot replaces any unsent snapshot with data.
func (l *displayLink) pushSnapshot(data []byte) {
	l.mu.Lock()
	l.unsent = data
	l.lastSnapshot = data
	l.mu.Unlock()

	select {
	case l.snapshotReady <- struct{}{}:
	default:
	}
}

// pushFrame queues an ordered frame, dropping it when the queue is full.
func (l *displayLink) pushFrame(data []byte) {
	select {
	case l.frames <- data:
	default:
		l.mu.Lock()
		l.droppedFrames++
		n := l.droppedFrames
		l.mu.Unlock()
		l.logger.Warn("Display queue full, dropping frame", "dropped", n)
	}
}

// pushAndWait queues data and waits for the server to ack ackFor.
func (l *displayLink) pushAndWait(data []byte, ackFor string, timeout time.Duration) error {
	l.pushFrame(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// shutdown sends a close frame and stops the reader and writer.
func (l *displayLink) shutdown() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return conn.Close()
}
