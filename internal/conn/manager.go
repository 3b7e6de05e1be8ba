// Package conn maintains at most one live websocket per session and turns
// an unreliable transport into a single ordered stream of decoded messages:
// dial, read pump, backoff-driven reconnect after abnormal closure, and an
// outbound queue flushed in order whenever a connection comes up.
package conn

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/sclipsync/internal/types"
)

// streamPath is the websocket endpoint, keyed by session id.
const streamPath = "/api/stream/"

// Handler receives every decoded inbound message, in transport order.
type Handler func(types.Message)

// Manager owns the session stream. Construct with New, wire a Handler, then
// call Connect. All methods are safe for concurrent use.
type Manager struct {
	serverURL string
	handler   Handler
	dialer    *websocket.Dialer
	backoff   *Backoff
	queue     *sendQueue
	onStatus  func(types.ConnectionStatus)
	onError   func(error)
	resume    func() types.MessageID
	write     func(c *websocket.Conn, payload any) error

	mu        sync.Mutex
	writeMu   sync.Mutex
	sessionID types.SessionID
	conn      *websocket.Conn
	status    types.ConnectionStatus
	gen       int
	attempt   int
	timer     *time.Timer
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithBackoff replaces the reconnect policy.
func WithBackoff(b *Backoff) Option {
	return func(m *Manager) { m.backoff = b }
}

// WithQueueSize bounds the outbound queue used while disconnected.
func WithQueueSize(n int) Option {
	return func(m *Manager) { m.queue = newSendQueue(n) }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithStatusFunc registers a callback invoked on every status transition.
func WithStatusFunc(fn func(types.ConnectionStatus)) Option {
	return func(m *Manager) { m.onStatus = fn }
}

// WithErrorFunc registers a callback for transport and decode errors.
func WithErrorFunc(fn func(error)) Option {
	return func(m *Manager) { m.onError = fn }
}

// WithResume registers a supplier for the last seen message id, sent on
// reconnect so the server can replay missed frames.
func WithResume(fn func() types.MessageID) Option {
	return func(m *Manager) { m.resume = fn }
}

// New creates a Manager that dials serverURL (e.g. "ws://127.0.0.1:8001")
// and forwards decoded inbound messages to handler.
func New(serverURL string, handler Handler, opts ...Option) *Manager {
	m := &Manager{
		serverURL: serverURL,
		handler:   handler,
		dialer:    &websocket.Dialer{HandshakeTimeout: 8 * time.Second},
		backoff:   DefaultBackoff(),
		queue:     newSendQueue(0),
		status:    types.StatusDisconnected,
	}
	m.write = m.writeJSON
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the current connection status.
func (m *Manager) Status() types.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Pending returns the number of queued outbound payloads.
func (m *Manager) Pending() int {
	return m.queue.size()
}

// Connect opens the stream for the given session. Calling it again with the
// same id while the connection is open is a no-op, as is an empty id. A
// different id closes the old connection first.
func (m *Manager) Connect(sessionID types.SessionID) error {
	if sessionID == "" {
		return nil
	}

	m.mu.Lock()
	if m.sessionID == sessionID && m.conn != nil {
		m.mu.Unlock()
		return nil
	}
	m.teardownLocked()
	m.sessionID = sessionID
	m.attempt = 0
	m.mu.Unlock()

	return m.dial(sessionID, types.StatusConnecting)
}

// Close ends the session: cancels any pending reconnect, closes the live
// connection with a normal closure, and clears the session id so no further
// reconnects are attempted.
func (m *Manager) Close() {
	m.mu.Lock()
	m.sessionID = ""
	m.teardownLocked()
	m.status = types.StatusDisconnected
	m.mu.Unlock()
	m.emitStatus(types.StatusDisconnected)
}

// teardownLocked cancels the reconnect timer and closes the current
// connection with the normal-closure code. Caller holds m.mu.
func (m *Manager) teardownLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.conn != nil {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = m.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = m.conn.Close()
		m.conn = nil
	}
	m.gen++
}

// dial opens one connection attempt for the given session, transitioning
// through pendingStatus while the handshake is in flight.
func (m *Manager) dial(sessionID types.SessionID, pendingStatus types.ConnectionStatus) error {
	m.setStatus(pendingStatus)

	c, resp, err := m.dialer.Dial(m.streamURL(sessionID), nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("dial stream: %w (status %s)", err, resp.Status)
		} else {
			err = fmt.Errorf("dial stream: %w", err)
		}
		m.reportError(err)
		m.mu.Lock()
		if m.sessionID == sessionID {
			m.scheduleReconnectLocked()
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.sessionID != sessionID {
		// Session was closed or replaced during the handshake.
		m.mu.Unlock()
		_ = c.Close()
		return nil
	}
	m.conn = c
	m.gen++
	gen := m.gen
	m.attempt = 0
	m.status = types.StatusConnected
	m.mu.Unlock()

	m.emitStatus(types.StatusConnected)
	slog.Info("stream connected", "session_id", string(sessionID))

	go m.readPump(c, gen)
	m.flushQueue(c)
	return nil
}

// streamURL builds the dial URL, attaching the last seen message id so the
// server can replay anything missed while disconnected.
func (m *Manager) streamURL(sessionID types.SessionID) string {
	u := m.serverURL + streamPath + url.PathEscape(string(sessionID))
	if m.resume != nil {
		if last := m.resume(); last != "" {
			u += "?last_message_id=" + url.QueryEscape(string(last))
		}
	}
	return u
}

// readPump delivers decoded frames to the handler until the connection
// fails, then hands the closure to the reconnect logic. A malformed frame
// is reported and dropped without closing the connection.
func (m *Manager) readPump(c *websocket.Conn, gen int) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		msg, err := types.DecodeMessage(data)
		if err != nil {
			m.reportError(err)
			continue
		}
		m.handler(msg)
	}
}

// handleClose runs once per connection when its read pump exits. Abnormal
// closures schedule exactly one reconnect while a session id is still set;
// a normal closure or a cleared session ends the stream.
func (m *Manager) handleClose(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// A newer connection already superseded this one.
		m.mu.Unlock()
		return
	}
	m.conn = nil

	if isNormalClosure(err) || m.sessionID == "" {
		m.status = types.StatusDisconnected
		m.mu.Unlock()
		m.emitStatus(types.StatusDisconnected)
		return
	}

	slog.Warn("stream closed", "session_id", string(m.sessionID), "error", err)
	m.reportError(err)
	m.scheduleReconnectLocked()
	st := m.status
	m.mu.Unlock()
	m.emitStatus(st)
}

// scheduleReconnectLocked arms one reconnect timer with the next backoff
// delay, or gives up when the policy is exhausted. Caller holds m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if !m.backoff.ShouldRetry(m.attempt) {
		slog.Error("reconnect attempts exhausted", "session_id", string(m.sessionID), "attempts", m.attempt)
		m.status = types.StatusDisconnected
		return
	}
	m.attempt++
	delay := m.backoff.NextDelay(m.attempt)
	sessionID := m.sessionID
	m.status = types.StatusReconnecting
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		stale := m.sessionID != sessionID || m.conn != nil
		m.mu.Unlock()
		if stale {
			return
		}
		_ = m.dial(sessionID, types.StatusReconnecting)
	})
	slog.Info("reconnect scheduled", "session_id", string(sessionID), "attempt", m.attempt, "delay", delay)
}

// Send serializes and transmits the payload, queueing it for the next
// connection when the stream is down. The error is non-nil only when the
// queue is full, so callers always learn about a message that will never
// be delivered.
func (m *Manager) Send(payload any) error {
	m.mu.Lock()
	c := m.conn
	connected := m.status == types.StatusConnected && c != nil
	m.mu.Unlock()

	if !connected {
		return m.queue.push(payload)
	}
	if err := m.write(c, payload); err != nil {
		// The read pump will observe the failure and drive reconnect;
		// keep the payload for the next connection.
		return m.queue.push(payload)
	}
	return nil
}

// flushQueue writes every payload buffered while disconnected, in order. A
// write failure puts the undelivered remainder back at the front of the
// queue so the next connection retries it.
func (m *Manager) flushQueue(c *websocket.Conn) {
	queued := m.queue.drain()
	for i, payload := range queued {
		if err := m.write(c, payload); err != nil {
			m.queue.requeue(queued[i:])
			m.reportError(fmt.Errorf("flush queued send: %w", err))
			return
		}
	}
}

func (m *Manager) writeJSON(c *websocket.Conn, payload any) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return c.WriteJSON(payload)
}

func (m *Manager) setStatus(st types.ConnectionStatus) {
	m.mu.Lock()
	m.status = st
	m.mu.Unlock()
	m.emitStatus(st)
}

func (m *Manager) emitStatus(st types.ConnectionStatus) {
	if m.onStatus != nil {
		m.onStatus(st)
	}
}

func (m *Manager) reportError(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}

// isNormalClosure reports whether the read pump exited because of a clean
// close handshake. Anything else, including plain network errors, counts as
// abnormal and is eligible for reconnect.
func isNormalClosure(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure
	}
	return false
}
