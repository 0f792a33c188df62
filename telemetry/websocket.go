// WebSocket telemetry export for live dashboards.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsDialTimeout    = 10 * time.Second
	wsMaxMessageSize = 1024 * 1024 // 1MB
	wsPingInterval   = 30 * time.Second
)

// WebSocketExporter streams telemetry over a WebSocket connection.
// Each event is sent as a single JSON text message.
type WebSocketExporter struct {
	conn   *websocket.Conn
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewWebSocketExporter dials the given ws:// or wss:// URL.
func NewWebSocketExporter(url string) (*WebSocketExporter, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: wsDialTimeout,
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial telemetry endpoint: %w", err)
	}
	conn.SetReadLimit(wsMaxMessageSize)

	e := &WebSocketExporter{
		conn: conn,
		done: make(chan struct{}),
	}
	go e.pingLoop()
	return e, nil
}

// NewWebSocketExporterFromConn wraps an already-established connection,
// e.g. one accepted server-side via an upgrader.
func NewWebSocketExporterFromConn(conn *websocket.Conn) *WebSocketExporter {
	conn.SetReadLimit(wsMaxMessageSize)
	e := &WebSocketExporter{
		conn: conn,
		done: make(chan struct{}),
	}
	go e.pingLoop()
	return e
}

func (e *WebSocketExporter) LogEvent(name string, data map[string]interface{}) {
	e.writeJSON(Event{
		Name:      name,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (e *WebSocketExporter) LogRun(run RunEvent) {
	run.Timestamp = time.Now()
	e.writeJSON(run)
}

func (e *WebSocketExporter) writeJSON(v interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	// Telemetry is best-effort; a failed write does not fail the run.
	e.conn.WriteJSON(v)
}

// Flush is a no-op; messages are written as they arrive.
func (e *WebSocketExporter) Flush() error {
	return nil
}

func (e *WebSocketExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.done)

	e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	e.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return e.conn.Close()
}

func (e *WebSocketExporter) pingLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.mu.Lock()
			if e.closed {
				e.mu.Unlock()
				return
			}
			e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			e.conn.WriteMessage(websocket.PingMessage, nil)
			e.mu.Unlock()
		case <-e.done:
			return
		}
	}
}
