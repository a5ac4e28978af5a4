package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// Ensure WebSocketSink implements the interface.
var _ driven.EmissionSink = (*WebSocketSink)(nil)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// message is the frame sent downstream.
type message struct {
	Type  string              `json:"type"`
	Event domain.EmittedEvent `json:"event"`
}

// WebSocketSink forwards events as JSON text frames to a websocket endpoint.
// The connection is dialled lazily and re-dialled after a failed write; a
// failed emit is returned to the driver so the event is not recorded.
type WebSocketSink struct {
	url   string
	token string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSink creates a sink for url (ws:// or wss://). A non-empty
// token is sent as a bearer Authorization header.
func NewWebSocketSink(url, token string) *WebSocketSink {
	return &WebSocketSink{url: url, token: token}
}

// Emit sends the event, connecting first if needed.
func (s *WebSocketSink) Emit(ctx context.Context, event domain.EmittedEvent) error {
	data, err := json.Marshal(message{Type: "event", Event: event})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		if err := s.connect(ctx); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)

	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// connect dials the endpoint (caller must hold lock).
func (s *WebSocketSink) connect(ctx context.Context) error {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", s.url, err)
	}
	s.conn = conn
	logger.Info("connected to websocket sink at %s", s.url)
	return nil
}

// Close closes the connection, if any.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}
