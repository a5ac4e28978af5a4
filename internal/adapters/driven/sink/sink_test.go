package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

func testEvent(id string) domain.EmittedEvent {
	return domain.EmittedEvent{
		SourceKey: "github-new-branch",
		Identity:  id,
		Summary:   "New branch: " + id,
		Payload:   map[string]any{"ref": id},
		EmittedAt: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		Trigger:   domain.TriggerWebhook,
	}
}

func TestWriterSink_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)

	require.NoError(t, s.Emit(context.Background(), testEvent("feature-x")))
	require.NoError(t, s.Emit(context.Background(), testEvent("feature-y")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "github-new-branch", decoded["source"])
	assert.Equal(t, "feature-x", decoded["id"])
	assert.Equal(t, "New branch: feature-x", decoded["summary"])
	assert.Equal(t, "webhook", decoded["trigger"])
	assert.NotContains(t, decoded, "sample")
}

func TestWriterSink_Pretty(t *testing.T) {
	var buf bytes.Buffer
	s := &WriterSink{w: &buf, pretty: true}

	event := testEvent("feature-x")
	event.Sample = true
	require.NoError(t, s.Emit(context.Background(), event))

	out := buf.String()
	assert.Contains(t, out, "09:30:00")
	assert.Contains(t, out, "New branch: feature-x")
	assert.Contains(t, out, "(sample)")
}

func TestWriterSink_NotTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterSink_WriteError(t *testing.T) {
	err := NewJSONSink(failingWriter{}).Emit(context.Background(), testEvent("x"))
	assert.ErrorContains(t, err, "disk full")
}

type recordingSink struct {
	ids []string
	err error
}

func (r *recordingSink) Emit(_ context.Context, e domain.EmittedEvent) error {
	r.ids = append(r.ids, e.Identity)
	return r.err
}

func TestFanOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("b down")}
	c := &recordingSink{}

	err := FanOut{a, b, c}.Emit(context.Background(), testEvent("x"))
	assert.ErrorContains(t, err, "b down")
	assert.Equal(t, []string{"x"}, a.ids)
	assert.Equal(t, []string{"x"}, c.ids)

	assert.NoError(t, FanOut{a, c}.Emit(context.Background(), testEvent("y")))
	assert.NoError(t, FanOut{}.Emit(context.Background(), testEvent("z")))
}

func TestWebSocketSink(t *testing.T) {
	received := make(chan message, 4)
	var authHeader string

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	s := NewWebSocketSink(url, "tok")
	defer s.Close()

	require.NoError(t, s.Emit(context.Background(), testEvent("feature-x")))
	require.NoError(t, s.Emit(context.Background(), testEvent("feature-y")))

	for _, want := range []string{"feature-x", "feature-y"} {
		select {
		case msg := <-received:
			assert.Equal(t, "event", msg.Type)
			assert.Equal(t, want, msg.Event.Identity)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}
	assert.Equal(t, "Bearer tok", authHeader)
}

func TestWebSocketSink_ConnectFailure(t *testing.T) {
	s := NewWebSocketSink("ws://127.0.0.1:1/unreachable", "")
	err := s.Emit(context.Background(), testEvent("x"))
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
