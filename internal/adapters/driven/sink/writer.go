package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure WriterSink implements the interface.
var _ driven.EmissionSink = (*WriterSink)(nil)

// WriterSink writes one line per event.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	pretty bool
}

// NewWriterSink creates a sink writing JSON lines to w. When w is a
// terminal, events are written in a readable one-line format instead.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, pretty: isTerminal(w)}
}

// NewJSONSink creates a sink that always writes JSON lines.
func NewJSONSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit writes the event.
func (s *WriterSink) Emit(_ context.Context, event domain.EmittedEvent) error {
	var line []byte
	if s.pretty {
		line = []byte(formatPretty(event))
	} else {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		line = append(data, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

func formatPretty(event domain.EmittedEvent) string {
	marker := ""
	if event.Sample {
		marker = " (sample)"
	}
	return fmt.Sprintf("%s  %-24s %-8s %s%s\n",
		event.EmittedAt.Format(time.TimeOnly), event.SourceKey, event.Trigger, event.Summary, marker)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
