package ops

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Sink is the host's logging output for the print op.
type Sink interface {
	Print(line string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string) error

func (f SinkFunc) Print(line string) error {
	return f(line)
}

// LoggerSink forwards each line as one Info record whose message is the line.
type LoggerSink struct {
	Logger *slog.Logger
}

func (s LoggerSink) Print(line string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(line)
	return nil
}

// WriterSink writes each line followed by a newline.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Print(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, line)
	return err
}
