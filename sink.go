package semtag

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
)

// ErrorSink accepts failure notifications from Resolve
type ErrorSink interface {
	LogErrorEvent(event ErrorEvent)
}

// SinkFunc adapts a function to the ErrorSink interface
type SinkFunc func(event ErrorEvent)

// LogErrorEvent calls f(event)
func (f SinkFunc) LogErrorEvent(event ErrorEvent) {
	f(event)
}

// LoggerSink reports events through a structured logger
type LoggerSink struct {
	Logger *slog.Logger
}

// LogErrorEvent logs the event at error level
func (s LoggerSink) LogErrorEvent(event ErrorEvent) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(event.Message, slog.String("code", event.Code), slog.String("tag", event.Tag))
}

var errorLabel = color.New(color.FgRed, color.Bold)

// ConsoleSink writes one colored line per event, for terminals
type ConsoleSink struct {
	Out io.Writer
}

// LogErrorEvent writes "error: <message>" to Out
func (s ConsoleSink) LogErrorEvent(event ErrorEvent) {
	fmt.Fprintf(s.Out, "%s %s\n", errorLabel.Sprint("error:"), event.Message)
}

// Resolve parses tag and reports a failure to sink as exactly one event.
// The boolean result is false whenever an event was emitted. A nil sink drops the event.
func Resolve(tag string, sink ErrorSink) (*ParsedVersion, bool) {
	version, err := Parse(tag)
	if err == nil {
		return version, true
	}

	if sink != nil {
		sink.LogErrorEvent(newErrorEvent(tag, err))
	}
	return nil, false
}

func newErrorEvent(tag string, err error) ErrorEvent {
	code := "UNKNOWN"
	if errors.Is(err, ErrMalformedTag) {
		code = CodeMalformedTag
	}
	return ErrorEvent{
		Code:    code,
		Message: err.Error(),
		Tag:     tag,
	}
}
