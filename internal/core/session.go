package core

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is the append-only session log. It writes one header line when
// created and one line per action. Write failures are ignored: logging never
// aborts an operation.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	echo   io.Writer
	closer io.Closer
}

// NewLogger starts a session on w, echoing each line to echo. Either may be nil.
func NewLogger(w, echo io.Writer) *Logger {
	l := &Logger{w: w, echo: echo}
	if w != nil {
		fmt.Fprintf(w, "=== restruct session %s ===\n", time.Now().Format(time.ANSIC))
	}
	return l
}

// OpenSessionLog appends a new session to the log file at path. If the file
// cannot be opened, lines are only echoed.
func OpenSessionLog(path string, echo io.Writer) *Logger {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return NewLogger(nil, echo)
	}
	l := NewLogger(f, echo)
	l.closer = f
	return l
}

// Logf records one action.
func (l *Logger) Logf(format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.echo != nil {
		fmt.Fprintln(l.echo, msg)
	}
	if l.w != nil {
		fmt.Fprintln(l.w, msg)
	}
}

// Close closes the underlying log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
