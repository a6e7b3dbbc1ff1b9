package log

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/go-logfmt/logfmt"
)

type (
	Logger interface {
		Infof(msg string, args ...any)
		Warnf(msg string, args ...any)
		Errorf(msg string, args ...any)
	}

	simpleLogger struct{}

	logfmtLogger struct {
		mu  sync.Mutex
		enc *logfmt.Encoder
	}

	nopLogger struct{}
)

// SimpleLogger is a bare-bones implementation of the logging interface, e.g., used for testing
func SimpleLogger() Logger {
	return &simpleLogger{}
}

func (*simpleLogger) Infof(msg string, args ...any) {
	formattedMessage := fmt.Sprintf(msg, args...)
	log.Printf("[INFO] %s", formattedMessage)
}

func (*simpleLogger) Warnf(msg string, args ...any) {
	formattedMessage := fmt.Sprintf(msg, args...)
	log.Printf("[WARNING] %s", formattedMessage)
}

func (*simpleLogger) Errorf(msg string, args ...any) {
	formattedMessage := fmt.Sprintf(msg, args...)
	log.Printf("[ERROR] %s", formattedMessage)
}

// LogfmtLogger writes one logfmt record per event to w, e.g.:
//
//	level=info msg="created table people"
func LogfmtLogger(w io.Writer) Logger {
	return &logfmtLogger{enc: logfmt.NewEncoder(w)}
}

func (l *logfmtLogger) Infof(msg string, args ...any) {
	l.write("info", msg, args...)
}

func (l *logfmtLogger) Warnf(msg string, args ...any) {
	l.write("warning", msg, args...)
}

func (l *logfmtLogger) Errorf(msg string, args ...any) {
	l.write("error", msg, args...)
}

func (l *logfmtLogger) write(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// A logger has nowhere to report its own write failures.
	if err := l.enc.EncodeKeyvals("level", level, "msg", fmt.Sprintf(msg, args...)); err != nil {
		return
	}
	_ = l.enc.EndRecord()
}

// NopLogger discards everything
func NopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
