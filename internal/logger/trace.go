package logger

import (
	"io"

	"github.com/charmbracelet/log"
)

// Tracer carries the per-module progress output ("enqueue", "wrap",
// "up to date") that is too noisy for the diagnostic log. A nil tracer
// discards everything.
type Tracer struct {
	l *log.Logger
}

func NewTracer(w io.Writer, level LogLevel) *Tracer {
	if level == LevelSilent {
		return nil
	}
	charmLevel := log.WarnLevel
	switch {
	case level <= LevelDebug:
		charmLevel = log.DebugLevel
	case level == LevelInfo:
		charmLevel = log.InfoLevel
	}
	return &Tracer{l: log.NewWithOptions(w, log.Options{
		Prefix: "paeckchen",
		Level:  charmLevel,
	})}
}

func (t *Tracer) Section(name string) *Tracer {
	if t == nil {
		return nil
	}
	return &Tracer{l: t.l.WithPrefix("paeckchen/" + name)}
}

func (t *Tracer) With(keyvals ...interface{}) *Tracer {
	if t == nil {
		return nil
	}
	return &Tracer{l: t.l.With(keyvals...)}
}

func (t *Tracer) Trace(msg string, keyvals ...interface{}) {
	if t != nil {
		t.l.Debug(msg, keyvals...)
	}
}

func (t *Tracer) Info(msg string, keyvals ...interface{}) {
	if t != nil {
		t.l.Info(msg, keyvals...)
	}
}
