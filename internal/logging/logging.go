// Package logging wraps zap with the leveled helpers the rest of this
// module uses. It keeps the teacher's short, prefixed message style
// (core/chain.go, miner/workloop.go) but backs it with a structured
// logger instead of the bare standard-library log package.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the leveled logger threaded through the mining core.
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a development-mode logger: human-readable, colorized level
// tags, stack traces on Fatal. It is the only constructor that writes
// logs; there is no constructor taking another zap core. The mining core
// only depends on this thin wrapper, never on zap directly.
func New() *Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		l = zap.NewNop()
	}
	return &Logger{s: l.Sugar()}
}

// NewNop returns a logger that discards everything, for tests that don't
// want log noise.
func NewNop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *Logger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *Logger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l *Logger) Fatalw(msg string, kv ...interface{}) { l.s.Fatalw(msg, kv...) }

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error { return l.s.Sync() }
