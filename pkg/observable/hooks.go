package observable

import (
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// Hooks receives dispatcher events for instrumentation. Implementations must
// be cheap; they are called synchronously on the mutating goroutine.
type Hooks interface {
	TransactionStarted(id uint64, name string)
	TransactionCommitted(id uint64, name string, updates int, elapsed time.Duration)
	HandlerCalled(autorun, changed string, rerun bool)
	ReaderRan(autorun string, elapsed time.Duration)
	AutorunCreated(autorun string)
	AutorunDisposed(autorun string)
}

type hooksHolder struct{ h Hooks }

type loggerHolder struct{ l *slog.Logger }

var (
	currentHooks  atomic.Pointer[hooksHolder]
	currentLogger atomic.Pointer[loggerHolder]
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetHooks installs h as the process-wide instrumentation and returns the
// previous hooks. Passing nil disables instrumentation.
func SetHooks(h Hooks) Hooks {
	var next *hooksHolder
	if h != nil {
		next = &hooksHolder{h: h}
	}
	prev := currentHooks.Swap(next)
	if prev == nil {
		return nil
	}
	return prev.h
}

// SetLogger sets the logger used for dispatcher diagnostics.
// If nil, diagnostics are discarded.
func SetLogger(l *slog.Logger) {
	if l == nil {
		currentLogger.Store(nil)
		return
	}
	currentLogger.Store(&loggerHolder{l: l})
}

func hooks() Hooks {
	if h := currentHooks.Load(); h != nil {
		return h.h
	}
	return nil
}

func logger() *slog.Logger {
	if l := currentLogger.Load(); l != nil {
		return l.l
	}
	return discardLogger
}
