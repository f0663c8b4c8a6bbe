// Package eventlog is an append-only list of log entries that callers drain
// between checks.
package eventlog

import (
	"fmt"
	"sync"
)

// Log collects string entries in order. It is safe for concurrent use.
type Log struct {
	mu          sync.Mutex
	entries     []string
	subscribers []subscriber
	nextSub     uint64
}

type subscriber struct {
	id uint64
	fn func(string)
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Log appends msg.
func (l *Log) Log(msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, msg)
	subs := make([]subscriber, len(l.subscribers))
	copy(subs, l.subscribers)
	l.mu.Unlock()

	for _, s := range subs {
		s.fn(msg)
	}
}

// Logf appends a formatted entry.
func (l *Log) Logf(format string, args ...any) {
	l.Log(fmt.Sprintf(format, args...))
}

// Len returns the number of entries not yet drained.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// GetAndClearEntries returns every entry logged since the previous call and
// clears the log. It returns an empty, non-nil slice when nothing was logged.
func (l *Log) GetAndClearEntries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries
	l.entries = nil
	if entries == nil {
		entries = []string{}
	}
	return entries
}

// Subscribe calls fn with every entry logged from now on. Subscribers are
// called in subscription order. The returned function removes the
// subscription.
func (l *Log) Subscribe(fn func(entry string)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSub++
	id := l.nextSub
	l.subscribers = append(l.subscribers, subscriber{id: id, fn: fn})
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, s := range l.subscribers {
			if s.id == id {
				l.subscribers = append(l.subscribers[:i:i], l.subscribers[i+1:]...)
				return
			}
		}
	}
}
