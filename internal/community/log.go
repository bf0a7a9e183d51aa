package community

import (
	"context"
	"sync"
)

// Log is the ordered, append-only conversation store of one room.
// Implementations must make Append linearizable with respect to concurrent
// Append and Snapshot calls. Entries are never mutated or removed.
type Log interface {
	Append(ctx context.Context, msg Message) error
	// Tail returns the most recently appended message; ok is false when empty
	Tail(ctx context.Context) (msg Message, ok bool, err error)
	// Snapshot returns the full ordered sequence as of the call
	Snapshot(ctx context.Context) ([]Message, error)
}

// MemoryLog is an in-process Log
type MemoryLog struct {
	mu       sync.RWMutex
	messages []Message
}

// NewMemoryLog creates an empty log, optionally seeded with history
func NewMemoryLog(seed ...Message) *MemoryLog {
	l := &MemoryLog{}
	l.messages = append(l.messages, seed...)
	return l
}

func (l *MemoryLog) Append(_ context.Context, msg Message) error {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLog) Tail(_ context.Context) (Message, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return Message{}, false, nil
	}
	return l.messages[len(l.messages)-1], true, nil
}

func (l *MemoryLog) Snapshot(_ context.Context) ([]Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out, nil
}

// Len returns the number of appended messages
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
