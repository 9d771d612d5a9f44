// Package history keeps the most recent chat messages in memory, up to a
// fixed capacity. The messages are lost, when the chatbot is shut down.
package history

import "sync"

const defaultCapacity = 128

// Entry is a single recorded chat message.
type Entry struct {
	Channel  string // Channel is the channel the message was sent to.
	Username string // Username is the login of the sender.
	Text     string // Text is the message, after emote substitution.
}

// Buffer is a fixed-capacity ring of chat messages. It is safe to record and
// read from different goroutines.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	count   int
}

// New returns an empty Buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	return &Buffer{
		entries: make([]Entry, capacity),
	}
}

// Record inserts an entry, overwriting the oldest one once the buffer is full.
func (b *Buffer) Record(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)

	if b.count < len(b.entries) {
		b.count++
	}
}

// Recent returns up to n of the latest entries, oldest first.
func (b *Buffer) Recent(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}

	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		index := (b.next - n + i + len(b.entries)) % len(b.entries)
		out = append(out, b.entries[index])
	}

	return out
}

// Len reports how many entries are currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}
