package presenter

import (
	"strings"
	"sync"
)

// Buffer is an in-memory Target. The CLI and the HTTP surface use it in
// place of a host text field.
type Buffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func NewBuffer(initial string) *Buffer {
	b := &Buffer{}
	b.sb.WriteString(initial)
	return b
}

func (b *Buffer) Insert(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sb.WriteString(text)
	return nil
}

func (b *Buffer) ReplaceAll(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sb.Reset()
	b.sb.WriteString(text)
	return nil
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}
