package handle

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownBuffer is returned when releasing a buffer that is not
// currently owned by the caller: never handed out, already released, or
// released with the wrong length.
var ErrUnknownBuffer = errors.New("handle: buffer not owned by caller")

// Ledger records every buffer handed across the boundary until the caller
// releases it. Addresses are opaque keys; the ledger never dereferences them.
type Ledger struct {
	mu    sync.Mutex
	live  map[uintptr]int
	bytes int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{live: make(map[uintptr]int)}
}

// Track records that the caller now owns n bytes at addr.
func (l *Ledger) Track(addr uintptr, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.live[addr] = n
	l.bytes += n
}

// Release ends the caller's ownership of the buffer at addr. The caller
// may free the memory only when Release returns nil.
func (l *Ledger) Release(addr uintptr, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	have, ok := l.live[addr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownBuffer, addr)
	}
	if have != n {
		return fmt.Errorf("%w: %#x has %d bytes, release claims %d", ErrUnknownBuffer, addr, have, n)
	}
	delete(l.live, addr)
	l.bytes -= n
	return nil
}

// Outstanding returns the number of unreleased buffers and their total size.
func (l *Ledger) Outstanding() (buffers, bytes int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live), l.bytes
}
