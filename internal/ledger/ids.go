package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints sale ids. Implementations must be safe for concurrent use
// and never repeat an id.
type IDGenerator interface {
	NextID() string
}

// Sequence is a monotonic counter formatted as PREFIX-00001.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      uint64
}

// NewSequence returns a counter starting at 1.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%05d", s.prefix, s.n)
}

// UUIDGenerator mints random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() string {
	return uuid.NewString()
}
