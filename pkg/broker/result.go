package broker

import (
	"fmt"
	"sync"
)

// Result is a published stream of fixed size blocks. The most recent blocks,
// up to the segment size, are kept.
type Result struct {
	mu       sync.RWMutex
	def      ResultDefinition
	setup    string
	curFlags ResultFlags
	data     any
	broker   *Broker

	ring      [][]byte
	written   uint64 // blocks ever written
	committed uint64 // blocks visible to readers
}

// NewResult parses a setup string into a fresh result.
func NewResult(setup string) (*Result, error) {
	r := &Result{}
	if err := r.Setup(setup); err != nil {
		return nil, err
	}
	return r, nil
}

// Setup (re)defines the result and drops its data. On error the result is
// left unchanged.
func (r *Result) Setup(setup string) error {
	def, err := ParseResultDefinition(setup)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.def = def
	r.setup = setup
	r.curFlags = def.Flags
	r.ring = nil
	r.written, r.committed = 0, 0
	r.mu.Unlock()
	return nil
}

func (r *Result) ID() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def.ID
}

func (r *Result) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def.Name
}

func (r *Result) Definition() ResultDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

func (r *Result) SetupString() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.setup
}

func (r *Result) Flags() ResultFlags {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def.Flags
}

func (r *Result) CurFlags() ResultFlags {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.curFlags
}

func (r *Result) SetFlag(f ResultFlags) {
	r.mu.Lock()
	r.curFlags |= f
	r.mu.Unlock()
}

func (r *Result) UnsetFlag(f ResultFlags) {
	r.mu.Lock()
	r.curFlags &^= f
	r.mu.Unlock()
}

// UpdateFlags replaces both the setup and the current flags, keeping the data.
func (r *Result) UpdateFlags(f ResultFlags) bool {
	r.mu.Lock()
	r.def.Flags = f
	r.curFlags = f
	r.setup = r.def.String()
	r.mu.Unlock()
	return true
}

func (r *Result) Data() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

func (r *Result) SetData(data any) {
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
}

// BufferSize returns the byte size of n blocks.
func (r *Result) BufferSize(n int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return n * r.def.BlockSize * r.def.Type.Size()
}

// BlockWrite appends blocks taken from data. The data must hold exactly that
// many blocks.
func (r *Result) BlockWrite(blocks int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := r.def.BlockSize * r.def.Type.Size()
	if blocks <= 0 || len(data) != blocks*size {
		return fmt.Errorf("broker: result %s: %d bytes do not hold %d blocks of %d", r.def.Name, len(data), blocks, size)
	}
	for i := 0; i < blocks; i++ {
		block := make([]byte, size)
		copy(block, data[i*size:])
		r.ring = append(r.ring, block)
	}
	if n := len(r.ring) - r.def.SegmentSize; n > 0 {
		r.ring = append(r.ring[:0:0], r.ring[n:]...)
	}
	r.written += uint64(blocks)
	return nil
}

// CommitValidations makes the written blocks visible to readers.
func (r *Result) CommitValidations() {
	r.mu.Lock()
	changed := r.committed != r.written
	r.committed = r.written
	id, b, n := r.def.ID, r.broker, r.committed
	r.mu.Unlock()
	if changed && b != nil {
		b.emit(Event{Kind: EventResult, ID: id, Blocks: n})
	}
}

// ClearValidations drops the kept blocks.
func (r *Result) ClearValidations() {
	r.mu.Lock()
	r.ring = nil
	r.committed = r.written
	r.mu.Unlock()
}

// Latest returns a copy of the most recent committed block and the number of
// blocks committed so far.
func (r *Result) Latest() ([]byte, uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pending := int(r.written - r.committed)
	i := len(r.ring) - 1 - pending
	if i < 0 {
		return nil, r.committed, false
	}
	return append([]byte(nil), r.ring[i]...), r.committed, true
}

// Blocks returns the number of kept committed blocks.
func (r *Result) Blocks() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return max(0, len(r.ring)-int(r.written-r.committed))
}
