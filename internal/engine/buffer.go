package engine

import (
	"fmt"
	"sync"

	"github.com/informatrix/ndarray/internal/device"
	"github.com/informatrix/ndarray/internal/ndarray"
)

// allocState is the deferred-allocation tri-state. The transition
// unallocated → allocating → allocated happens on the first operation
// that requires physical storage.
type allocState int

const (
	stateUnallocated allocState = iota
	stateAllocating
	stateAllocated
)

// buffer is the engine-side record of one array's storage plus the
// scheduling metadata tracking pending operations against it.
//
// Dependency ordering: pendingWrites holds the done channels of every
// scheduled-but-unfinished operation that writes this buffer,
// pendingReads the same for readers. A new reader waits on
// pendingWrites; a new writer waits on both. Lists are pruned of
// completed entries whenever touched under the engine's scheduling
// lock.
type buffer struct {
	id    ndarray.BufferHandle
	shape ndarray.Shape
	ctx   ndarray.Context
	dtype ndarray.DataType

	mu    sync.Mutex
	state allocState
	host  []byte        // storage for host-resident contexts
	dev   device.Buffer // storage for GPU contexts

	// err is the sticky failure of an asynchronous operation against
	// this buffer, reported by every later Wait barrier touching it.
	err error

	// Guarded by the engine's scheduling lock, not mu.
	pendingWrites []chan struct{}
	pendingReads  []chan struct{}
	freed         bool
}

// byteSize returns the physical storage size.
func (b *buffer) byteSize() int {
	return b.shape.NumElements() * b.dtype.Size()
}

// setErr records the first failure; later failures are dropped.
func (b *buffer) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

// stickyErr returns the recorded failure, if any.
func (b *buffer) stickyErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// ensureAllocated forces physical allocation on first use.
func (b *buffer) ensureAllocated(dev device.Device) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateAllocated:
		return nil
	case stateAllocating:
		// ensureAllocated is only reached from serialized operations
		// on this buffer, so a concurrent transition means a bug.
		return fmt.Errorf("%w: buffer %d allocation already in flight", ndarray.ErrEngine, b.id)
	}

	b.state = stateAllocating
	if b.ctx.HostResident() {
		b.host = make([]byte, b.byteSize())
		b.state = stateAllocated
		return nil
	}

	buf, err := dev.Allocate(b.byteSize())
	if err != nil {
		b.state = stateUnallocated
		if b.err == nil {
			b.err = err
		}
		return err
	}
	b.dev = buf
	b.state = stateAllocated
	return nil
}

// releaseStorage frees physical storage. Called once, after every
// pending operation on the buffer has completed.
func (b *buffer) releaseStorage() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.host = nil
	if b.dev != nil {
		b.dev.Release()
		b.dev = nil
	}
	b.state = stateUnallocated
}

// prune drops completed done channels from a pending list.
func prune(pending []chan struct{}) []chan struct{} {
	live := pending[:0]
	for _, ch := range pending {
		select {
		case <-ch:
		default:
			live = append(live, ch)
		}
	}
	return live
}
