package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/informatrix/ndarray/internal/device"
	"github.com/informatrix/ndarray/internal/device/cpu"
	"github.com/informatrix/ndarray/internal/ndarray"
)

// Verify that Engine implements the array-layer boundary.
var _ ndarray.Engine = (*Engine)(nil)

// Engine is the in-process execution engine. Submissions return once
// scheduled; execution happens on a bounded pool of goroutines, ordered
// per buffer (read-after-write, write-after-write, write-after-read
// serialize in submission order) and unordered across disjoint buffers.
type Engine struct {
	log *slog.Logger
	sem *semaphore.Weighted

	cpu        *cpu.Device
	gpuFactory func() (device.Device, error)
	gpuOnce    sync.Once
	gpu        device.Device
	gpuErr     error

	sampler sampler

	// sched guards the buffer table, pending-operation lists, freed
	// flags and the global error list.
	sched    sync.Mutex
	next     ndarray.BufferHandle
	buffers  map[ndarray.BufferHandle]*buffer
	errs     []error
	inflight sync.WaitGroup
}

// New creates an engine with the given options applied on top of the
// defaults and the process environment.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		log:        o.Logger,
		sem:        semaphore.NewWeighted(int64(o.Workers)),
		cpu:        cpu.New(),
		gpuFactory: o.GPUFactory,
		sampler:    newSampler(o.Seed),
		buffers:    make(map[ndarray.BufferHandle]*buffer),
	}
	e.log.Debug("engine created", "workers", o.Workers, "seed", o.Seed)
	return e
}

// Close waits for pending operations and releases the GPU device, if
// one was created.
func (e *Engine) Close() error {
	err := e.WaitAll()
	if e.gpu != nil {
		e.gpu.Release()
	}
	return err
}

// lookupLocked resolves a handle under e.sched.
func (e *Engine) lookupLocked(h ndarray.BufferHandle) (*buffer, error) {
	b, ok := e.buffers[h]
	if !ok || b.freed {
		return nil, fmt.Errorf("%w: invalid buffer handle %d", ndarray.ErrEngine, h)
	}
	return b, nil
}

func (e *Engine) lookup(h ndarray.BufferHandle) (*buffer, error) {
	e.sched.Lock()
	defer e.sched.Unlock()
	return e.lookupLocked(h)
}

// deviceFor returns the executor owning storage for ctx. GPU contexts
// require gpuDevice to have succeeded beforehand.
func (e *Engine) deviceFor(ctx ndarray.Context) device.Device {
	if ctx.HostResident() {
		return e.cpu
	}
	return e.gpu
}

// gpuDevice lazily creates the GPU device on first GPU allocation.
func (e *Engine) gpuDevice() (device.Device, error) {
	e.gpuOnce.Do(func() {
		if e.gpuFactory == nil {
			e.gpuErr = fmt.Errorf("%w: no GPU device registered", ndarray.ErrAllocation)
			return
		}
		d, err := e.gpuFactory()
		if err != nil {
			e.gpuErr = fmt.Errorf("%w: %v", ndarray.ErrAllocation, err)
			return
		}
		e.gpu = d
		e.log.Debug("gpu device initialized", "device", d.Name())
	})
	return e.gpu, e.gpuErr
}

// register creates and tables an unallocated buffer record, validating
// the placement.
func (e *Engine) register(shape ndarray.Shape, ctx ndarray.Context, dtype ndarray.DataType) (*buffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ndarray.ErrAllocation, err)
	}
	if !ctx.HostResident() {
		if dtype != ndarray.Float32 {
			return nil, fmt.Errorf("%w: %s storage is host-only", ndarray.ErrAllocation, dtype)
		}
		if _, err := e.gpuDevice(); err != nil {
			return nil, err
		}
	}

	b := &buffer{shape: shape.Clone(), ctx: ctx, dtype: dtype}
	e.sched.Lock()
	e.next++
	b.id = e.next
	e.buffers[b.id] = b
	e.sched.Unlock()
	return b, nil
}

// Allocate reserves a buffer. With deferred set, physical storage is
// reserved on first use instead.
func (e *Engine) Allocate(shape ndarray.Shape, ctx ndarray.Context, dtype ndarray.DataType, deferred bool) (ndarray.BufferHandle, error) {
	b, err := e.register(shape, ctx, dtype)
	if err != nil {
		return ndarray.NilBuffer, err
	}
	if !deferred {
		if err := b.ensureAllocated(e.deviceFor(ctx)); err != nil {
			e.sched.Lock()
			delete(e.buffers, b.id)
			e.sched.Unlock()
			return ndarray.NilBuffer, err
		}
	}
	e.log.Debug("allocated", "handle", b.id, "shape", shape, "ctx", ctx, "deferred", deferred)
	return b.id, nil
}

// Free releases the buffer once every pending operation against it has
// completed. Idempotent; the storage is released exactly once.
func (e *Engine) Free(h ndarray.BufferHandle) {
	e.sched.Lock()
	b, ok := e.buffers[h]
	if !ok || b.freed {
		e.sched.Unlock()
		return
	}
	b.freed = true
	e.sched.Unlock()

	e.submit("free", nil, []*buffer{b}, func() error {
		b.releaseStorage()
		e.sched.Lock()
		delete(e.buffers, b.id)
		e.sched.Unlock()
		e.log.Debug("freed", "handle", b.id)
		return nil
	})
}

// submit schedules fn behind every pending operation that conflicts
// with its read and write sets, registers it in those sets, and returns
// immediately. A buffer present in both sets is treated as written.
func (e *Engine) submit(label string, reads, writes []*buffer, fn func() error) {
	done := make(chan struct{})
	written := func(b *buffer) bool {
		for _, w := range writes {
			if w == b {
				return true
			}
		}
		return false
	}

	e.sched.Lock()
	var deps []chan struct{}
	for _, r := range reads {
		if written(r) {
			continue
		}
		r.pendingWrites = prune(r.pendingWrites)
		deps = append(deps, r.pendingWrites...)
		r.pendingReads = append(prune(r.pendingReads), done)
	}
	for _, w := range writes {
		w.pendingWrites = prune(w.pendingWrites)
		w.pendingReads = prune(w.pendingReads)
		deps = append(deps, w.pendingWrites...)
		deps = append(deps, w.pendingReads...)
		w.pendingWrites = append(w.pendingWrites, done)
	}
	e.inflight.Add(1)
	e.sched.Unlock()

	e.log.Debug("scheduled", "op", label, "deps", len(deps))

	go func() {
		defer e.inflight.Done()
		defer close(done)

		for _, dep := range deps {
			<-dep
		}
		if err := e.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer e.sem.Release(1)

		if err := fn(); err != nil {
			for _, w := range writes {
				w.setErr(err)
			}
			e.sched.Lock()
			e.errs = append(e.errs, fmt.Errorf("%s: %w", label, err))
			e.sched.Unlock()
			e.log.Debug("operation failed", "op", label, "err", err)
		}
	}()
}

// WaitRead blocks until every pending write to the buffer has
// completed, then reports the buffer's sticky error, if any.
func (e *Engine) WaitRead(h ndarray.BufferHandle) error {
	e.sched.Lock()
	b, err := e.lookupLocked(h)
	if err != nil {
		e.sched.Unlock()
		return err
	}
	b.pendingWrites = prune(b.pendingWrites)
	chans := append([]chan struct{}(nil), b.pendingWrites...)
	e.sched.Unlock()

	for _, ch := range chans {
		<-ch
	}
	return b.stickyErr()
}

// WaitWrite blocks until every pending read and write on the buffer
// has completed, then reports the buffer's sticky error, if any.
func (e *Engine) WaitWrite(h ndarray.BufferHandle) error {
	e.sched.Lock()
	b, err := e.lookupLocked(h)
	if err != nil {
		e.sched.Unlock()
		return err
	}
	b.pendingWrites = prune(b.pendingWrites)
	b.pendingReads = prune(b.pendingReads)
	chans := append([]chan struct{}(nil), b.pendingWrites...)
	chans = append(chans, b.pendingReads...)
	e.sched.Unlock()

	for _, ch := range chans {
		<-ch
	}
	return b.stickyErr()
}

// WaitAll blocks until every operation pending at the time of the call
// has completed and returns their accumulated errors. Buffer-level
// sticky errors remain set.
func (e *Engine) WaitAll() error {
	e.inflight.Wait()
	e.sched.Lock()
	defer e.sched.Unlock()
	err := errors.Join(e.errs...)
	e.errs = nil
	return err
}

// Shape returns a copy of the buffer's logical shape.
func (e *Engine) Shape(h ndarray.BufferHandle) ndarray.Shape {
	if b, err := e.lookup(h); err == nil {
		return b.shape.Clone()
	}
	return nil
}

// Device returns the buffer's placement.
func (e *Engine) Device(h ndarray.BufferHandle) ndarray.Context {
	if b, err := e.lookup(h); err == nil {
		return b.ctx
	}
	return ndarray.CPUContext()
}

// DType returns the buffer's storage type.
func (e *Engine) DType(h ndarray.BufferHandle) ndarray.DataType {
	if b, err := e.lookup(h); err == nil {
		return b.dtype
	}
	return ndarray.Float32
}
