package engine

import (
	"fmt"

	"github.com/informatrix/ndarray/internal/device/cpu"
	"github.com/informatrix/ndarray/internal/ndarray"
)

// loadF32 forces allocation and returns the buffer's contents as
// float32 values. For host-resident float32 storage the returned slice
// aliases the buffer; otherwise it is a converted copy.
func (e *Engine) loadF32(b *buffer) ([]float32, error) {
	if err := b.ensureAllocated(e.deviceFor(b.ctx)); err != nil {
		return nil, err
	}
	if b.ctx.HostResident() {
		if b.dtype == ndarray.Float16 {
			raw := cpu.U16(b.host)
			out := make([]float32, len(raw))
			ndarray.DecodeFloat16(raw, out)
			return out, nil
		}
		return cpu.F32(b.host), nil
	}

	bytes := make([]byte, b.byteSize())
	if err := b.dev.Download(bytes); err != nil {
		return nil, err
	}
	return cpu.F32(bytes), nil
}

// storeF32 forces allocation and writes vals into the buffer,
// converting to the storage type as needed. No-op when vals already
// aliases host float32 storage.
func (e *Engine) storeF32(b *buffer, vals []float32) error {
	if err := b.ensureAllocated(e.deviceFor(b.ctx)); err != nil {
		return err
	}
	if b.ctx.HostResident() {
		if b.dtype == ndarray.Float16 {
			ndarray.EncodeFloat16(vals, cpu.U16(b.host))
			return nil
		}
		view := cpu.F32(b.host)
		if len(vals) > 0 && len(view) > 0 && &vals[0] == &view[0] {
			return nil
		}
		copy(view, vals)
		return nil
	}

	bytes := make([]byte, b.byteSize())
	copy(cpu.F32(bytes), vals)
	return b.dev.Upload(bytes)
}

// gpuFastPath reports whether every buffer lives on the GPU with
// matching shapes, in which case the kernel can run in place on device
// memory.
func gpuFastPath(bufs ...*buffer) bool {
	first := bufs[0].shape
	for _, b := range bufs {
		if b.ctx.HostResident() || b.dtype != ndarray.Float32 || !b.shape.Equal(first) {
			return false
		}
	}
	return true
}

func (e *Engine) ensureAll(bufs ...*buffer) error {
	for _, b := range bufs {
		if err := b.ensureAllocated(e.deviceFor(b.ctx)); err != nil {
			return err
		}
	}
	return nil
}

// CopyFromHost blocks until the buffer is safe to write, then copies
// data into it.
func (e *Engine) CopyFromHost(h ndarray.BufferHandle, data []float32) error {
	b, err := e.lookup(h)
	if err != nil {
		return err
	}
	if len(data) != b.shape.NumElements() {
		return fmt.Errorf("%w: %d values into shape %v", ndarray.ErrSizeMismatch, len(data), b.shape)
	}
	if err := e.WaitWrite(h); err != nil {
		return err
	}
	return e.storeF32(b, data)
}

// CopyToHost blocks until the buffer's contents are final, then copies
// them into dst.
func (e *Engine) CopyToHost(h ndarray.BufferHandle, dst []float32) error {
	b, err := e.lookup(h)
	if err != nil {
		return err
	}
	if len(dst) != b.shape.NumElements() {
		return fmt.Errorf("%w: %d-element destination for shape %v", ndarray.ErrSizeMismatch, len(dst), b.shape)
	}
	if err := e.WaitRead(h); err != nil {
		return err
	}
	vals, err := e.loadF32(b)
	if err != nil {
		return err
	}
	copy(dst, vals)
	return nil
}

// CopyBuffer schedules a copy of src into a fresh buffer placed at ctx
// and returns its handle. The copy runs asynchronously.
func (e *Engine) CopyBuffer(src ndarray.BufferHandle, ctx ndarray.Context) (ndarray.BufferHandle, error) {
	sb, err := e.lookup(src)
	if err != nil {
		return ndarray.NilBuffer, err
	}
	db, err := e.register(sb.shape, ctx, sb.dtype)
	if err != nil {
		return ndarray.NilBuffer, err
	}

	e.submit("copy", []*buffer{sb}, []*buffer{db}, func() error {
		vals, err := e.loadF32(sb)
		if err != nil {
			return err
		}
		return e.storeF32(db, vals)
	})
	return db.id, nil
}

// BinaryOp schedules dst = a op b with broadcasting and returns the
// handle of the fresh result buffer. Shape incompatibility is reported
// synchronously; neither operand is touched in that case.
func (e *Engine) BinaryOp(op ndarray.BinaryOp, a, b ndarray.BufferHandle) (ndarray.BufferHandle, error) {
	ab, err := e.lookup(a)
	if err != nil {
		return ndarray.NilBuffer, err
	}
	bb, err := e.lookup(b)
	if err != nil {
		return ndarray.NilBuffer, err
	}
	outShape, _, err := ndarray.BroadcastShapes(ab.shape, bb.shape)
	if err != nil {
		return ndarray.NilBuffer, err
	}
	out, err := e.register(outShape, ab.ctx, ab.dtype)
	if err != nil {
		return ndarray.NilBuffer, err
	}

	e.submit(op.String(), []*buffer{ab, bb}, []*buffer{out}, func() error {
		if gpuFastPath(ab, bb, out) && e.gpu != nil {
			if err := e.ensureAll(ab, bb, out); err != nil {
				return err
			}
			return e.gpu.BinaryOp(op, out.dev, ab.dev, bb.dev, outShape.NumElements())
		}

		av, err := e.loadF32(ab)
		if err != nil {
			return err
		}
		bv, err := e.loadF32(bb)
		if err != nil {
			return err
		}
		dst := make([]float32, outShape.NumElements())
		cpu.BinaryBroadcast(op, dst, av, bv, ab.shape, bb.shape, outShape)
		return e.storeF32(out, dst)
	})
	return out.id, nil
}

// BinaryScalarOp schedules dst = a op s and returns the handle of the
// fresh result buffer.
func (e *Engine) BinaryScalarOp(op ndarray.BinaryOp, a ndarray.BufferHandle, s float32) (ndarray.BufferHandle, error) {
	ab, err := e.lookup(a)
	if err != nil {
		return ndarray.NilBuffer, err
	}
	out, err := e.register(ab.shape, ab.ctx, ab.dtype)
	if err != nil {
		return ndarray.NilBuffer, err
	}

	e.submit(op.String()+"_scalar", []*buffer{ab}, []*buffer{out}, func() error {
		if gpuFastPath(ab, out) && e.gpu != nil {
			if err := e.ensureAll(ab, out); err != nil {
				return err
			}
			return e.gpu.BinaryScalarOp(op, out.dev, ab.dev, s, ab.shape.NumElements())
		}

		av, err := e.loadF32(ab)
		if err != nil {
			return err
		}
		dst := make([]float32, len(av))
		cpu.BinaryScalar(op, dst, av, s)
		return e.storeF32(out, dst)
	})
	return out.id, nil
}

// InPlaceOp schedules dst = dst op src. src may broadcast up to dst's
// shape but never the other way around; that case is reported
// synchronously.
func (e *Engine) InPlaceOp(op ndarray.BinaryOp, dst, src ndarray.BufferHandle) error {
	db, err := e.lookup(dst)
	if err != nil {
		return err
	}
	sb, err := e.lookup(src)
	if err != nil {
		return err
	}
	outShape, _, err := ndarray.BroadcastShapes(db.shape, sb.shape)
	if err != nil {
		return err
	}
	if !outShape.Equal(db.shape) {
		return fmt.Errorf("%w: in-place %s would broadcast destination %v to %v", ndarray.ErrShapeMismatch, op, db.shape, outShape)
	}

	e.submit(op.String()+"_inplace", []*buffer{sb}, []*buffer{db}, func() error {
		if gpuFastPath(db, sb) && e.gpu != nil {
			if err := e.ensureAll(db, sb); err != nil {
				return err
			}
			return e.gpu.InPlaceOp(op, db.dev, sb.dev, db.shape.NumElements())
		}

		dv, err := e.loadF32(db)
		if err != nil {
			return err
		}
		sv, err := e.loadF32(sb)
		if err != nil {
			return err
		}
		cpu.InPlaceBroadcast(op, dv, sv, db.shape, sb.shape)
		return e.storeF32(db, dv)
	})
	return nil
}

// InPlaceScalarOp schedules dst = dst op s.
func (e *Engine) InPlaceScalarOp(op ndarray.BinaryOp, dst ndarray.BufferHandle, s float32) error {
	db, err := e.lookup(dst)
	if err != nil {
		return err
	}

	e.submit(op.String()+"_scalar_inplace", nil, []*buffer{db}, func() error {
		if gpuFastPath(db) && e.gpu != nil {
			if err := e.ensureAll(db); err != nil {
				return err
			}
			return e.gpu.InPlaceScalarOp(op, db.dev, s, db.shape.NumElements())
		}

		dv, err := e.loadF32(db)
		if err != nil {
			return err
		}
		cpu.InPlaceScalar(op, dv, s)
		return e.storeF32(db, dv)
	})
	return nil
}

// FillScalar schedules setting every element of dst to v.
func (e *Engine) FillScalar(dst ndarray.BufferHandle, v float32) error {
	db, err := e.lookup(dst)
	if err != nil {
		return err
	}

	e.submit("fill", nil, []*buffer{db}, func() error {
		if gpuFastPath(db) && e.gpu != nil {
			if err := e.ensureAll(db); err != nil {
				return err
			}
			return e.gpu.Fill(db.dev, v, db.shape.NumElements())
		}

		dv, err := e.loadF32(db)
		if err != nil {
			return err
		}
		cpu.Fill(dv, v)
		return e.storeF32(db, dv)
	})
	return nil
}

// Slice schedules a copy of rows [begin, end) along the first axis into
// a fresh buffer and returns its handle. Bounds are checked
// synchronously.
func (e *Engine) Slice(h ndarray.BufferHandle, begin, end int) (ndarray.BufferHandle, error) {
	sb, err := e.lookup(h)
	if err != nil {
		return ndarray.NilBuffer, err
	}
	if len(sb.shape) == 0 {
		return ndarray.NilBuffer, fmt.Errorf("%w: cannot slice a scalar", ndarray.ErrRange)
	}
	if begin < 0 || end <= begin || end > sb.shape[0] {
		return ndarray.NilBuffer, fmt.Errorf("%w: slice [%d, %d) of axis length %d", ndarray.ErrRange, begin, end, sb.shape[0])
	}

	outShape := sb.shape.Clone()
	outShape[0] = end - begin
	out, err := e.register(outShape, sb.ctx, sb.dtype)
	if err != nil {
		return ndarray.NilBuffer, err
	}

	rowLen := 1
	for _, d := range sb.shape[1:] {
		rowLen *= d
	}

	e.submit("slice", []*buffer{sb}, []*buffer{out}, func() error {
		vals, err := e.loadF32(sb)
		if err != nil {
			return err
		}
		return e.storeF32(out, vals[begin*rowLen:end*rowLen])
	})
	return out.id, nil
}

// Sample schedules filling dst with draws from the given distribution.
// Sampling always runs on the host; GPU-resident buffers receive an
// upload of the drawn values.
func (e *Engine) Sample(dist ndarray.Distribution, p1, p2 float32, dst ndarray.BufferHandle) error {
	db, err := e.lookup(dst)
	if err != nil {
		return err
	}

	e.submit("sample", nil, []*buffer{db}, func() error {
		vals := make([]float32, db.shape.NumElements())
		switch dist {
		case ndarray.DistGaussian:
			e.sampler.Gaussian(float64(p1), float64(p2), vals)
		case ndarray.DistUniform:
			e.sampler.Uniform(float64(p1), float64(p2), vals)
		default:
			return fmt.Errorf("%w: unknown distribution %d", ndarray.ErrEngine, dist)
		}
		return e.storeF32(db, vals)
	})
	return nil
}

// HostData returns the buffer's contents as float32 values without
// taking any barrier. The caller synchronizes. Accessing a deferred
// buffer counts as first use and forces allocation, so the view is
// never nil for a valid handle. For host-resident float32 buffers the
// slice aliases live storage; for float16 and GPU buffers it is a
// converted copy.
func (e *Engine) HostData(h ndarray.BufferHandle) []float32 {
	b, err := e.lookup(h)
	if err != nil {
		return nil
	}
	vals, err := e.loadF32(b)
	if err != nil {
		return nil
	}
	return vals
}
