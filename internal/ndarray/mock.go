package ndarray

import (
	"fmt"
	"math/rand"
	"sync"
)

// Verify that MockEngine implements Engine.
var _ Engine = (*MockEngine)(nil)

// MockEngine is a synchronous in-memory engine for testing the handle
// layer. Every submission executes immediately on the calling
// goroutine, so Wait barriers are trivially satisfied. It records Free
// calls per handle so tests can verify the reference-counting contract.
type MockEngine struct {
	mu      sync.Mutex
	next    BufferHandle
	buffers map[BufferHandle]*mockBuffer

	// FreeCalls counts Free invocations per handle, including calls
	// for handles already freed.
	FreeCalls map[BufferHandle]int

	// FailWait, when set, is returned by the next Wait* call and then
	// cleared. Used to exercise deferred error surfacing.
	FailWait error
}

type mockBuffer struct {
	shape Shape
	ctx   Context
	dtype DataType
	data  []float32
	freed bool
}

// NewMockEngine creates an empty MockEngine.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		buffers:   make(map[BufferHandle]*mockBuffer),
		FreeCalls: make(map[BufferHandle]int),
	}
}

// Live returns the number of buffers not yet freed.
func (m *MockEngine) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.buffers {
		if !b.freed {
			n++
		}
	}
	return n
}

func (m *MockEngine) get(h BufferHandle) (*mockBuffer, error) {
	b, ok := m.buffers[h]
	if !ok || b.freed {
		return nil, fmt.Errorf("%w: invalid handle %d", ErrEngine, h)
	}
	return b, nil
}

// Allocate reserves a host-memory buffer. Deferred allocation is
// ignored: the mock always allocates eagerly.
func (m *MockEngine) Allocate(shape Shape, ctx Context, dtype DataType, _ bool) (BufferHandle, error) {
	if err := shape.Validate(); err != nil {
		return NilBuffer, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.buffers[m.next] = &mockBuffer{
		shape: shape.Clone(),
		ctx:   ctx,
		dtype: dtype,
		data:  make([]float32, shape.NumElements()),
	}
	return m.next, nil
}

// Free marks the buffer freed and records the call.
func (m *MockEngine) Free(h BufferHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FreeCalls[h]++
	if b, ok := m.buffers[h]; ok {
		b.freed = true
	}
}

// CopyFromHost copies src into the buffer.
func (m *MockEngine) CopyFromHost(h BufferHandle, src []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.get(h)
	if err != nil {
		return err
	}
	if len(src) != len(b.data) {
		return fmt.Errorf("%w: have %d elements, want %d", ErrSizeMismatch, len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

// CopyToHost copies the buffer into dst.
func (m *MockEngine) CopyToHost(h BufferHandle, dst []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.get(h)
	if err != nil {
		return err
	}
	if len(dst) != len(b.data) {
		return fmt.Errorf("%w: have %d elements, want %d", ErrSizeMismatch, len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

// CopyBuffer duplicates src onto ctx.
func (m *MockEngine) CopyBuffer(src BufferHandle, ctx Context) (BufferHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.get(src)
	if err != nil {
		return NilBuffer, err
	}
	m.next++
	out := &mockBuffer{shape: b.shape.Clone(), ctx: ctx, dtype: b.dtype, data: make([]float32, len(b.data))}
	copy(out.data, b.data)
	m.buffers[m.next] = out
	return m.next, nil
}

// BinaryOp executes a op b immediately with broadcasting.
func (m *MockEngine) BinaryOp(op BinaryOp, a, b BufferHandle) (BufferHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ab, err := m.get(a)
	if err != nil {
		return NilBuffer, err
	}
	bb, err := m.get(b)
	if err != nil {
		return NilBuffer, err
	}
	outShape, _, err := BroadcastShapes(ab.shape, bb.shape)
	if err != nil {
		return NilBuffer, err
	}

	out := make([]float32, outShape.NumElements())
	outStrides := outShape.ComputeStrides()
	for i := range out {
		x := ab.data[broadcastIndex(i, outStrides, outShape, ab.shape)]
		y := bb.data[broadcastIndex(i, outStrides, outShape, bb.shape)]
		out[i] = apply(op, x, y)
	}

	m.next++
	m.buffers[m.next] = &mockBuffer{shape: outShape, ctx: ab.ctx, dtype: ab.dtype, data: out}
	return m.next, nil
}

// BinaryScalarOp executes a op scalar immediately.
func (m *MockEngine) BinaryScalarOp(op BinaryOp, a BufferHandle, scalar float32) (BufferHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ab, err := m.get(a)
	if err != nil {
		return NilBuffer, err
	}
	out := make([]float32, len(ab.data))
	for i, x := range ab.data {
		out[i] = apply(op, x, scalar)
	}
	m.next++
	m.buffers[m.next] = &mockBuffer{shape: ab.shape.Clone(), ctx: ab.ctx, dtype: ab.dtype, data: out}
	return m.next, nil
}

// InPlaceOp executes dst = dst op src immediately.
func (m *MockEngine) InPlaceOp(op BinaryOp, dst, src BufferHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, err := m.get(dst)
	if err != nil {
		return err
	}
	sb, err := m.get(src)
	if err != nil {
		return err
	}
	outStrides := db.shape.ComputeStrides()
	for i := range db.data {
		y := sb.data[broadcastIndex(i, outStrides, db.shape, sb.shape)]
		db.data[i] = apply(op, db.data[i], y)
	}
	return nil
}

// InPlaceScalarOp executes dst = dst op scalar immediately.
func (m *MockEngine) InPlaceScalarOp(op BinaryOp, dst BufferHandle, scalar float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, err := m.get(dst)
	if err != nil {
		return err
	}
	for i := range db.data {
		db.data[i] = apply(op, db.data[i], scalar)
	}
	return nil
}

// FillScalar sets every element of dst to v.
func (m *MockEngine) FillScalar(dst BufferHandle, v float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, err := m.get(dst)
	if err != nil {
		return err
	}
	for i := range db.data {
		db.data[i] = v
	}
	return nil
}

// Sample fills dst from the distribution using math/rand.
func (m *MockEngine) Sample(dist Distribution, p1, p2 float32, dst BufferHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, err := m.get(dst)
	if err != nil {
		return err
	}
	for i := range db.data {
		switch dist {
		case DistGaussian:
			db.data[i] = p1 + p2*float32(rand.NormFloat64())
		case DistUniform:
			db.data[i] = p1 + (p2-p1)*rand.Float32()
		}
	}
	return nil
}

// WaitRead returns the injected error, if any.
func (m *MockEngine) WaitRead(h BufferHandle) error { return m.wait(h) }

// WaitWrite returns the injected error, if any.
func (m *MockEngine) WaitWrite(h BufferHandle) error { return m.wait(h) }

// WaitAll returns the injected error, if any.
func (m *MockEngine) WaitAll() error { return m.wait(NilBuffer) }

func (m *MockEngine) wait(BufferHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.FailWait
	m.FailWait = nil
	return err
}

// Shape returns a copy of the buffer's shape.
func (m *MockEngine) Shape(h BufferHandle) Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, err := m.get(h); err == nil {
		return b.shape.Clone()
	}
	return nil
}

// Device returns the buffer's placement.
func (m *MockEngine) Device(h BufferHandle) Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, err := m.get(h); err == nil {
		return b.ctx
	}
	return CPUContext()
}

// DType returns the buffer's storage type.
func (m *MockEngine) DType(h BufferHandle) DataType {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, err := m.get(h); err == nil {
		return b.dtype
	}
	return Float32
}

// Slice copies rows [begin, end) of the leading dimension.
func (m *MockEngine) Slice(h BufferHandle, begin, end int) (BufferHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.get(h)
	if err != nil {
		return NilBuffer, err
	}
	if len(b.shape) == 0 {
		return NilBuffer, fmt.Errorf("%w: cannot slice a scalar", ErrRange)
	}
	if begin < 0 || end <= begin || end > b.shape[0] {
		return NilBuffer, fmt.Errorf("%w: slice [%d, %d) of leading dimension %d", ErrRange, begin, end, b.shape[0])
	}

	outShape := b.shape.Clone()
	outShape[0] = end - begin
	rowSize := 1
	for _, d := range b.shape[1:] {
		rowSize *= d
	}
	out := make([]float32, outShape.NumElements())
	copy(out, b.data[begin*rowSize:end*rowSize])

	m.next++
	m.buffers[m.next] = &mockBuffer{shape: outShape, ctx: b.ctx, dtype: b.dtype, data: out}
	return m.next, nil
}

// HostData returns the live backing slice.
func (m *MockEngine) HostData(h BufferHandle) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, err := m.get(h); err == nil {
		return b.data
	}
	return nil
}

// apply evaluates a single elementwise operation.
func apply(op BinaryOp, x, y float32) float32 {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	case OpDiv:
		return x / y
	default:
		panic("unknown binary op")
	}
}

// broadcastIndex maps a flat index in outShape to the flat index in
// inShape under NumPy broadcasting.
func broadcastIndex(flatIdx int, outStrides []int, outShape, inShape Shape) int {
	inStrides := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)
	inIdx := 0
	temp := flatIdx
	for i := 0; i < len(outShape); i++ {
		dimIdx := temp / outStrides[i]
		temp %= outStrides[i]
		if i < offset {
			continue
		}
		if inShape[i-offset] == 1 {
			continue
		}
		inIdx += dimIdx * inStrides[i-offset]
	}
	return inIdx
}
