// Package cpu implements the reference tensor.Device backed by host
// memory. Every kernel here is grounded directly on primitiv's
// CPUDevice (original_source/primitiv/cpu_device.cc): contiguous
// column-major storage, batch concatenated as the outermost axis, and
// a handle registry whose non-empty state at Close is a fatal,
// unrecoverable bug rather than a recoverable error.
package cpu

import (
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/internal/xrand"
	"github.com/born-ml/autograd/shape"
	"github.com/born-ml/autograd/tensor"
)

// block is the concrete storage handle returned as a tensor.Handle.
// data is laid out contiguously, column-major, with batches
// concatenated along the outermost position (stride = elements per
// sample). id labels the block independently of its pointer value, so
// a leak report survives a GC cycle that might otherwise reuse the
// address of a just-freed block.
type block struct {
	id   uuid.UUID
	data []float32
}

// Options configures a CPU Device.
type Options struct {
	// Seed seeds the Device's deterministic RNG. Zero means "draw a
	// nondeterministic seed from the OS", matching primitiv's
	// default constructor (std::random_device).
	Seed uint64
}

var _ tensor.Device = (*CPU)(nil)

// CPU is the reference tensor.Device: plain Go slices, no SIMD or
// BLAS dependency. Kernels intentionally stay close to the C reference
// implementation's loop structure rather than being vectorized, since
// this Device is the specification's ground truth, not a performance
// backend.
type CPU struct {
	mu       sync.Mutex
	registry map[*block]struct{}
	closed   bool
	rng      *rand.Rand
}

// New creates a CPU Device. If opts.Seed is zero, the RNG is seeded
// from the OS's cryptographically secure random source, the same way
// primitiv::CPUDevice's default constructor seeds from
// std::random_device.
func New(opts Options) *CPU {
	return &CPU{
		registry: make(map[*block]struct{}),
		rng:      xrand.New(opts.Seed),
	}
}

// Name returns "cpu".
func (c *CPU) Name() string { return "cpu" }

// OutstandingHandles reports the number of live, unfreed storage
// handles. Used by tests and diagnostics; §8's "registry is empty"
// invariant is exactly OutstandingHandles() == 0.
func (c *CPU) OutstandingHandles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.registry)
}

// Close asserts the handle registry is empty and marks the Device
// closed. A non-empty registry at Close means some Tensor allocated by
// this Device was never freed — a programmer error, not a recoverable
// condition — so Close reports every leaked block and aborts the
// process, mirroring primitiv::CPUDevice's destructor.
func (c *CPU) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if len(c.registry) == 0 {
		return
	}
	var leaked uint64
	for b := range c.registry {
		n := uint64(len(b.data)) * 4
		leaked += n
		klog.Errorf("cpu: leaked block %s: %s", b.id, humanize.Bytes(n))
	}
	klog.Errorf("cpu: detected memory leak on Device close: %d block(s), %s", len(c.registry), humanize.Bytes(leaked))
	klog.Fatalf("cpu: %d outstanding storage handle(s) at Close; this is a fatal programmer error, not a recoverable condition", len(c.registry))
}

var errClosed = errs.New(errs.InvalidState, "cpu: operation on a closed Device")

func newBlock(n uint32) *block {
	return &block{id: uuid.New(), data: make([]float32, n)}
}

// NewTensor allocates freshly, uninitialized storage for shape s and
// registers its handle. A runtime finalizer backstops callers that
// drop a Tensor without an explicit Free, the same "release on
// deallocation" contract the teacher's lazy_gpu.go and gomlx's
// xla/cpointers.go use for foreign-owned memory.
func (c *CPU) NewTensor(s shape.Shape) (tensor.Tensor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return tensor.Tensor{}, errClosed
	}
	b := newBlock(s.TotalElements())
	c.registry[b] = struct{}{}
	runtime.SetFinalizer(b, c.finalizeBlock)
	return tensor.New(s, c, b), nil
}

// finalizeBlock is the GC backstop: it silently drops a block from
// the registry without the fatal diagnostic Close uses, since a
// collected-but-unfreed Tensor is common (e.g. intermediate forward
// values) rather than necessarily a bug. Close is what enforces the
// "no outstanding handles" invariant.
func (c *CPU) finalizeBlock(b *block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.registry, b)
}

func (c *CPU) asBlock(h tensor.Handle) (*block, error) {
	b, ok := h.(*block)
	if !ok || b == nil {
		return nil, errs.New(errs.InvalidState, "cpu: handle does not belong to this Device")
	}
	c.mu.Lock()
	_, live := c.registry[b]
	c.mu.Unlock()
	if !live {
		return nil, errs.New(errs.InvalidState, "cpu: attempted to use an unknown or already-freed handle")
	}
	return b, nil
}

// Free releases h back to the Device. Freeing an unknown or
// already-freed handle is an InvalidState error, per §7.
func (c *CPU) Free(h tensor.Handle) error {
	b, err := c.asBlock(h)
	if err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.registry, b)
	c.mu.Unlock()
	runtime.SetFinalizer(b, nil)
	return nil
}

// ToVector copies storage to a host-memory sequence in the Tensor's
// native column-major, batch-last layout.
func (c *CPU) ToVector(h tensor.Handle, s shape.Shape) ([]float32, error) {
	b, err := c.asBlock(h)
	if err != nil {
		return nil, err
	}
	out := make([]float32, s.TotalElements())
	copy(out, b.data)
	return out, nil
}

// Reset overwrites every element of h with k.
func (c *CPU) Reset(h tensor.Handle, s shape.Shape, k float32) error {
	b, err := c.asBlock(h)
	if err != nil {
		return err
	}
	for i := range b.data {
		b.data[i] = k
	}
	return nil
}

// ResetValues overwrites h's storage with values.
func (c *CPU) ResetValues(h tensor.Handle, s shape.Shape, values []float32) error {
	b, err := c.asBlock(h)
	if err != nil {
		return err
	}
	if uint32(len(values)) != s.TotalElements() {
		return errs.New(errs.InvalidArgument, "cpu: ResetValues got %d values, shape %s needs %d", len(values), s, s.TotalElements())
	}
	copy(b.data, values)
	return nil
}

func newResult(c *CPU, s shape.Shape) (*block, tensor.Tensor, error) {
	t, err := c.NewTensor(s)
	if err != nil {
		return nil, tensor.Tensor{}, err
	}
	b, err := c.asBlock(t.Handle())
	if err != nil {
		return nil, tensor.Tensor{}, err
	}
	return b, t, nil
}

func dataOf(c *CPU, t tensor.Tensor) (*block, error) {
	if t.Device() != tensor.Device(c) {
		return nil, errs.New(errs.InvalidArgument, "cpu: tensor is not owned by this Device")
	}
	return c.asBlock(t.Handle())
}
