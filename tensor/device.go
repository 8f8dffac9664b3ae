package tensor

import "github.com/born-ml/autograd/shape"

// Handle is an opaque, device-specific reference to a block of
// storage. Only the Device that produced a Handle may dereference it;
// every other package treats it as an identity token.
type Handle any

// Device is the polymorphic compute backend. It owns every storage
// handle it hands out, implements every elementwise/reduction/matmul
// kernel, and owns a deterministic RNG for the random-initialization
// kernels.
//
// A Device has stable identity: two Devices are never implicitly
// interchangeable, and every kernel that takes two Tensor operands
// must see them backed by the same Device.
type Device interface {
	// Name identifies the backend, e.g. "cpu".
	Name() string

	// NewTensor allocates freshly, uninitialized storage for shape s.
	NewTensor(s shape.Shape) (Tensor, error)

	// Free releases a handle previously returned by this Device.
	// Freeing an unknown handle is an InvalidState error.
	Free(h Handle) error

	// ToVector copies storage to a host-memory, column-major,
	// batch-last sequence of length s.TotalElements().
	ToVector(h Handle, s shape.Shape) ([]float32, error)

	// Reset overwrites every element of h with k.
	Reset(h Handle, s shape.Shape, k float32) error

	// ResetValues overwrites h with values, which must have length
	// s.TotalElements() and use the ToVector layout.
	ResetValues(h Handle, s shape.Shape, values []float32) error

	// RandomBernoulli returns a new Tensor whose elements are
	// i.i.d. Bernoulli(p), each 0 or 1.
	RandomBernoulli(s shape.Shape, p float32) (Tensor, error)

	// RandomUniform returns a new Tensor whose elements are i.i.d.
	// uniform on (lo, hi]: a draw exactly equal to lo is remapped to
	// hi, per the reference distribution's documented behavior.
	RandomUniform(s shape.Shape, lo, hi float32) (Tensor, error)

	// RandomNormal returns a new Tensor whose elements are i.i.d.
	// Gaussian(mean, sd^2).
	RandomNormal(s shape.Shape, mean, sd float32) (Tensor, error)

	// Elementwise unary kernels.
	Neg(x Tensor) (Tensor, error)
	Exp(x Tensor) (Tensor, error)
	Tanh(x Tensor) (Tensor, error)
	Sigmoid(x Tensor) (Tensor, error)
	Step(x Tensor) (Tensor, error)
	Relu(x Tensor) (Tensor, error)

	// Scalar-broadcast binary kernels.
	AddK(x Tensor, k float32) (Tensor, error) // x + k
	SubK(x Tensor, k float32) (Tensor, error) // x - k
	KSub(k float32, x Tensor) (Tensor, error) // k - x
	MulK(x Tensor, k float32) (Tensor, error) // x * k
	DivK(x Tensor, k float32) (Tensor, error) // x / k
	KDiv(k float32, x Tensor) (Tensor, error) // k / x

	// Elementwise tensor/tensor binary kernels. Operands must be
	// broadcast-compatible per shape.Shape.BroadcastCompatible.
	Add(a, b Tensor) (Tensor, error)
	Sub(a, b Tensor) (Tensor, error)
	Mul(a, b Tensor) (Tensor, error)
	Div(a, b Tensor) (Tensor, error)

	// Sum reduces axis to extent 1.
	Sum(x Tensor, axis int) (Tensor, error)
	// BatchSum reduces the batch dimension to 1, summing samples.
	BatchSum(x Tensor) (Tensor, error)
	// Broadcast is a reserved, optional kernel; the reference
	// implementation returns a NotImplemented error.
	Broadcast(x Tensor, axis int) (Tensor, error)

	// Transpose swaps the leading two axes.
	Transpose(x Tensor) (Tensor, error)
	// Dot performs batched 2-D matrix multiplication: a is (d1,d2),
	// b is (d2,d3), result is (d1,d3).
	Dot(a, b Tensor) (Tensor, error)

	// Slice reads a sub-range of length newShape.Axis(axis) starting
	// at offset along axis.
	Slice(x Tensor, axis int, offset uint32, newShape shape.Shape) (Tensor, error)
	// Concat splices xs along axis into a tensor of shape newShape.
	Concat(xs []Tensor, axis int, newShape shape.Shape) (Tensor, error)
	// Duplicate returns an independent copy of x's storage.
	Duplicate(x Tensor) (Tensor, error)

	// AddGradient adds src into dst in place, with the same
	// broadcast semantics as Add.
	AddGradient(dst, src Tensor) error
	// AddGradientOffset adds src into the sub-slice of dst starting
	// at offset along axis — the reverse of Slice.
	AddGradientOffset(dst, src Tensor, axis int, offset uint32) error
}
