// Package shape implements the immutable tensor shape descriptor used
// by every other layer of the engine: a per-axis extent list plus a
// batch size.
//
// Glossary:
//   - Axis: index of a dimension (axis 0 varies fastest in storage).
//   - Rank: number of axes, with trailing extent-1 axes collapsed.
//   - Batch size: a trailing, independent-sample dimension that
//     broadcasts against a batch size of 1.
package shape

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/born-ml/autograd/errs"
)

// product multiplies a sequence of integers, generic over the
// constraints.Integer family; TotalElements calls it with uint32
// extents. It is kept generic the way the teacher's tensor.DType spans
// float32/float64 rather than duplicating the loop per integer width.
func product[T constraints.Integer](xs ...T) T {
	var n T = 1
	for _, x := range xs {
		n *= x
	}
	return n
}

// Shape is an ordered sequence of per-axis extents plus a batch size.
// Shapes are value types: every method returns a new Shape rather
// than mutating the receiver.
type Shape struct {
	extents []uint32
	batch   uint32
}

// New builds a Shape from the given per-axis extents and batch size.
// Every extent and the batch size must be >= 1.
func New(extents []uint32, batch uint32) (Shape, error) {
	if batch == 0 {
		return Shape{}, errs.New(errs.InvalidArgument, "shape: batch size must be >= 1, got 0")
	}
	for i, e := range extents {
		if e == 0 {
			return Shape{}, errs.New(errs.InvalidArgument, "shape: axis %d has extent 0, extents must be >= 1", i)
		}
	}
	return Shape{extents: append([]uint32(nil), extents...), batch: batch}, nil
}

// Must is New, panicking on error. Intended for literal shapes in
// tests and examples where the extents are known to be valid.
func Must(extents []uint32, batch uint32) Shape {
	s, err := New(extents, batch)
	if err != nil {
		panic(err)
	}
	return s
}

// Scalar is the shape of a single value with batch size 1.
func Scalar() Shape {
	return Shape{batch: 1}
}

// Axis returns the extent at axis i, or 1 if i is past the declared
// rank (every shape has infinitely many trailing size-1 axes).
func (s Shape) Axis(i int) uint32 {
	if i < 0 || i >= len(s.extents) {
		return 1
	}
	return s.extents[i]
}

// Rank returns the number of axes with trailing extent-1 axes
// collapsed.
func (s Shape) Rank() int {
	r := len(s.extents)
	for r > 0 && s.extents[r-1] == 1 {
		r--
	}
	return r
}

// Batch returns the batch size.
func (s Shape) Batch() uint32 {
	return s.batch
}

// ElementsUnderRank returns the product of extents at axes 0..d-1
// (the stride, in elements, of axis d within one sample).
func (s Shape) ElementsUnderRank(d int) uint32 {
	n := uint32(1)
	for i := 0; i < d; i++ {
		n *= s.Axis(i)
	}
	return n
}

// ElementsPerSample returns the product of all per-sample axis
// extents.
func (s Shape) ElementsPerSample() uint32 {
	r := s.Rank()
	if r == 0 {
		return 1
	}
	return s.ElementsUnderRank(r)
}

// TotalElements returns ElementsPerSample() * Batch().
func (s Shape) TotalElements() uint32 {
	return product(s.ElementsPerSample(), s.batch)
}

// ResizeDim returns a copy of s with axis d replaced by extent n.
func (s Shape) ResizeDim(d int, n uint32) (Shape, error) {
	if n == 0 {
		return Shape{}, errs.New(errs.InvalidArgument, "shape: ResizeDim(%d, 0) would create a zero extent", d)
	}
	r := d + 1
	if r < len(s.extents) {
		r = len(s.extents)
	}
	extents := make([]uint32, r)
	for i := range extents {
		extents[i] = s.Axis(i)
	}
	extents[d] = n
	return Shape{extents: extents, batch: s.batch}, nil
}

// ResizeBatch returns a copy of s with batch size n.
func (s Shape) ResizeBatch(n uint32) (Shape, error) {
	if n == 0 {
		return Shape{}, errs.New(errs.InvalidArgument, "shape: ResizeBatch(0) is invalid, batch size must be >= 1")
	}
	return Shape{extents: append([]uint32(nil), s.extents...), batch: n}, nil
}

// Equal reports whether s and o describe the same canonicalized shape:
// equal extents up to trailing-1 collapse, and equal batch size.
func (s Shape) Equal(o Shape) bool {
	if s.batch != o.batch {
		return false
	}
	rs, ro := s.Rank(), o.Rank()
	if rs != ro {
		return false
	}
	for i := 0; i < rs; i++ {
		if s.Axis(i) != o.Axis(i) {
			return false
		}
	}
	return true
}

// SamePerSample reports whether s and o have identical per-sample
// shapes, ignoring batch size. This is the first half of the
// broadcast-compatibility test.
func (s Shape) SamePerSample(o Shape) bool {
	rs, ro := s.Rank(), o.Rank()
	if rs != ro {
		return false
	}
	for i := 0; i < rs; i++ {
		if s.Axis(i) != o.Axis(i) {
			return false
		}
	}
	return true
}

// BroadcastCompatible reports whether s and o can be used as the two
// operands of an elementwise binary kernel: their per-sample shapes
// must be equal, and their batch sizes must either match or one of
// them must be 1. It also returns the resulting batch size
// (max(s.Batch(), o.Batch())).
func (s Shape) BroadcastCompatible(o Shape) (resultBatch uint32, ok bool) {
	if !s.SamePerSample(o) {
		return 0, false
	}
	if s.batch != o.batch && s.batch != 1 && o.batch != 1 {
		return 0, false
	}
	if s.batch > o.batch {
		return s.batch, true
	}
	return o.batch, true
}

// String renders the shape as "{e0,e1,...}xbatch", e.g. "{3,2}x4".
func (s Shape) String() string {
	parts := make([]string, s.Rank())
	for i := range parts {
		parts[i] = fmt.Sprintf("%d", s.Axis(i))
	}
	return fmt.Sprintf("{%s}x%d", strings.Join(parts, ","), s.batch)
}
