package cpu

import (
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/shape"
	"github.com/born-ml/autograd/tensor"
)

// Transpose swaps the leading two axes, per original_source's
// transpose_impl.
func (c *CPU) Transpose(x tensor.Tensor) (tensor.Tensor, error) {
	src, err := dataOf(c, x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	s := x.Shape()
	d1, d2 := s.Axis(0), s.Axis(1)
	bs := s.Batch()
	newShape, err := shape.New([]uint32{d2, d1}, bs)
	if err != nil {
		return tensor.Tensor{}, err
	}
	dst, out, err := newResult(c, newShape)
	if err != nil {
		return tensor.Tensor{}, err
	}

	ms := d1 * d2
	srcPos := uint32(0)
	destBase := uint32(0)
	for k := uint32(0); k < bs; k++ {
		pd := destBase
		for j := uint32(0); j < d2; j++ {
			ppd := pd
			for i := uint32(0); i < d1; i++ {
				dst.data[ppd] = src.data[srcPos]
				srcPos++
				ppd += d2
			}
			pd++
		}
		destBase += ms
	}
	return out, nil
}

// Dot computes batched 2-D matrix multiplication: a is (d1,d2), b is
// (d2,d3), result is (d1,d3), with batch broadcast as for the
// elementwise binary kernels. Grounded on original_source's dot_impl.
func (c *CPU) Dot(a, b tensor.Tensor) (tensor.Tensor, error) {
	if err := tensor.SameDevice(a, b); err != nil {
		return tensor.Tensor{}, err
	}
	sa, sb := a.Shape(), b.Shape()
	if sa.Axis(1) != sb.Axis(0) {
		return tensor.Tensor{}, errs.New(errs.InvalidArgument, "cpu: Dot inner dimensions mismatch: a is %s, b is %s", sa, sb)
	}
	batch := sa.Batch()
	if sb.Batch() != batch && sa.Batch() != 1 && sb.Batch() != 1 {
		return tensor.Tensor{}, errs.New(errs.InvalidArgument, "cpu: Dot batch sizes %d and %d are not broadcast-compatible", sa.Batch(), sb.Batch())
	}
	if sb.Batch() > batch {
		batch = sb.Batch()
	}

	d1, d2, d3 := sa.Axis(0), sa.Axis(1), sb.Axis(1)
	srcA, err := dataOf(c, a)
	if err != nil {
		return tensor.Tensor{}, err
	}
	srcB, err := dataOf(c, b)
	if err != nil {
		return tensor.Tensor{}, err
	}
	newShape, err := shape.New([]uint32{d1, d3}, batch)
	if err != nil {
		return tensor.Tensor{}, err
	}
	dst, out, err := newResult(c, newShape)
	if err != nil {
		return tensor.Tensor{}, err
	}

	destShift := d1 * d3
	var srcAShift, srcBShift uint32
	if sa.Batch() > 1 {
		srcAShift = d1 * d2
	}
	if sb.Batch() > 1 {
		srcBShift = d2 * d3
	}

	destBase, aBase, bBase := uint32(0), uint32(0), uint32(0)
	for bi := uint32(0); bi < batch; bi++ {
		for i := uint32(0); i < d1; i++ {
			ky, kb := uint32(0), uint32(0)
			for ky < destShift {
				var sum float32
				ja, jb := uint32(0), uint32(0)
				for jb < d2 {
					sum += srcA.data[aBase+i+ja] * srcB.data[bBase+jb+kb]
					ja += d1
					jb++
				}
				dst.data[destBase+i+ky] = sum
				ky += d1
				kb += d2
			}
		}
		destBase += destShift
		aBase += srcAShift
		bBase += srcBShift
	}
	return out, nil
}
