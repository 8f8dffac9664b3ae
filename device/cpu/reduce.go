package cpu

import (
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/tensor"
)

// Sum reduces axis to extent 1, grounded on original_source's
// sum_impl: walk the "repeat" outer positions and accumulate the n
// elements spaced skip1 apart that make up the reduced axis.
func (c *CPU) Sum(x tensor.Tensor, axis int) (tensor.Tensor, error) {
	src, err := dataOf(c, x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	s := x.Shape()
	newShape, err := s.ResizeDim(axis, 1)
	if err != nil {
		return tensor.Tensor{}, err
	}
	n := s.Axis(axis)
	repeat := newShape.TotalElements()
	skip1 := newShape.ElementsUnderRank(axis)
	skip2 := skip1 * n

	dst, out, err := newResult(c, newShape)
	if err != nil {
		return tensor.Tensor{}, err
	}
	for i := uint32(0); i < repeat; i++ {
		offset := i%skip1 + (i/skip1)*skip2
		var sum float32
		for j := uint32(0); j < n; j++ {
			sum += src.data[offset]
			offset += skip1
		}
		dst.data[i] = sum
	}
	return out, nil
}

// BatchSum reduces the batch dimension to 1, summing samples, per
// original_source's batch_sum_impl.
func (c *CPU) BatchSum(x tensor.Tensor) (tensor.Tensor, error) {
	src, err := dataOf(c, x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	s := x.Shape()
	newShape, err := s.ResizeBatch(1)
	if err != nil {
		return tensor.Tensor{}, err
	}
	dst, out, err := newResult(c, newShape)
	if err != nil {
		return tensor.Tensor{}, err
	}
	size := newShape.TotalElements()
	bs := s.Batch()
	for i := uint32(0); i < size; i++ {
		var sum float32
		pos := i
		for b := uint32(0); b < bs; b++ {
			sum += src.data[pos]
			pos += size
		}
		dst.data[i] = sum
	}
	return out, nil
}

// Broadcast is reserved and not implemented by the reference Device,
// matching original_source's broadcast_impl, which unconditionally
// throws. Callers must not rely on it (spec.md §9 Open Questions).
func (c *CPU) Broadcast(x tensor.Tensor, axis int) (tensor.Tensor, error) {
	return tensor.Tensor{}, errs.New(errs.NotImplemented, "cpu: Broadcast is not implemented by the reference Device")
}
