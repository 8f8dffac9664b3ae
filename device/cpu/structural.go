package cpu

import (
	"github.com/born-ml/autograd/shape"
	"github.com/born-ml/autograd/tensor"
)

// Slice reads a sub-range of length newShape.Axis(axis) starting at
// offset along axis, per original_source's slice_impl.
func (c *CPU) Slice(x tensor.Tensor, axis int, offset uint32, newShape shape.Shape) (tensor.Tensor, error) {
	src, err := dataOf(c, x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	s := x.Shape()
	base := newShape.ElementsUnderRank(axis)
	span := base * newShape.Axis(axis)
	skip := base * s.Axis(axis)
	repeat := newShape.TotalElements() / span

	dst, out, err := newResult(c, newShape)
	if err != nil {
		return tensor.Tensor{}, err
	}
	srcPos := base * offset
	destPos := uint32(0)
	for i := uint32(0); i < repeat; i++ {
		sp := srcPos
		for j := uint32(0); j < span; j++ {
			dst.data[destPos] = src.data[sp]
			destPos++
			sp++
		}
		srcPos += skip
	}
	return out, nil
}

// Concat splices xs along axis into a tensor of shape newShape, per
// original_source's concat_impl.
func (c *CPU) Concat(xs []tensor.Tensor, axis int, newShape shape.Shape) (tensor.Tensor, error) {
	for _, x := range xs {
		if err := tensor.SameDevice(x, xs[0]); err != nil {
			return tensor.Tensor{}, err
		}
	}
	newBS := newShape.Batch()
	base := newShape.ElementsUnderRank(axis)
	skip := base * newShape.Axis(axis)
	repeat := newShape.ElementsPerSample() / skip

	dst, out, err := newResult(c, newShape)
	if err != nil {
		return tensor.Tensor{}, err
	}

	offset := uint32(0)
	for _, x := range xs {
		src, err := dataOf(c, x)
		if err != nil {
			return tensor.Tensor{}, err
		}
		srcDim := x.Shape().Axis(axis)
		span := base * srcDim
		var bSkip uint32
		if x.Shape().Batch() > 1 {
			bSkip = span * repeat
		}
		destPos := offset
		srcPos := uint32(0)
		for b := uint32(0); b < newBS; b++ {
			sp := srcPos
			for i := uint32(0); i < repeat; i++ {
				for j := uint32(0); j < span; j++ {
					dst.data[destPos+j] = src.data[sp+j]
				}
				destPos += skip
				sp += span
			}
			srcPos += bSkip
		}
		offset += span
	}
	return out, nil
}

// Duplicate returns an independent copy of x's storage, per
// original_source's duplicate_impl.
func (c *CPU) Duplicate(x tensor.Tensor) (tensor.Tensor, error) {
	src, err := dataOf(c, x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	dst, out, err := newResult(c, x.Shape())
	if err != nil {
		return tensor.Tensor{}, err
	}
	copy(dst.data, src.data)
	return out, nil
}
