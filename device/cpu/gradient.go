package cpu

import (
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/tensor"
)

// AddGradient adds src into dst in place, with the same broadcast
// semantics as Add, per original_source's add_gradient_impl. This and
// AddGradientOffset are the only in-place mutating kernels the Device
// contract exposes.
func (c *CPU) AddGradient(dst, src tensor.Tensor) error {
	if err := tensor.SameDevice(dst, src); err != nil {
		return err
	}
	sd, ss := dst.Shape(), src.Shape()
	if _, ok := sd.BroadcastCompatible(ss); !ok {
		return errs.New(errs.InvalidArgument, "cpu: AddGradient shapes %s and %s are not broadcast-compatible", sd, ss)
	}
	ddata, err := dataOf(c, dst)
	if err != nil {
		return err
	}
	sdata, err := dataOf(c, src)
	if err != nil {
		return err
	}
	size := sd.ElementsPerSample()
	bsz := sd.Batch()
	if ss.Batch() > bsz {
		bsz = ss.Batch()
	}
	var skipD, skipS uint32
	if sd.Batch() > 1 {
		skipD = size
	}
	if ss.Batch() > 1 {
		skipS = size
	}
	dOff, sOff := uint32(0), uint32(0)
	for b := uint32(0); b < bsz; b++ {
		for i := uint32(0); i < size; i++ {
			ddata.data[dOff+i] += sdata.data[sOff+i]
		}
		dOff += skipD
		sOff += skipS
	}
	return nil
}

// AddGradientOffset adds src into the sub-slice of dst starting at
// offset along axis — the reverse of Slice — per original_source's
// add_gradient_offset_impl.
func (c *CPU) AddGradientOffset(dst, src tensor.Tensor, axis int, offset uint32) error {
	if err := tensor.SameDevice(dst, src); err != nil {
		return err
	}
	sd, ss := dst.Shape(), src.Shape()
	ddata, err := dataOf(c, dst)
	if err != nil {
		return err
	}
	sdata, err := dataOf(c, src)
	if err != nil {
		return err
	}

	base := sd.ElementsUnderRank(axis)
	span := base * ss.Axis(axis)
	skip := base * sd.Axis(axis)
	repeat := sd.ElementsPerSample() / skip
	bsz := sd.Batch()
	if ss.Batch() > bsz {
		bsz = ss.Batch()
	}
	var skipD, skipS uint32
	if sd.Batch() > 1 {
		skipD = sd.ElementsPerSample()
	}
	if ss.Batch() > 1 {
		skipS = ss.ElementsPerSample()
	}

	destBase := base * offset
	srcBase := uint32(0)
	for b := uint32(0); b < bsz; b++ {
		dp := destBase
		sp := srcBase
		for i := uint32(0); i < repeat; i++ {
			for j := uint32(0); j < span; j++ {
				ddata.data[dp+j] += sdata.data[sp+j]
			}
			dp += skip
			sp += span
		}
		destBase += skipD
		srcBase += skipS
	}
	return nil
}
