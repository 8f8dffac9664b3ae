package param

import (
	"math"

	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/tensor"
)

// Initializer writes a Tensor's initial values in place. Each variant
// is a small value type; Apply consults t.Shape() and writes via
// t.SetValues/SetValuesSlice or a Device random kernel whose result is
// copied into t and then freed, per spec.md §6's Initializer interface.
type Initializer interface {
	Apply(t tensor.Tensor) error
}

func overwrite(t tensor.Tensor, from tensor.Tensor) error {
	defer from.Free()
	vals, err := from.ToVector()
	if err != nil {
		return err
	}
	return t.SetValuesSlice(vals)
}

// Constant fills every element with k.
type Constant struct{ K float32 }

// Apply fills t with Constant.K.
func (c Constant) Apply(t tensor.Tensor) error {
	return t.SetValues(c.K)
}

// Uniform draws i.i.d. values uniform on (Lo, Hi], matching the
// Device RNG contract (see device/cpu's RandomUniform).
type Uniform struct{ Lo, Hi float32 }

// Apply fills t with Uniform(Lo, Hi] draws.
func (u Uniform) Apply(t tensor.Tensor) error {
	drawn, err := t.Device().RandomUniform(t.Shape(), u.Lo, u.Hi)
	if err != nil {
		return err
	}
	return overwrite(t, drawn)
}

// Normal draws i.i.d. Gaussian(Mean, SD^2) values.
type Normal struct{ Mean, SD float32 }

// Apply fills t with Gaussian(Mean, SD^2) draws.
func (n Normal) Apply(t tensor.Tensor) error {
	drawn, err := t.Device().RandomNormal(t.Shape(), n.Mean, n.SD)
	if err != nil {
		return err
	}
	return overwrite(t, drawn)
}

// Identity fills a square rank-2 Tensor with 1 on the diagonal and 0
// elsewhere. It fails with InvalidArgument on any other shape.
type Identity struct{}

// Apply fills t with the identity matrix.
func (Identity) Apply(t tensor.Tensor) error {
	sh := t.Shape()
	if sh.Rank() != 2 || sh.Axis(0) != sh.Axis(1) {
		return errs.New(errs.InvalidArgument, "param: Identity requires a square rank-2 shape, got %s", sh)
	}
	n := sh.Axis(0)
	values := make([]float32, n*n)
	for i := uint32(0); i < n; i++ {
		values[i*n+i] = 1
	}
	return t.SetValuesSlice(values)
}

// XavierUniform draws a rank-2 Tensor uniform with bound
// scale*sqrt(6/(fan_in+fan_out)), where fan_in and fan_out are the
// shape's two axes. It fails with InvalidArgument on any other rank.
type XavierUniform struct{ Scale float32 }

// Apply fills t with a Xavier/Glorot-uniform draw.
func (x XavierUniform) Apply(t tensor.Tensor) error {
	sh := t.Shape()
	if sh.Rank() != 2 {
		return errs.New(errs.InvalidArgument, "param: XavierUniform requires a rank-2 shape, got %s", sh)
	}
	fanIn, fanOut := float64(sh.Axis(0)), float64(sh.Axis(1))
	scale := x.Scale
	if scale == 0 {
		scale = 1
	}
	bound := float32(float64(scale) * math.Sqrt(6/(fanIn+fanOut)))
	return Uniform{Lo: -bound, Hi: bound}.Apply(t)
}

// XavierNormal draws a rank-2 Tensor Gaussian with
// sd = scale*sqrt(2/(fan_in+fan_out)). It fails with InvalidArgument
// on any other rank.
type XavierNormal struct{ Scale float32 }

// Apply fills t with a Xavier/Glorot-normal draw.
func (x XavierNormal) Apply(t tensor.Tensor) error {
	sh := t.Shape()
	if sh.Rank() != 2 {
		return errs.New(errs.InvalidArgument, "param: XavierNormal requires a rank-2 shape, got %s", sh)
	}
	fanIn, fanOut := float64(sh.Axis(0)), float64(sh.Axis(1))
	scale := x.Scale
	if scale == 0 {
		scale = 1
	}
	sd := float32(float64(scale) * math.Sqrt(2/(fanIn+fanOut)))
	return Normal{Mean: 0, SD: sd}.Apply(t)
}
