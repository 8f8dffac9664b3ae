package cpu

import (
	"math"

	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/tensor"
)

func (c *CPU) unary(x tensor.Tensor, f func(float32) float32) (tensor.Tensor, error) {
	src, err := dataOf(c, x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	dst, out, err := newResult(c, x.Shape())
	if err != nil {
		return tensor.Tensor{}, err
	}
	for i, v := range src.data {
		dst.data[i] = f(v)
	}
	return out, nil
}

// Neg negates every element.
func (c *CPU) Neg(x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return -v })
}

// Exp computes exp(x) elementwise.
func (c *CPU) Exp(x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return float32(math.Exp(float64(v))) })
}

// Tanh computes tanh(x) elementwise.
func (c *CPU) Tanh(x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return float32(math.Tanh(float64(v))) })
}

// Sigmoid computes the logistic function via 0.5 + 0.5*tanh(0.5*x),
// primitiv's numerically-stable formulation (original_source's
// sigmoid_impl) rather than 1/(1+exp(-x)).
func (c *CPU) Sigmoid(x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 {
		return float32(.5 + .5*math.Tanh(.5*float64(v)))
	})
}

// Step returns 1 where x > 0, else 0.
func (c *CPU) Step(x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 {
		if v > 0 {
			return 1
		}
		return 0
	})
}

// Relu computes max(0, x) elementwise.
func (c *CPU) Relu(x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// AddK computes x + k elementwise.
func (c *CPU) AddK(x tensor.Tensor, k float32) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return v + k })
}

// SubK computes x - k elementwise.
func (c *CPU) SubK(x tensor.Tensor, k float32) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return v - k })
}

// KSub computes k - x elementwise.
func (c *CPU) KSub(k float32, x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return k - v })
}

// MulK computes x * k elementwise.
func (c *CPU) MulK(x tensor.Tensor, k float32) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return v * k })
}

// DivK computes x / k elementwise.
func (c *CPU) DivK(x tensor.Tensor, k float32) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return v / k })
}

// KDiv computes k / x elementwise.
func (c *CPU) KDiv(k float32, x tensor.Tensor) (tensor.Tensor, error) {
	return c.unary(x, func(v float32) float32 { return k / v })
}

// binary implements the broadcast loop shared by Add/Sub/Mul/Div and
// AddGradient, grounded on original_source's add_impl/subtract_impl/
// multiply_impl/divide_impl (Tensor,Tensor) overloads: per-sample size
// elements repeated bs times, with a zero stride on the operand whose
// batch size is 1.
func (c *CPU) binary(a, b tensor.Tensor, f func(x, y float32) float32) (tensor.Tensor, error) {
	if err := tensor.SameDevice(a, b); err != nil {
		return tensor.Tensor{}, err
	}
	sa, sb := a.Shape(), b.Shape()
	bs, ok := sa.BroadcastCompatible(sb)
	if !ok {
		return tensor.Tensor{}, errs.New(errs.InvalidArgument, "cpu: shapes %s and %s are not broadcast-compatible", sa, sb)
	}
	srcA, err := dataOf(c, a)
	if err != nil {
		return tensor.Tensor{}, err
	}
	srcB, err := dataOf(c, b)
	if err != nil {
		return tensor.Tensor{}, err
	}
	resultShape, err := sa.ResizeBatch(bs)
	if err != nil {
		return tensor.Tensor{}, err
	}
	dst, out, err := newResult(c, resultShape)
	if err != nil {
		return tensor.Tensor{}, err
	}

	size := int(sa.ElementsPerSample())
	skipA, skipB := 0, 0
	if sa.Batch() > 1 {
		skipA = size
	}
	if sb.Batch() > 1 {
		skipB = size
	}
	destOff, aOff, bOff := 0, 0, 0
	for batch := uint32(0); batch < bs; batch++ {
		for i := 0; i < size; i++ {
			dst.data[destOff+i] = f(srcA.data[aOff+i], srcB.data[bOff+i])
		}
		destOff += size
		aOff += skipA
		bOff += skipB
	}
	return out, nil
}

// Add computes a + b elementwise with broadcast semantics.
func (c *CPU) Add(a, b tensor.Tensor) (tensor.Tensor, error) {
	return c.binary(a, b, func(x, y float32) float32 { return x + y })
}

// Sub computes a - b elementwise with broadcast semantics.
func (c *CPU) Sub(a, b tensor.Tensor) (tensor.Tensor, error) {
	return c.binary(a, b, func(x, y float32) float32 { return x - y })
}

// Mul computes a * b elementwise with broadcast semantics.
func (c *CPU) Mul(a, b tensor.Tensor) (tensor.Tensor, error) {
	return c.binary(a, b, func(x, y float32) float32 { return x * y })
}

// Div computes a / b elementwise with broadcast semantics.
func (c *CPU) Div(a, b tensor.Tensor) (tensor.Tensor, error) {
	return c.binary(a, b, func(x, y float32) float32 { return x / y })
}
