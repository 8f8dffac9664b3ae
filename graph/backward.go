package graph

import (
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/tensor"
)

// evalBackward computes vertex idx's vector-Jacobian product given its
// upstream gradient and accumulates each contribution into the
// corresponding input's accumulator via getAcc. Every Tensor it
// allocates as an intermediate is freed before returning.
func (g *Graph) evalBackward(idx int, upstream tensor.Tensor, getAcc func(int) (tensor.Tensor, error)) error {
	v := &g.vertices[idx]
	dev := g.dev

	fwd := func(i int) tensor.Tensor { return g.vertices[v.inputs[i]].forward }
	acc := func(i int) (tensor.Tensor, error) { return getAcc(v.inputs[i]) }

	addTo := func(i int, contribution tensor.Tensor) error {
		defer contribution.Free()
		a, err := acc(i)
		if err != nil {
			return err
		}
		return dev.AddGradient(a, contribution)
	}

	switch v.kind {
	case kindInput:
		// leaf, no inputs

	case kindParameter:
		// leaf; flushed into v.param by Graph.Backward

	case kindAdd:
		if err := addTo(0, mustDup(dev, upstream)); err != nil {
			return err
		}
		return addTo(1, mustDup(dev, upstream))

	case kindSub:
		if err := addTo(0, mustDup(dev, upstream)); err != nil {
			return err
		}
		neg, err := dev.Neg(upstream)
		if err != nil {
			return err
		}
		return addTo(1, neg)

	case kindMul:
		gx, err := dev.Mul(upstream, fwd(1))
		if err != nil {
			return err
		}
		if err := addTo(0, gx); err != nil {
			return err
		}
		gy, err := dev.Mul(upstream, fwd(0))
		if err != nil {
			return err
		}
		return addTo(1, gy)

	case kindDiv:
		gx, err := dev.Div(upstream, fwd(1))
		if err != nil {
			return err
		}
		if err := addTo(0, gx); err != nil {
			return err
		}
		// d/dy (x/y) = -x/y^2
		ySq, err := dev.Mul(fwd(1), fwd(1))
		if err != nil {
			return err
		}
		quotient, err := dev.Div(fwd(0), ySq)
		ySq.Free()
		if err != nil {
			return err
		}
		scaled, err := dev.Mul(upstream, quotient)
		quotient.Free()
		if err != nil {
			return err
		}
		gy, err := dev.Neg(scaled)
		scaled.Free()
		if err != nil {
			return err
		}
		return addTo(1, gy)

	case kindAddK, kindSubK:
		return addTo(0, mustDup(dev, upstream))

	case kindKSub:
		neg, err := dev.Neg(upstream)
		if err != nil {
			return err
		}
		return addTo(0, neg)

	case kindMulK:
		gx, err := dev.MulK(upstream, v.k)
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindDivK:
		gx, err := dev.DivK(upstream, v.k)
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindKDiv:
		// d/dx (k/x) = -k/x^2
		xSq, err := dev.Mul(fwd(0), fwd(0))
		if err != nil {
			return err
		}
		ratio, err := dev.KDiv(v.k, xSq)
		xSq.Free()
		if err != nil {
			return err
		}
		scaled, err := dev.Mul(upstream, ratio)
		ratio.Free()
		if err != nil {
			return err
		}
		gx, err := dev.Neg(scaled)
		scaled.Free()
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindMatMul:
		// y = w . x; dw = dy . x^T, dx = w^T . dy
		xT, err := dev.Transpose(fwd(1))
		if err != nil {
			return err
		}
		gw, err := dev.Dot(upstream, xT)
		xT.Free()
		if err != nil {
			return err
		}
		if err := addTo(0, gw); err != nil {
			return err
		}
		wT, err := dev.Transpose(fwd(0))
		if err != nil {
			return err
		}
		gx, err := dev.Dot(wT, upstream)
		wT.Free()
		if err != nil {
			return err
		}
		return addTo(1, gx)

	case kindTranspose:
		gx, err := dev.Transpose(upstream)
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindRelu:
		// d/dx relu(x) = step(x)
		mask, err := dev.Step(fwd(0))
		if err != nil {
			return err
		}
		gx, err := dev.Mul(upstream, mask)
		mask.Free()
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindSigmoid:
		// d/dx sigmoid(x) = y*(1-y), y = forward value
		oneMinus, err := dev.KSub(1, v.forward)
		if err != nil {
			return err
		}
		deriv, err := dev.Mul(v.forward, oneMinus)
		oneMinus.Free()
		if err != nil {
			return err
		}
		gx, err := dev.Mul(upstream, deriv)
		deriv.Free()
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindTanh:
		// d/dx tanh(x) = 1 - y^2, y = forward value
		ySq, err := dev.Mul(v.forward, v.forward)
		if err != nil {
			return err
		}
		deriv, err := dev.KSub(1, ySq)
		ySq.Free()
		if err != nil {
			return err
		}
		gx, err := dev.Mul(upstream, deriv)
		deriv.Free()
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindExp:
		// d/dx exp(x) = y, y = forward value
		gx, err := dev.Mul(upstream, v.forward)
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindSum:
		return backwardSum(dev, v, upstream, acc)

	case kindBatchMean:
		gx, err := dev.DivK(upstream, float32(fwd(0).Shape().Batch()))
		if err != nil {
			return err
		}
		a, err := acc(0)
		if err != nil {
			gx.Free()
			return err
		}
		defer gx.Free()
		return dev.AddGradient(a, gx)

	case kindSlice:
		a, err := acc(0)
		if err != nil {
			return err
		}
		return dev.AddGradientOffset(a, upstream, v.axis, v.offset)

	case kindConcat:
		for i := range v.inputs {
			sub, err := dev.Slice(upstream, v.axis, v.offsets[i], g.vertices[v.inputs[i]].shape)
			if err != nil {
				return err
			}
			if err := addTo(i, sub); err != nil {
				return err
			}
		}
		return nil

	case kindDropout:
		if !v.train {
			return addTo(0, mustDup(dev, upstream))
		}
		masked, err := dev.Mul(upstream, v.aux)
		if err != nil {
			return err
		}
		gx, err := dev.MulK(masked, 1/(1-v.k))
		masked.Free()
		if err != nil {
			return err
		}
		return addTo(0, gx)

	case kindSoftmaxCrossEntropy:
		return backwardSoftmaxCrossEntropy(dev, v, upstream, acc)

	default:
		return errs.New(errs.InvalidState, "graph: unknown vertex kind %s", v.kind)
	}
	return nil
}

func mustDup(dev tensor.Device, x tensor.Tensor) tensor.Tensor {
	t, err := dev.Duplicate(x)
	if err != nil {
		// Duplicate only fails on an invalid handle, which cannot
		// happen for a live upstream gradient Tensor.
		panic(err)
	}
	return t
}

// backwardSum expands upstream back across the reduced axis. Device
// has no broadcast-along-an-arbitrary-axis kernel, so each position is
// accumulated individually via AddGradientOffset.
func backwardSum(dev tensor.Device, v *vertex, upstream tensor.Tensor, acc func(int) (tensor.Tensor, error)) error {
	a, err := acc(0)
	if err != nil {
		return err
	}
	extent := a.Shape().Axis(v.axis)
	for i := uint32(0); i < extent; i++ {
		if err := dev.AddGradientOffset(a, upstream, v.axis, i); err != nil {
			return err
		}
	}
	return nil
}

// backwardSoftmaxCrossEntropy uses the memoized softmax output: the
// gradient of -log(p[label]) with respect to logits is (p - onehot),
// scaled by the upstream per-sample gradient.
func backwardSoftmaxCrossEntropy(dev tensor.Device, v *vertex, upstream tensor.Tensor, acc func(int) (tensor.Tensor, error)) error {
	up, err := upstream.ToVector()
	if err != nil {
		return err
	}
	batch := len(up)
	classes := len(v.cache) / batch

	grad := make([]float32, len(v.cache))
	for b := 0; b < batch; b++ {
		label := int(v.labels[b])
		for c := 0; c < classes; c++ {
			p := v.cache[b*classes+c]
			if c == label {
				p -= 1
			}
			grad[b*classes+c] = p * up[b]
		}
	}

	a, err := acc(0)
	if err != nil {
		return err
	}
	gx, err := dev.NewTensor(a.Shape())
	if err != nil {
		return err
	}
	if err := gx.SetValuesSlice(grad); err != nil {
		gx.Free()
		return err
	}
	defer gx.Free()
	return dev.AddGradient(a, gx)
}
