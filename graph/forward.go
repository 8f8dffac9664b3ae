package graph

import (
	"math"

	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/tensor"
)

// evalForward computes and memoizes vertex idx's forward value. Every
// input vertex is assumed already evaluated, which Forward's
// ascending-index traversal guarantees.
func (g *Graph) evalForward(idx int) error {
	v := &g.vertices[idx]
	dev := g.dev

	in := func(i int) tensor.Tensor { return g.vertices[v.inputs[i]].forward }

	switch v.kind {
	case kindInput:
		t, err := dev.NewTensor(v.shape)
		if err != nil {
			return err
		}
		if err := t.SetValuesSlice(v.values); err != nil {
			t.Free()
			return err
		}
		v.forward, v.hasForward = t, true

	case kindParameter:
		v.forward, v.hasForward = v.param.Value(), true

	case kindAdd:
		t, err := dev.Add(in(0), in(1))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindSub:
		t, err := dev.Sub(in(0), in(1))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindMul:
		t, err := dev.Mul(in(0), in(1))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindDiv:
		t, err := dev.Div(in(0), in(1))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindAddK:
		t, err := dev.AddK(in(0), v.k)
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindSubK:
		t, err := dev.SubK(in(0), v.k)
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindKSub:
		t, err := dev.KSub(v.k, in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindMulK:
		t, err := dev.MulK(in(0), v.k)
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindDivK:
		t, err := dev.DivK(in(0), v.k)
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindKDiv:
		t, err := dev.KDiv(v.k, in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindMatMul:
		t, err := dev.Dot(in(0), in(1))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindTranspose:
		t, err := dev.Transpose(in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindRelu:
		t, err := dev.Relu(in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindSigmoid:
		t, err := dev.Sigmoid(in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindTanh:
		t, err := dev.Tanh(in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindExp:
		t, err := dev.Exp(in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindSum:
		t, err := dev.Sum(in(0), v.axis)
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindBatchMean:
		t, err := evalBatchMean(dev, in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindSlice:
		t, err := dev.Slice(in(0), v.axis, v.offset, v.shape)
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindConcat:
		xs := make([]tensor.Tensor, len(v.inputs))
		for i := range v.inputs {
			xs[i] = in(i)
		}
		t, err := dev.Concat(xs, v.axis, v.shape)
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindDropout:
		t, err := evalDropout(dev, v, in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	case kindSoftmaxCrossEntropy:
		t, err := evalSoftmaxCrossEntropy(dev, v, in(0))
		if err != nil {
			return err
		}
		v.forward, v.hasForward = t, true

	default:
		return errs.New(errs.InvalidState, "graph: unknown vertex kind %s", v.kind)
	}
	return nil
}

func evalBatchMean(dev tensor.Device, x tensor.Tensor) (tensor.Tensor, error) {
	summed, err := dev.BatchSum(x)
	if err != nil {
		return tensor.Tensor{}, err
	}
	defer summed.Free()
	return dev.DivK(summed, float32(x.Shape().Batch()))
}

// evalDropout draws a keep-mask via the Device's Bernoulli kernel and
// caches it for backward; in eval mode it passes x through via
// Duplicate, since the Graph frees every memoized forward Tensor
// exactly once and x's own slot belongs to its producing vertex.
func evalDropout(dev tensor.Device, v *vertex, x tensor.Tensor) (tensor.Tensor, error) {
	if !v.train {
		return dev.Duplicate(x)
	}
	mask, err := dev.RandomBernoulli(x.Shape(), 1-v.k)
	if err != nil {
		return tensor.Tensor{}, err
	}
	v.aux, v.hasAux = mask, true

	masked, err := dev.Mul(x, mask)
	if err != nil {
		return tensor.Tensor{}, err
	}
	defer masked.Free()
	return dev.MulK(masked, 1/(1-v.k))
}

// evalSoftmaxCrossEntropy computes softmax(logits) along v.axis and
// the per-sample loss -log(p[label]) on the host, since Device
// exposes no log kernel; this is a composite operator built on the
// Tensor data-interchange format (to_vector/set_values), not a Device
// kernel itself. The softmax output is cached for Backward.
func evalSoftmaxCrossEntropy(dev tensor.Device, v *vertex, logits tensor.Tensor) (tensor.Tensor, error) {
	vals, err := logits.ToVector()
	if err != nil {
		return tensor.Tensor{}, err
	}
	classes := int(logits.Shape().Axis(v.axis))
	batch := int(logits.Shape().Batch())

	softmax := make([]float32, len(vals))
	loss := make([]float32, batch)
	for b := 0; b < batch; b++ {
		row := vals[b*classes : (b+1)*classes]
		maxVal := row[0]
		for _, x := range row[1:] {
			if x > maxVal {
				maxVal = x
			}
		}
		var sumExp float64
		exps := make([]float64, classes)
		for i, x := range row {
			e := math.Exp(float64(x - maxVal))
			exps[i] = e
			sumExp += e
		}
		for i, e := range exps {
			softmax[b*classes+i] = float32(e / sumExp)
		}
		label := int(v.labels[b])
		loss[b] = float32(-math.Log(float64(softmax[b*classes+label])))
	}

	v.cache = softmax
	out, err := dev.NewTensor(v.shape)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if err := out.SetValuesSlice(loss); err != nil {
		out.Free()
		return tensor.Tensor{}, err
	}
	return out, nil
}
