package graph

import (
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/param"
	"github.com/born-ml/autograd/shape"
)

// Input appends a leaf vertex holding a constant payload of values,
// laid out in the column-major, batch-last layout tensor.Tensor uses.
func (g *Graph) Input(sh shape.Shape, values []float32) (Node, error) {
	if uint32(len(values)) != sh.TotalElements() {
		return Node{}, errs.New(errs.InvalidArgument, "graph: Input got %d values, shape %s needs %d", len(values), sh, sh.TotalElements())
	}
	return g.push(vertex{
		kind:   kindInput,
		shape:  sh,
		values: append([]float32(nil), values...),
	}), nil
}

// ParameterRef appends a vertex that reads p's live value at forward
// time and, on Backward, flushes its accumulated gradient into p.
func (g *Graph) ParameterRef(p *param.Parameter) Node {
	return g.push(vertex{
		kind:  kindParameter,
		shape: p.Value().Shape(),
		param: p,
	})
}

func (g *Graph) elementwise(k kind, a, b Node) (Node, error) {
	if err := sameGraph(g, a, b); err != nil {
		return Node{}, err
	}
	sa, sb := a.Shape(), b.Shape()
	batch, ok := sa.BroadcastCompatible(sb)
	if !ok {
		return Node{}, errs.New(errs.InvalidArgument, "graph: %s operands %s and %s are not broadcast-compatible", k, sa, sb)
	}
	out, err := sa.ResizeBatch(batch)
	if err != nil {
		return Node{}, err
	}
	return g.push(vertex{
		kind:   k,
		inputs: []int{a.idx, b.idx},
		shape:  out,
	}), nil
}

// Add appends x + y.
func (g *Graph) Add(x, y Node) (Node, error) { return g.elementwise(kindAdd, x, y) }

// Sub appends x - y.
func (g *Graph) Sub(x, y Node) (Node, error) { return g.elementwise(kindSub, x, y) }

// Mul appends the elementwise product x * y.
func (g *Graph) Mul(x, y Node) (Node, error) { return g.elementwise(kindMul, x, y) }

// Div appends the elementwise quotient x / y.
func (g *Graph) Div(x, y Node) (Node, error) { return g.elementwise(kindDiv, x, y) }

func (g *Graph) scalarOp(k kind, x Node, c float32) (Node, error) {
	if err := sameGraph(g, x); err != nil {
		return Node{}, err
	}
	return g.push(vertex{kind: k, inputs: []int{x.idx}, shape: x.Shape(), k: c}), nil
}

// AddK appends x + k.
func (g *Graph) AddK(x Node, k float32) (Node, error) { return g.scalarOp(kindAddK, x, k) }

// SubK appends x - k.
func (g *Graph) SubK(x Node, k float32) (Node, error) { return g.scalarOp(kindSubK, x, k) }

// KSub appends k - x.
func (g *Graph) KSub(k float32, x Node) (Node, error) { return g.scalarOp(kindKSub, x, k) }

// MulK appends x * k.
func (g *Graph) MulK(x Node, k float32) (Node, error) { return g.scalarOp(kindMulK, x, k) }

// DivK appends x / k.
func (g *Graph) DivK(x Node, k float32) (Node, error) { return g.scalarOp(kindDivK, x, k) }

// KDiv appends k / x.
func (g *Graph) KDiv(k float32, x Node) (Node, error) { return g.scalarOp(kindKDiv, x, k) }

func (g *Graph) unary(k kind, x Node) (Node, error) {
	if err := sameGraph(g, x); err != nil {
		return Node{}, err
	}
	return g.push(vertex{kind: k, inputs: []int{x.idx}, shape: x.Shape()}), nil
}

// Relu appends max(0, x).
func (g *Graph) Relu(x Node) (Node, error) { return g.unary(kindRelu, x) }

// Sigmoid appends the logistic sigmoid of x.
func (g *Graph) Sigmoid(x Node) (Node, error) { return g.unary(kindSigmoid, x) }

// Tanh appends the hyperbolic tangent of x.
func (g *Graph) Tanh(x Node) (Node, error) { return g.unary(kindTanh, x) }

// Exp appends the elementwise exponential of x.
func (g *Graph) Exp(x Node) (Node, error) { return g.unary(kindExp, x) }

// MatMul appends dot(w, x): w is (d1,d2), x is (d2,d3), result is
// (d1,d3), with the same batch-broadcast rule as the elementwise
// binaries.
func (g *Graph) MatMul(w, x Node) (Node, error) {
	if err := sameGraph(g, w, x); err != nil {
		return Node{}, err
	}
	sw, sx := w.Shape(), x.Shape()
	if sw.Axis(1) != sx.Axis(0) {
		return Node{}, errs.New(errs.InvalidArgument, "graph: matmul inner dimensions %s and %s do not agree", sw, sx)
	}
	batch := sw.Batch()
	if sx.Batch() > batch {
		batch = sx.Batch()
	}
	if sw.Batch() != sx.Batch() && sw.Batch() != 1 && sx.Batch() != 1 {
		return Node{}, errs.New(errs.InvalidArgument, "graph: matmul batches %d and %d are not broadcast-compatible", sw.Batch(), sx.Batch())
	}
	out := shape.Must([]uint32{sw.Axis(0), sx.Axis(1)}, batch)
	return g.push(vertex{kind: kindMatMul, inputs: []int{w.idx, x.idx}, shape: out}), nil
}

// Transpose appends the transpose of x's leading two axes.
func (g *Graph) Transpose(x Node) (Node, error) {
	if err := sameGraph(g, x); err != nil {
		return Node{}, err
	}
	sx := x.Shape()
	out := shape.Must([]uint32{sx.Axis(1), sx.Axis(0)}, sx.Batch())
	return g.push(vertex{kind: kindTranspose, inputs: []int{x.idx}, shape: out}), nil
}

// Sum appends a reduction of axis to extent 1.
func (g *Graph) Sum(x Node, axis int) (Node, error) {
	if err := sameGraph(g, x); err != nil {
		return Node{}, err
	}
	out, err := x.Shape().ResizeDim(axis, 1)
	if err != nil {
		return Node{}, err
	}
	return g.push(vertex{kind: kindSum, inputs: []int{x.idx}, shape: out, axis: axis}), nil
}

// BatchMean appends the per-element mean over the batch dimension.
func (g *Graph) BatchMean(x Node) (Node, error) {
	if err := sameGraph(g, x); err != nil {
		return Node{}, err
	}
	out, err := x.Shape().ResizeBatch(1)
	if err != nil {
		return Node{}, err
	}
	return g.push(vertex{kind: kindBatchMean, inputs: []int{x.idx}, shape: out}), nil
}

// Slice appends a sub-range read of length extent starting at offset
// along axis.
func (g *Graph) Slice(x Node, axis int, offset, extent uint32) (Node, error) {
	if err := sameGraph(g, x); err != nil {
		return Node{}, err
	}
	sx := x.Shape()
	if offset+extent > sx.Axis(axis) {
		return Node{}, errs.New(errs.InvalidArgument, "graph: slice [%d:%d) along axis %d exceeds extent %d", offset, offset+extent, axis, sx.Axis(axis))
	}
	out, err := sx.ResizeDim(axis, extent)
	if err != nil {
		return Node{}, err
	}
	return g.push(vertex{kind: kindSlice, inputs: []int{x.idx}, shape: out, axis: axis, offset: offset}), nil
}

// Concat splices xs along axis. Every input must agree on batch and
// on every axis other than axis.
func (g *Graph) Concat(xs []Node, axis int) (Node, error) {
	if len(xs) == 0 {
		return Node{}, errs.New(errs.InvalidArgument, "graph: Concat requires at least one input")
	}
	if err := sameGraph(g, xs...); err != nil {
		return Node{}, err
	}
	base := xs[0].Shape()
	inputs := make([]int, len(xs))
	offsets := make([]uint32, len(xs))
	var total uint32
	rank := base.Rank()
	for i, x := range xs {
		s := x.Shape()
		if s.Batch() != base.Batch() {
			return Node{}, errs.New(errs.InvalidArgument, "graph: Concat input %d batch %d does not match %d", i, s.Batch(), base.Batch())
		}
		if s.Rank() > rank {
			rank = s.Rank()
		}
		for ax := 0; ax < rank; ax++ {
			if ax != axis && s.Axis(ax) != base.Axis(ax) {
				return Node{}, errs.New(errs.InvalidArgument, "graph: Concat input %d shape %s disagrees with %s outside axis %d", i, s, base, axis)
			}
		}
		inputs[i] = x.idx
		offsets[i] = total
		total += s.Axis(axis)
	}
	out, err := base.ResizeDim(axis, total)
	if err != nil {
		return Node{}, err
	}
	return g.push(vertex{kind: kindConcat, inputs: inputs, shape: out, axis: axis, offsets: offsets}), nil
}

// Dropout appends a training-time dropout: with probability p each
// element is zeroed, and survivors are scaled by 1/(1-p). In eval
// mode (train=false) it passes x through unchanged.
func (g *Graph) Dropout(x Node, p float32, train bool) (Node, error) {
	if err := sameGraph(g, x); err != nil {
		return Node{}, err
	}
	if p < 0 || p >= 1 {
		return Node{}, errs.New(errs.InvalidArgument, "graph: Dropout probability %f must be in [0,1)", p)
	}
	return g.push(vertex{kind: kindDropout, inputs: []int{x.idx}, shape: x.Shape(), k: p, train: train}), nil
}

// SoftmaxCrossEntropy appends softmax(logits) along axis followed by
// -log(p[label]) per batch entry; axis must span the logits' entire
// per-sample shape (i.e. be the sole class dimension).
func (g *Graph) SoftmaxCrossEntropy(logits Node, labels []uint32, axis int) (Node, error) {
	if err := sameGraph(g, logits); err != nil {
		return Node{}, err
	}
	sx := logits.Shape()
	if sx.ElementsPerSample() != sx.Axis(axis) {
		return Node{}, errs.New(errs.InvalidArgument, "graph: softmax_cross_entropy requires axis %d to span the entire per-sample shape %s", axis, sx)
	}
	if uint32(len(labels)) != sx.Batch() {
		return Node{}, errs.New(errs.InvalidArgument, "graph: softmax_cross_entropy got %d labels, batch is %d", len(labels), sx.Batch())
	}
	out := shape.Must([]uint32{1}, sx.Batch())
	return g.push(vertex{
		kind:   kindSoftmaxCrossEntropy,
		inputs: []int{logits.idx},
		shape:  out,
		axis:   axis,
		labels: append([]uint32(nil), labels...),
	}), nil
}
