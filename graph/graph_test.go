package graph_test

import (
	"math"
	"testing"

	"github.com/born-ml/autograd/device/cpu"
	"github.com/born-ml/autograd/graph"
	"github.com/born-ml/autograd/param"
	"github.com/born-ml/autograd/shape"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) *cpu.CPU {
	t.Helper()
	dev := cpu.New(cpu.Options{Seed: 3})
	t.Cleanup(func() {
		assert.Zero(t, dev.OutstandingHandles())
	})
	return dev
}

// newParam creates a Parameter with a fixed value, via Constant plus
// an overwrite, so tests can pick exact starting values without
// threading a custom Initializer through every case.
func newParam(t *testing.T, dev *cpu.CPU, values []float32, batch uint32) *param.Parameter {
	t.Helper()
	sh, err := shape.New([]uint32{uint32(len(values)) / batch}, batch)
	require.NoError(t, err)
	p, err := param.New("x", sh, param.Constant{K: 0}, dev)
	require.NoError(t, err)
	require.NoError(t, p.Value().SetValuesSlice(values))
	return p
}

// TestMatMulMatchesColumnMajorDot is scenario 2: a, b are 2x2
// column-major matrices; dot(a,b) = [23,34,31,46].
func TestMatMulMatchesColumnMajorDot(t *testing.T) {
	dev := newDevice(t)
	g := graph.New(dev)
	defer g.Free()

	sh := shape.Must([]uint32{2, 2}, 1)
	a, err := g.Input(sh, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	b, err := g.Input(sh, []float32{5, 6, 7, 8})
	require.NoError(t, err)

	y, err := g.MatMul(a, b)
	require.NoError(t, err)

	out, err := g.Forward(y)
	require.NoError(t, err)
	vals, err := out.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{23, 34, 31, 46}, vals)
}

// TestSumAlongAxis is scenario 3: sum({3,2}, [1..6], axis=0) ->
// {1,2} = [6, 15].
func TestSumAlongAxis(t *testing.T) {
	dev := newDevice(t)
	g := graph.New(dev)
	defer g.Free()

	x, err := g.Input(shape.Must([]uint32{3, 2}, 1), []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	y, err := g.Sum(x, 0)
	require.NoError(t, err)

	out, err := g.Forward(y)
	require.NoError(t, err)
	vals, err := out.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 15}, vals)
}

// TestSoftmaxCrossEntropyAtUniformLogits is scenario 4: three equal
// logits, label 0 -> loss = log 3, gradient = [1/3-1, 1/3, 1/3]. The
// gradient is observed through a Parameter backing the logits, since
// a Graph only flushes accumulated gradients into Parameters.
func TestSoftmaxCrossEntropyAtUniformLogits(t *testing.T) {
	dev := newDevice(t)
	logits := newParam(t, dev, []float32{0, 0, 0}, 1)
	defer logits.Free()

	g := graph.New(dev)
	defer g.Free()

	x := g.ParameterRef(logits)
	loss, err := g.SoftmaxCrossEntropy(x, []uint32{0}, 0)
	require.NoError(t, err)

	out, err := g.Forward(loss)
	require.NoError(t, err)
	vals, err := out.ToVector()
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.InDelta(t, math.Log(3), float64(vals[0]), 1e-5)

	require.NoError(t, g.Backward(loss))
	grad, err := logits.Grad().ToVector()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.0/3 - 1, 1.0 / 3, 1.0 / 3}, toFloat64(grad), 1e-5)
}

// TestTwoBackwardCallsAgreeAfterReset covers §8's "two successive
// backward calls with gradients reset between them produce identical
// gradient Tensors" property.
func TestTwoBackwardCallsAgreeAfterReset(t *testing.T) {
	dev := newDevice(t)
	w := newParam(t, dev, []float32{1, -2, 3}, 1)
	defer w.Free()

	run := func() []float32 {
		g := graph.New(dev)
		defer g.Free()

		x := g.ParameterRef(w)
		sq, err := g.Mul(x, x)
		require.NoError(t, err)
		loss, err := g.Sum(sq, 0)
		require.NoError(t, err)
		require.NoError(t, g.Backward(loss))

		vals, err := w.Grad().ToVector()
		require.NoError(t, err)
		return append([]float32(nil), vals...)
	}

	first := run()
	require.NoError(t, w.ResetGradient())
	second := run()

	assert.Equal(t, first, second)
}

// TestFiniteDifferenceMatchesBackward is the universal finite
// difference property from §8: for a scalar loss L = sum(o(...)),
// the symbolic gradient matches a central-difference estimate within
// tolerance.
func TestFiniteDifferenceMatchesBackward(t *testing.T) {
	dev := newDevice(t)
	values := []float32{0.5, -1.3, 2.1, 0.2}

	loss := func(vals []float32) float32 {
		w := newParam(t, dev, vals, 1)
		defer w.Free()
		g := graph.New(dev)
		defer g.Free()

		x := g.ParameterRef(w)
		y, err := g.Tanh(x)
		require.NoError(t, err)
		z, err := g.MulK(y, 2)
		require.NoError(t, err)
		l, err := g.Sum(z, 0)
		require.NoError(t, err)
		out, err := g.Forward(l)
		require.NoError(t, err)
		v, err := out.ToVector()
		require.NoError(t, err)
		return v[0]
	}

	w := newParam(t, dev, values, 1)
	g := graph.New(dev)
	x := g.ParameterRef(w)
	y, err := g.Tanh(x)
	require.NoError(t, err)
	z, err := g.MulK(y, 2)
	require.NoError(t, err)
	l, err := g.Sum(z, 0)
	require.NoError(t, err)
	require.NoError(t, g.Backward(l))
	symbolic, err := w.Grad().ToVector()
	require.NoError(t, err)
	g.Free()
	w.Free()

	const step = 1e-3
	numeric := make([]float64, len(values))
	for i := range values {
		plus := append([]float32(nil), values...)
		minus := append([]float32(nil), values...)
		plus[i] += step
		minus[i] -= step
		numeric[i] = float64(loss(plus)-loss(minus)) / (2 * step)
	}

	if diff := cmp.Diff(numeric, toFloat64(symbolic), cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Errorf("finite-difference gradient mismatch (-numeric +symbolic):\n%s", diff)
	}
}

// TestDropoutEvalModeIsIdentity checks that disabling training mode
// passes the input through unchanged.
func TestDropoutEvalModeIsIdentity(t *testing.T) {
	dev := newDevice(t)
	g := graph.New(dev)
	defer g.Free()

	x, err := g.Input(shape.Must([]uint32{4}, 1), []float32{1, 2, 3, 4})
	require.NoError(t, err)
	y, err := g.Dropout(x, 0.5, false)
	require.NoError(t, err)

	out, err := g.Forward(y)
	require.NoError(t, err)
	vals, err := out.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, vals)
}

// TestSliceThenConcatReproducesOriginal covers §8's "slice then
// concat along the same axis reproduces the original" property.
func TestSliceThenConcatReproducesOriginal(t *testing.T) {
	dev := newDevice(t)
	g := graph.New(dev)
	defer g.Free()

	x, err := g.Input(shape.Must([]uint32{5}, 1), []float32{1, 2, 3, 4, 5})
	require.NoError(t, err)

	left, err := g.Slice(x, 0, 0, 2)
	require.NoError(t, err)
	right, err := g.Slice(x, 0, 2, 3)
	require.NoError(t, err)
	rejoined, err := g.Concat([]graph.Node{left, right}, 0)
	require.NoError(t, err)

	out, err := g.Forward(rejoined)
	require.NoError(t, err)
	vals, err := out.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, vals)
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
