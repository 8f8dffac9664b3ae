package cpu_test

import (
	"testing"

	"github.com/born-ml/autograd/device/cpu"
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/shape"
	"github.com/born-ml/autograd/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) *cpu.CPU {
	t.Helper()
	dev := cpu.New(cpu.Options{Seed: 42})
	t.Cleanup(func() {
		assert.Zero(t, dev.OutstandingHandles(), "every allocated tensor must be freed")
	})
	return dev
}

func TestScenario1Constant(t *testing.T) {
	dev := newDevice(t)
	x, err := dev.NewTensor(shape.Must([]uint32{3, 3}, 1))
	require.NoError(t, err)
	defer x.Free()

	require.NoError(t, x.SetValues(7))
	got, err := x.ToVector()
	require.NoError(t, err)
	want := make([]float32, 9)
	for i := range want {
		want[i] = 7
	}
	assert.Equal(t, want, got)
}

func TestScenario2Dot(t *testing.T) {
	dev := newDevice(t)
	sh := shape.Must([]uint32{2, 2}, 1)
	a, err := dev.NewTensor(sh)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.SetValuesSlice([]float32{1, 2, 3, 4}))

	b, err := dev.NewTensor(sh)
	require.NoError(t, err)
	defer b.Free()
	require.NoError(t, b.SetValuesSlice([]float32{5, 6, 7, 8}))

	out, err := dev.Dot(a, b)
	require.NoError(t, err)
	defer out.Free()

	got, err := out.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{23, 34, 31, 46}, got)
}

func TestScenario3Sum(t *testing.T) {
	dev := newDevice(t)
	x, err := dev.NewTensor(shape.Must([]uint32{3, 2}, 1))
	require.NoError(t, err)
	defer x.Free()
	require.NoError(t, x.SetValuesSlice([]float32{1, 2, 3, 4, 5, 6}))

	out, err := dev.Sum(x, 0)
	require.NoError(t, err)
	defer out.Free()

	assert.True(t, out.Shape().Equal(shape.Must([]uint32{1, 2}, 1)))
	got, err := out.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 15}, got)
}

func TestTransposeInvolution(t *testing.T) {
	dev := newDevice(t)
	x, err := dev.NewTensor(shape.Must([]uint32{2, 3}, 1))
	require.NoError(t, err)
	defer x.Free()
	require.NoError(t, x.SetValuesSlice([]float32{1, 2, 3, 4, 5, 6}))

	once, err := dev.Transpose(x)
	require.NoError(t, err)
	defer once.Free()
	twice, err := dev.Transpose(once)
	require.NoError(t, err)
	defer twice.Free()

	want, err := x.ToVector()
	require.NoError(t, err)
	got, err := twice.ToVector()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSliceThenConcatReproducesOriginal(t *testing.T) {
	dev := newDevice(t)
	x, err := dev.NewTensor(shape.Must([]uint32{4, 2}, 1))
	require.NoError(t, err)
	defer x.Free()
	require.NoError(t, x.SetValuesSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8}))

	s1shape := shape.Must([]uint32{2, 2}, 1)
	s1, err := dev.Slice(x, 0, 0, s1shape)
	require.NoError(t, err)
	defer s1.Free()
	s2, err := dev.Slice(x, 0, 2, s1shape)
	require.NoError(t, err)
	defer s2.Free()

	joined, err := dev.Concat([]tensor.Tensor{s1, s2}, 0, x.Shape())
	require.NoError(t, err)
	defer joined.Free()

	want, err := x.ToVector()
	require.NoError(t, err)
	got, err := joined.ToVector()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReluAndStep(t *testing.T) {
	dev := newDevice(t)
	x, err := dev.NewTensor(shape.Must([]uint32{4}, 1))
	require.NoError(t, err)
	defer x.Free()
	require.NoError(t, x.SetValuesSlice([]float32{-2, -0.5, 0, 3}))

	relu, err := dev.Relu(x)
	require.NoError(t, err)
	defer relu.Free()
	reluVals, err := relu.ToVector()
	require.NoError(t, err)
	for _, v := range reluVals {
		assert.GreaterOrEqual(t, v, float32(0))
	}

	step, err := dev.Step(x)
	require.NoError(t, err)
	defer step.Free()
	stepVals, err := step.ToVector()
	require.NoError(t, err)
	for _, v := range stepVals {
		assert.Contains(t, []float32{0, 1}, v)
	}
}

func TestRandomUniformClosedUpperBound(t *testing.T) {
	dev := newDevice(t)
	sh := shape.Must([]uint32{64, 64}, 1)
	out, err := dev.RandomUniform(sh, 0, 1)
	require.NoError(t, err)
	defer out.Free()

	vals, err := out.ToVector()
	require.NoError(t, err)
	for _, v := range vals {
		assert.Greater(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestFreeUnknownHandle(t *testing.T) {
	devA := newDevice(t)
	devB := newDevice(t)
	x, err := devA.NewTensor(shape.Must([]uint32{2}, 1))
	require.NoError(t, err)
	defer x.Free()

	err = devB.Free(x.Handle())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidState))
}

func TestBroadcastNotImplemented(t *testing.T) {
	dev := newDevice(t)
	x, err := dev.NewTensor(shape.Must([]uint32{2}, 1))
	require.NoError(t, err)
	defer x.Free()

	_, err = dev.Broadcast(x, 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotImplemented))
}

func TestHandleRegistryEmptyAfter1000Tensors(t *testing.T) {
	dev := newDevice(t)
	for i := 0; i < 1000; i++ {
		x, err := dev.NewTensor(shape.Must([]uint32{4}, 1))
		require.NoError(t, err)
		require.NoError(t, x.Free())
	}
	assert.Zero(t, dev.OutstandingHandles())
}
