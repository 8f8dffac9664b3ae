package param_test

import (
	"math"
	"testing"

	"github.com/born-ml/autograd/device/cpu"
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/param"
	"github.com/born-ml/autograd/shape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) *cpu.CPU {
	t.Helper()
	dev := cpu.New(cpu.Options{Seed: 1})
	t.Cleanup(func() {
		assert.Zero(t, dev.OutstandingHandles())
	})
	return dev
}

func TestConstant(t *testing.T) {
	dev := newDevice(t)
	for _, k := range []float32{1, 10, 100, 1000, 10000} {
		p, err := param.New("w", shape.Must([]uint32{3, 3, 3}, 1), param.Constant{K: k}, dev)
		require.NoError(t, err)
		vals, err := p.Value().ToVector()
		require.NoError(t, err)
		for _, v := range vals {
			assert.Equal(t, k, v)
		}
		p.Free()
	}
}

func TestUniformRange(t *testing.T) {
	dev := newDevice(t)
	cases := []struct{ lo, hi float32 }{
		{-.1, .1}, {0, 1}, {-1, 0}, {-.70710678, .70710678},
	}
	for _, tc := range cases {
		p, err := param.New("w", shape.Must([]uint32{64, 64}, 1), param.Uniform{Lo: tc.lo, Hi: tc.hi}, dev)
		require.NoError(t, err)
		vals, err := p.Value().ToVector()
		require.NoError(t, err)
		for _, v := range vals {
			assert.Greater(t, v, tc.lo)
			assert.LessOrEqual(t, v, tc.hi)
		}
		p.Free()
	}
}

func TestNormalMeanAndSD(t *testing.T) {
	dev := newDevice(t)
	p, err := param.New("w", shape.Must([]uint32{256, 256}, 1), param.Normal{Mean: 3, SD: 2}, dev)
	require.NoError(t, err)
	defer p.Free()
	vals, err := p.Value().ToVector()
	require.NoError(t, err)
	var m1, m2 float64
	n := float64(len(vals))
	for _, v := range vals {
		m1 += float64(v)
		m2 += float64(v) * float64(v)
	}
	mean := m1 / n
	sd := math.Sqrt(m2/n - mean*mean)
	assert.InDelta(t, 3, mean, 0.2)
	assert.InDelta(t, 2, sd, 0.2)
}

func TestIdentity(t *testing.T) {
	dev := newDevice(t)
	p, err := param.New("w", shape.Must([]uint32{3, 3}, 1), param.Identity{}, dev)
	require.NoError(t, err)
	defer p.Free()
	vals, err := p.Value().ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, vals)
}

func TestIdentityInvalidShapes(t *testing.T) {
	dev := newDevice(t)
	for _, sh := range []shape.Shape{
		shape.Must([]uint32{2}, 1),
		shape.Must([]uint32{2, 2, 2}, 1),
		shape.Must([]uint32{2, 3}, 1),
	} {
		_, err := param.New("w", sh, param.Identity{}, dev)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.InvalidArgument))
	}
}

func TestXavierUniform(t *testing.T) {
	dev := newDevice(t)
	p, err := param.New("w", shape.Must([]uint32{256, 512}, 1), param.XavierUniform{Scale: 1}, dev)
	require.NoError(t, err)
	defer p.Free()
	bound := math.Sqrt(6.0 / (256 + 512))
	vals, err := p.Value().ToVector()
	require.NoError(t, err)
	for _, v := range vals {
		assert.Greater(t, float64(v), -bound)
		assert.LessOrEqual(t, float64(v), bound)
	}
}

func TestXavierUniformInvalidShapes(t *testing.T) {
	dev := newDevice(t)
	for _, sh := range []shape.Shape{
		shape.Must([]uint32{2, 3, 4}, 1),
		shape.Must([]uint32{2, 3, 4, 5}, 1),
	} {
		_, err := param.New("w", sh, param.XavierUniform{Scale: 1}, dev)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.InvalidArgument))
	}
}

func TestXavierNormal(t *testing.T) {
	dev := newDevice(t)
	p, err := param.New("w", shape.Must([]uint32{256, 512}, 1), param.XavierNormal{Scale: 1}, dev)
	require.NoError(t, err)
	defer p.Free()
	vals, err := p.Value().ToVector()
	require.NoError(t, err)
	var m2 float64
	for _, v := range vals {
		m2 += float64(v) * float64(v)
	}
	sd := math.Sqrt(m2 / float64(len(vals)))
	want := math.Sqrt(2.0 / (256 + 512))
	assert.InDelta(t, want, sd, 0.05)
}

func TestXavierNormalInvalidShapes(t *testing.T) {
	dev := newDevice(t)
	for _, sh := range []shape.Shape{
		shape.Must([]uint32{2, 3, 4}, 1),
		shape.Must([]uint32{2, 3, 4, 5}, 1),
	} {
		_, err := param.New("w", sh, param.XavierNormal{Scale: 1}, dev)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.InvalidArgument))
	}
}
