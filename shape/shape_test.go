package shape_test

import (
	"testing"

	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/shape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsZeroExtent(t *testing.T) {
	_, err := shape.New([]uint32{3, 0, 2}, 1)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestNewRejectsZeroBatch(t *testing.T) {
	_, err := shape.New([]uint32{3, 2}, 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestTotalElements(t *testing.T) {
	s := shape.Must([]uint32{3, 2}, 4)
	assert.EqualValues(t, 6, s.ElementsPerSample())
	assert.EqualValues(t, 24, s.TotalElements())
	assert.Equal(t, s.ElementsPerSample()*s.Batch(), s.TotalElements())
}

func TestAxisPastRankIsOne(t *testing.T) {
	s := shape.Must([]uint32{3, 2}, 1)
	assert.EqualValues(t, 3, s.Axis(0))
	assert.EqualValues(t, 2, s.Axis(1))
	assert.EqualValues(t, 1, s.Axis(2))
	assert.EqualValues(t, 1, s.Axis(99))
}

func TestRankCollapsesTrailingOnes(t *testing.T) {
	s := shape.Must([]uint32{3, 1, 1}, 1)
	assert.Equal(t, 1, s.Rank())

	scalar := shape.Scalar()
	assert.Equal(t, 0, scalar.Rank())
	assert.EqualValues(t, 1, scalar.TotalElements())
}

func TestEqualIgnoresTrailingOnes(t *testing.T) {
	a := shape.Must([]uint32{3, 2}, 1)
	b := shape.Must([]uint32{3, 2, 1}, 1)
	assert.True(t, a.Equal(b))
}

func TestResizeDim(t *testing.T) {
	s := shape.Must([]uint32{3, 2}, 1)
	r, err := s.ResizeDim(0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.Axis(0))
	assert.EqualValues(t, 2, r.Axis(1))

	_, err = s.ResizeDim(0, 0)
	require.Error(t, err)
}

func TestResizeBatch(t *testing.T) {
	s := shape.Must([]uint32{3, 2}, 1)
	r, err := s.ResizeBatch(8)
	require.NoError(t, err)
	assert.EqualValues(t, 8, r.Batch())
	assert.True(t, r.SamePerSample(s))
}

func TestBroadcastCompatible(t *testing.T) {
	a := shape.Must([]uint32{3, 2}, 4)
	b := shape.Must([]uint32{3, 2}, 1)
	bs, ok := a.BroadcastCompatible(b)
	require.True(t, ok)
	assert.EqualValues(t, 4, bs)

	c := shape.Must([]uint32{3, 2}, 5)
	_, ok = a.BroadcastCompatible(c)
	assert.False(t, ok, "mismatched non-1 batches must not be compatible")

	d := shape.Must([]uint32{3, 5}, 1)
	_, ok = a.BroadcastCompatible(d)
	assert.False(t, ok, "different per-sample shapes must not be compatible")
}

func TestElementsUnderRank(t *testing.T) {
	s := shape.Must([]uint32{3, 2, 4}, 1)
	assert.EqualValues(t, 1, s.ElementsUnderRank(0))
	assert.EqualValues(t, 3, s.ElementsUnderRank(1))
	assert.EqualValues(t, 6, s.ElementsUnderRank(2))
}

func TestString(t *testing.T) {
	s := shape.Must([]uint32{3, 2}, 4)
	assert.Equal(t, "{3,2}x4", s.String())
}
