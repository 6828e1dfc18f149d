package tensor

import (
	"testing"

	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseFromCOO(t *testing.T) {
	s, err := SparseFromCOO(Shape{2, 3}, [][]int64{{0, 1}, {1, 2}}, []float32{4, 5}, typeid.CPUTensor)
	require.NoError(t, err)

	assert.Equal(t, SparseCOO, s.Layout())
	assert.Equal(t, Float32, s.DType())
	assert.True(t, s.Backend().Equal(typeid.CPUTensor))
	assert.Equal(t, 2, s.NNZ())
	assert.Equal(t, []int64{1, 2}, s.Coordinate(1))
	assert.Equal(t, 5, s.Offset(1))
	assert.Equal(t, Shape{2, 2}, s.Indices().Shape())

	dense := s.ToDense()
	assert.Equal(t, []float32{0, 4, 0, 0, 0, 5}, dense.AsFloat32())
}

func TestSparseRejectsOutOfBoundsIndex(t *testing.T) {
	_, err := SparseFromCOO(Shape{2, 2}, [][]int64{{2, 0}}, []float64{1}, typeid.CPUTensor)
	assert.Error(t, err)

	_, err = SparseFromCOO(Shape{2, 2}, [][]int64{{0}}, []float64{1}, typeid.CPUTensor)
	assert.Error(t, err)
}

func TestNewSparseValidatesIndices(t *testing.T) {
	values, err := FromSlice([]float32{1}, Shape{1}, typeid.CPUTensor)
	require.NoError(t, err)

	wrongType, err := NewRaw(Shape{2, 1}, Int32, typeid.CPUTensor)
	require.NoError(t, err)
	_, err = NewSparse(Shape{2, 2}, wrongType, values)
	assert.Error(t, err)

	otherBackend, err := NewRaw(Shape{2, 1}, Int64, typeid.CUDATensor)
	require.NoError(t, err)
	_, err = NewSparse(Shape{2, 2}, otherBackend, values)
	assert.Error(t, err)
}

func TestCoalesce(t *testing.T) {
	s, err := SparseFromCOO(Shape{3},
		[][]int64{{2}, {0}, {2}, {1}},
		[]int64{1, 2, 3, 4}, typeid.CPUTensor)
	require.NoError(t, err)
	assert.False(t, s.IsCoalesced())

	c := s.Coalesce()
	assert.True(t, c.IsCoalesced())
	assert.Equal(t, 3, c.NNZ())
	assert.Equal(t, []int64{0, 1, 2}, c.Indices().AsInt64())
	assert.Equal(t, []int64{2, 4, 4}, c.Values().AsInt64())
	assert.Same(t, c, c.Coalesce())
	assert.Equal(t, s.ToDense().AsInt64(), c.ToDense().AsInt64())
}

func TestCoalesceMultiDim(t *testing.T) {
	s, err := SparseFromCOO(Shape{2, 2},
		[][]int64{{1, 1}, {0, 1}, {1, 1}},
		[]float64{1, 2, 0.5}, typeid.CPUTensor)
	require.NoError(t, err)

	c := s.Coalesce()
	assert.Equal(t, [][]int64{{0, 1}, {1, 1}}, [][]int64{c.Coordinate(0), c.Coordinate(1)})
	assert.Equal(t, []float64{2, 1.5}, c.Values().AsFloat64())
}

func TestEmptySparse(t *testing.T) {
	s, err := SparseFromCOO[float32](Shape{4}, nil, nil, typeid.CPUTensor)
	require.NoError(t, err)
	assert.Equal(t, 0, s.NNZ())
	assert.Equal(t, []float32{0, 0, 0, 0}, s.ToDense().AsFloat32())
	assert.Equal(t, 0, s.Coalesce().NNZ())
}

func TestCoalesceBool(t *testing.T) {
	s, err := SparseFromCOO(Shape{2}, [][]int64{{1}, {1}}, []bool{false, true}, typeid.CPUTensor)
	require.NoError(t, err)
	c := s.Coalesce()
	assert.Equal(t, []bool{true}, c.Values().AsBool())
}

func TestSparseFromDense(t *testing.T) {
	d, err := FromSlice([]float64{0, 1.5, 0, -2}, Shape{2, 2}, typeid.CPUTensor)
	require.NoError(t, err)

	s, err := SparseFromDense(d, nil)
	require.NoError(t, err)
	assert.True(t, s.IsCoalesced())
	assert.Equal(t, 2, s.NNZ())
	assert.Equal(t, []int64{0, 1}, s.Coordinate(0))
	assert.Equal(t, []int64{1, 1}, s.Coordinate(1))
	assert.Equal(t, d.AsFloat64(), s.ToDense().AsFloat64())

	// keep stores the accepted offsets even when they hold zeros.
	all, err := SparseFromDense(d, func(int) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 4, all.NNZ())

	b, err := FromSlice([]bool{false, true}, Shape{2}, typeid.CPUTensor)
	require.NoError(t, err)
	sb, err := SparseFromDense(b, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sb.NNZ())
}

func TestIsNil(t *testing.T) {
	var raw *RawTensor
	var sparse *SparseTensor
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(raw))
	assert.True(t, IsNil(sparse))

	s, err := SparseFromCOO(Shape{1}, [][]int64{{0}}, []float32{1}, typeid.CPUTensor)
	require.NoError(t, err)
	assert.False(t, IsNil(s))
	assert.False(t, IsNil(s.Values()))
}
