package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/dispatch/internal/parallel"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/born-ml/dispatch/internal/wrapdim"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromSlice(data, tensor.Shape(shape), typeid.CPUTensor)
	require.NoError(t, err)
	return r
}

func i32(t *testing.T, data []int32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromSlice(data, tensor.Shape(shape), typeid.CPUTensor)
	require.NoError(t, err)
	return r
}

func TestBackendIdentity(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.True(t, backend.TypeID().Equal(typeid.CPUTensor))
	assert.Equal(t, parallel.DefaultConfig(), backend.Parallel())
}

func TestAdd(t *testing.T) {
	backend := New()
	out, err := backend.Add(f32(t, []float32{1, 2, 3}, 3), f32(t, []float32{10, 20, 30}, 3))
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33}, out.AsFloat32())
	assert.Equal(t, tensor.Shape{3}, out.Shape())
}

func TestBinaryBroadcast(t *testing.T) {
	backend := New()

	// [2, 3] + [3] -> row-wise add.
	a := f32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := f32(t, []float32{10, 20, 30}, 3)
	out, err := backend.Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, out.AsFloat32())

	// [2, 1] * [1, 3] -> outer product.
	col := f32(t, []float32{2, 3}, 2, 1)
	row := f32(t, []float32{1, 10, 100}, 1, 3)
	out, err = backend.Mul(col, row)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 20, 200, 3, 30, 300}, out.AsFloat32())

	_, err = backend.Sub(f32(t, []float32{1, 2}, 2), f32(t, []float32{1, 2, 3}, 3))
	assert.Error(t, err)
}

func TestIntegerDivision(t *testing.T) {
	backend := New()
	out, err := backend.Div(i32(t, []int32{7, 9}, 2), i32(t, []int32{2, 3}, 2))
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 3}, out.AsInt32())

	_, err = backend.Div(i32(t, []int32{7, 9}, 2), i32(t, []int32{0, 3}, 2))
	assert.True(t, errors.Is(err, ErrDivisionByZero))

	// Floats follow IEEE 754.
	out, err = backend.Div(f32(t, []float32{1}, 1), f32(t, []float32{0}, 1))
	require.NoError(t, err)
	assert.True(t, math.IsInf(float64(out.AsFloat32()[0]), 1))
}

func TestBinaryRejectsMixedOperands(t *testing.T) {
	backend := New()
	_, err := backend.Add(f32(t, []float32{1}, 1), i32(t, []int32{1}, 1))
	assert.Error(t, err)

	gpu, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, typeid.WebGPUTensor)
	require.NoError(t, err)
	_, err = backend.Add(f32(t, []float32{1}, 1), gpu)
	assert.Error(t, err)

	b1, err := tensor.FromSlice([]bool{true}, tensor.Shape{1}, typeid.CPUTensor)
	require.NoError(t, err)
	_, err = backend.Add(b1, b1)
	assert.True(t, errors.Is(err, ErrUnsupportedDType))
}

func TestScalarOps(t *testing.T) {
	backend := New()
	out, err := backend.MulScalar(f32(t, []float32{1, 2, 3}, 3), 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, out.AsFloat32())

	out, err = backend.AddScalar(i32(t, []int32{1, 2}, 2), 5)
	require.NoError(t, err)
	assert.Equal(t, []int32{6, 7}, out.AsInt32())
}

func TestWhere(t *testing.T) {
	backend := New()
	cond, err := tensor.FromSlice([]bool{true, false, true}, tensor.Shape{3}, typeid.CPUTensor)
	require.NoError(t, err)

	out, err := backend.Where(cond, f32(t, []float32{1, 2, 3}, 3), f32(t, []float32{-1, -2, -3}, 3))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -2, 3}, out.AsFloat32())

	_, err = backend.Where(f32(t, []float32{1, 0, 1}, 3), f32(t, []float32{1, 2, 3}, 3), f32(t, []float32{1, 2, 3}, 3))
	assert.Error(t, err)

	_, err = backend.Where(cond, f32(t, []float32{1, 2}, 2), f32(t, []float32{1, 2}, 2))
	assert.Error(t, err)
}

func TestConditional(t *testing.T) {
	backend := New()
	lhs := f32(t, []float32{5}, 1)
	rhs := f32(t, []float32{10}, 1)

	out, err := backend.Conditional(true, lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, out.AsFloat32())
	assert.False(t, lhs.IsUnique(), "result shares the chosen buffer")

	out, err = backend.Conditional(false, lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []float32{10}, out.AsFloat32())

	_, err = backend.Conditional(true, lhs, i32(t, []int32{1}, 1))
	assert.Error(t, err)
}

func TestParallelMatchesSequential(t *testing.T) {
	n := 10000
	a := make([]float32, n)
	b := make([]float32, n)
	for i := range a {
		a[i] = float32(i)
		b[i] = float32(2 * i)
	}
	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16})
	seq := NewWithConfig(parallel.Sequential())

	x, y := f32(t, a, n), f32(t, b, n)
	want, err := seq.Add(x, y)
	require.NoError(t, err)
	got, err := par.Add(x, y)
	require.NoError(t, err)
	assert.Equal(t, want.AsFloat32(), got.AsFloat32())
}

func TestSumDim(t *testing.T) {
	backend := New()
	// [[1, 2, 3], [4, 5, 6]]
	x := f32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	tests := []struct {
		name    string
		dim     int64
		keepDim bool
		shape   tensor.Shape
		want    []float32
	}{
		{"last keep", -1, true, tensor.Shape{2, 1}, []float32{6, 15}},
		{"last", 1, false, tensor.Shape{2}, []float32{6, 15}},
		{"first", 0, false, tensor.Shape{3}, []float32{5, 7, 9}},
		{"first negative", -2, true, tensor.Shape{1, 3}, []float32{5, 7, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := backend.SumDim(x, tt.dim, tt.keepDim)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, out.Shape())
			assert.Equal(t, tt.want, out.AsFloat32())
		})
	}
}

func TestSumDimOutOfRange(t *testing.T) {
	backend := New()
	x := f32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	_, err := backend.SumDim(x, 2, false)
	assert.True(t, errors.Is(err, wrapdim.ErrDimensionOutOfRange))
	assert.Contains(t, err.Error(), "[-2, 1]")
}

func TestSumDimScalar(t *testing.T) {
	backend := New()
	s, err := tensor.Scalar(float32(4), typeid.CPUTensor)
	require.NoError(t, err)

	for _, dim := range []int64{0, -1} {
		out, err := backend.SumDim(s, dim, false)
		require.NoError(t, err)
		assert.Equal(t, []float32{4}, out.AsFloat32())
	}
	_, err = backend.SumDim(s, 1, false)
	assert.Error(t, err)
}

func TestSum(t *testing.T) {
	backend := New()
	out, err := backend.Sum(i32(t, []int32{1, 2, 3, 4}, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Dim())
	assert.Equal(t, []int32{10}, out.AsInt32())
}
