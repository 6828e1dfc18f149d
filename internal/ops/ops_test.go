package ops

import (
	"testing"

	"github.com/born-ml/dispatch/internal/backend/cpu"
	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/born-ml/dispatch/internal/wrapdim"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func newInvoker(t *testing.T) *dispatch.Invoker {
	t.Helper()
	reg, err := NewStandardRegistry(nil, cpu.New())
	require.NoError(t, err)
	require.True(t, reg.Frozen())
	return dispatch.NewInvoker(reg)
}

func raw[T tensor.DType](t *testing.T, data []T, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromSlice(data, tensor.Shape(shape), typeid.CPUTensor)
	require.NoError(t, err)
	return r
}

func coo(t *testing.T, shape tensor.Shape, coords [][]int64, vals []float64) *tensor.SparseTensor {
	t.Helper()
	s, err := tensor.SparseFromCOO(shape, coords, vals, typeid.CPUTensor)
	require.NoError(t, err)
	return s
}

// call pushes args in declared order, invokes op, and pops a single result.
func call(t *testing.T, iv *dispatch.Invoker, op string, args ...stack.Value) stack.Value {
	t.Helper()
	s := stack.New()
	for _, a := range args {
		s.Push(a)
	}
	require.NoError(t, iv.Call(op, s))
	require.Equal(t, 1, s.Len())
	v, err := s.Pop()
	require.NoError(t, err)
	return v
}

func denseResult(t *testing.T, v stack.Value) *tensor.RawTensor {
	t.Helper()
	out, ok := v.AsTensor()
	require.True(t, ok, "result is %s", v.Kind())
	r, ok := out.(*tensor.RawTensor)
	require.True(t, ok, "result is %s", out.Layout())
	return r
}

func sparseResult(t *testing.T, v stack.Value) *tensor.SparseTensor {
	t.Helper()
	out, ok := v.AsTensor()
	require.True(t, ok, "result is %s", v.Kind())
	s, ok := out.(*tensor.SparseTensor)
	require.True(t, ok, "result is %s", out.Layout())
	return s
}

func tv(x tensor.Tensor) stack.Value { return stack.TensorValue(x) }

func TestStandardOperators(t *testing.T) {
	reg, err := NewStandardRegistry(nil, cpu.New())
	require.NoError(t, err)

	var names []string
	for _, s := range reg.Operators() {
		names = append(names, s.Name())
	}
	want := []string{
		Add, AddScalar, CAdd, CMul, Conditional, CSub, Div, HSpMM, Mul, MulScalar,
		NormAll, Pow, SpAddCDiv, SpAddCMul, SpAddMM, SparseDiv, SparseMul, SpCAdd,
		SSpAddMM, Sub, Sum, SumDim, ToDense, Where, ZerosLike,
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("operators mismatch (-want +got):\n%s", diff)
	}

	cond, ok := reg.Schema(Conditional)
	require.True(t, ok)
	assert.Equal(t, "conditional(condition: bool, lhs: Tensor, rhs: Tensor) -> Tensor", cond.String())
	assert.Len(t, reg.Kernels(cond), len(tensor.DataTypes()))
}

func TestRegisterStandardTwiceReportsEveryConflict(t *testing.T) {
	reg := dispatch.NewRegistry(nil)
	backend := cpu.New()
	require.NoError(t, RegisterStandard(reg, backend))

	err := RegisterStandard(reg, backend)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrDuplicateOperator))
	assert.True(t, errors.Is(err, dispatch.ErrRegistrationConflict))
	assert.Len(t, multierr.Errors(err), len(reg.Operators()))
}

func TestRegisterStandardFrozen(t *testing.T) {
	reg := dispatch.NewRegistry(nil)
	reg.Freeze()
	err := RegisterStandard(reg, cpu.New())
	assert.True(t, errors.Is(err, dispatch.ErrFrozen))
}

func TestRegisterStandardNeedsBackendType(t *testing.T) {
	// No type ids at all, so CPUTensor is unknown.
	_, err := NewStandardRegistry(typeid.NewRegistry(), cpu.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrUnknownBackend))
	assert.False(t, errors.Is(err, dispatch.ErrRegistrationConflict))
}

func TestStandardRegistryKeepsConfiguredTypes(t *testing.T) {
	types := typeid.NewStandardRegistry()
	custom := types.MustDefine(100, "AcmeTensor")
	reg, err := NewStandardRegistry(types, cpu.New())
	require.NoError(t, err)
	assert.True(t, reg.Types().Contains(custom))
}

func TestConditional(t *testing.T) {
	iv := newInvoker(t)
	for _, cond := range []bool{true, false} {
		out := call(t, iv, Conditional,
			stack.Bool(cond),
			tv(raw(t, []int32{5}, 1)),
			tv(raw(t, []int32{10}, 1)),
		)
		want := []int32{10}
		if cond {
			want = []int32{5}
		}
		assert.Equal(t, want, denseResult(t, out).AsInt32())
	}
}

func TestConditionalNoKernelForMixedBackends(t *testing.T) {
	iv := newInvoker(t)
	gpu, err := tensor.FromSlice([]int32{10}, tensor.Shape{1}, typeid.CUDATensor)
	require.NoError(t, err)

	s := stack.New()
	s.PushBool(true)
	s.PushTensor(raw(t, []int32{5}, 1))
	s.PushTensor(gpu)
	err = iv.Call(Conditional, s)
	assert.True(t, errors.Is(err, dispatch.ErrNoMatchingKernel))
}

func TestArithmetic(t *testing.T) {
	iv := newInvoker(t)
	a := raw(t, []float32{1, 2, 3, 4}, 2, 2)
	b := raw(t, []float32{10, 20}, 2)

	tests := []struct {
		op   string
		want []float32
	}{
		{Add, []float32{11, 22, 13, 24}},
		{Sub, []float32{-9, -18, -7, -16}},
		{Mul, []float32{10, 40, 30, 80}},
		{Div, []float32{0.1, 0.1, 0.3, 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			out := denseResult(t, call(t, iv, tt.op, tv(a), tv(b)))
			assert.InDeltaSlice(t, tt.want, out.AsFloat32(), 1e-6)
		})
	}
}

func TestArithmeticDTypeMismatchHasNoKernel(t *testing.T) {
	iv := newInvoker(t)
	s := stack.New()
	s.PushTensor(raw(t, []float32{1}, 1))
	s.PushTensor(raw(t, []int32{1}, 1))
	err := iv.Call(Add, s)
	assert.True(t, errors.Is(err, dispatch.ErrNoMatchingKernel))
}

func TestKernelFailure(t *testing.T) {
	iv := newInvoker(t)
	s := stack.New()
	s.PushTensor(raw(t, []int64{4}, 1))
	s.PushTensor(raw(t, []int64{0}, 1))
	err := iv.Call(Div, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrKernelFailed))
	assert.True(t, errors.Is(err, cpu.ErrDivisionByZero))

	var kerr *dispatch.KernelError
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, Div, kerr.Op)
}

func TestScalarOps(t *testing.T) {
	iv := newInvoker(t)
	out := call(t, iv, MulScalar, tv(raw(t, []float64{1, 2}, 2)), stack.Double(1.5))
	assert.Equal(t, []float64{1.5, 3}, denseResult(t, out).AsFloat64())

	out = call(t, iv, AddScalar, tv(raw(t, []int64{1, 2}, 2)), stack.Double(3))
	assert.Equal(t, []int64{4, 5}, denseResult(t, out).AsInt64())
}

func TestWhere(t *testing.T) {
	iv := newInvoker(t)
	out := call(t, iv, Where,
		tv(raw(t, []bool{false, true}, 2)),
		tv(raw(t, []int32{1, 2}, 2)),
		tv(raw(t, []int32{-1, -2}, 2)),
	)
	assert.Equal(t, []int32{-1, 2}, denseResult(t, out).AsInt32())
}

func TestSumDim(t *testing.T) {
	iv := newInvoker(t)
	x := raw(t, []int32{1, 2, 3, 4, 5, 6}, 2, 3)

	out := denseResult(t, call(t, iv, SumDim, tv(x), stack.Int(-1), stack.Bool(false)))
	assert.Equal(t, tensor.Shape{2}, out.Shape())
	assert.Equal(t, []int32{6, 15}, out.AsInt32())

	s := stack.New()
	s.PushTensor(x)
	s.PushInt(3)
	s.PushBool(false)
	err := iv.Call(SumDim, s)
	assert.True(t, errors.Is(err, wrapdim.ErrDimensionOutOfRange))
	assert.True(t, errors.Is(err, dispatch.ErrKernelFailed))

	out = denseResult(t, call(t, iv, Sum, tv(x)))
	assert.Equal(t, []int32{21}, out.AsInt32())
}

func TestSumDimArgumentTypes(t *testing.T) {
	iv := newInvoker(t)
	s := stack.New()
	s.PushTensor(raw(t, []int32{1}, 1))
	s.PushDouble(0)
	s.PushBool(false)
	err := iv.Call(SumDim, s)
	assert.True(t, errors.Is(err, dispatch.ErrTypeMismatch))
}

// A is [[1, 0, 2], [0, 3, 0]].
func sampleA(t *testing.T) *tensor.SparseTensor {
	return coo(t, tensor.Shape{2, 3}, [][]int64{{0, 0}, {0, 2}, {1, 1}}, []float64{1, 2, 3})
}

func TestSparseLayoutSelectsKernel(t *testing.T) {
	iv := newInvoker(t)

	// A dense tensor has no sparse_mul kernel.
	s := stack.New()
	s.PushTensor(raw(t, []float64{1, 2}, 2))
	s.PushDouble(2)
	err := iv.Call(SparseMul, s)
	assert.True(t, errors.Is(err, dispatch.ErrNoMatchingKernel))

	out := sparseResult(t, call(t, iv, SparseMul, tv(sampleA(t)), stack.Double(2)))
	assert.Equal(t, []float64{2, 0, 4, 0, 6, 0}, out.ToDense().AsFloat64())
}

func TestSpAddMM(t *testing.T) {
	iv := newInvoker(t)
	b := raw(t, []float64{1, 2, 3, 4, 5, 6}, 3, 2)
	c := raw(t, []float64{0, 0, 0, 0}, 2, 2)

	out := denseResult(t, call(t, iv, SpAddMM, tv(c), stack.Double(1), stack.Double(1), tv(sampleA(t)), tv(b)))
	assert.Equal(t, []float64{11, 14, 9, 12}, out.AsFloat64())

	acc := coo(t, tensor.Shape{2, 2}, nil, nil)
	sparse := sparseResult(t, call(t, iv, SSpAddMM, tv(acc), stack.Double(1), stack.Double(1), tv(sampleA(t)), tv(b)))
	assert.Equal(t, []float64{11, 14, 9, 12}, sparse.ToDense().AsFloat64())

	hybrid := sparseResult(t, call(t, iv, HSpMM, stack.Double(2), tv(sampleA(t)), tv(b)))
	assert.Equal(t, []float64{22, 28, 18, 24}, hybrid.ToDense().AsFloat64())
}

func TestSparseElementwise(t *testing.T) {
	iv := newInvoker(t)
	a := sampleA(t)
	base := raw(t, []float64{1, 1, 1, 1, 1, 1}, 2, 3)

	out := denseResult(t, call(t, iv, SpCAdd, tv(base), stack.Double(1), tv(a)))
	assert.Equal(t, []float64{2, 1, 3, 1, 4, 1}, out.AsFloat64())

	out = denseResult(t, call(t, iv, SpAddCMul, tv(base), stack.Double(1), tv(a), tv(a)))
	assert.Equal(t, []float64{2, 1, 5, 1, 10, 1}, out.AsFloat64())

	out = denseResult(t, call(t, iv, SpAddCDiv, tv(base), stack.Double(1), tv(a), tv(a)))
	assert.Equal(t, []float64{2, 1, 2, 1, 2, 1}, out.AsFloat64())

	sum := sparseResult(t, call(t, iv, CAdd, tv(a), stack.Double(1), tv(a)))
	assert.Equal(t, []float64{2, 0, 4, 0, 6, 0}, sum.ToDense().AsFloat64())

	diff := sparseResult(t, call(t, iv, CSub, tv(a), stack.Double(1), tv(a)))
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0}, diff.ToDense().AsFloat64())

	prod := sparseResult(t, call(t, iv, CMul, tv(a), tv(a)))
	assert.Equal(t, []float64{1, 0, 4, 0, 9, 0}, prod.ToDense().AsFloat64())

	sq := sparseResult(t, call(t, iv, Pow, tv(a), stack.Double(2)))
	assert.Equal(t, []float64{1, 0, 4, 0, 9, 0}, sq.ToDense().AsFloat64())

	half := sparseResult(t, call(t, iv, SparseDiv, tv(a), stack.Double(2)))
	assert.Equal(t, []float64{0.5, 0, 1, 0, 1.5, 0}, half.ToDense().AsFloat64())

	zero := sparseResult(t, call(t, iv, ZerosLike, tv(a)))
	assert.Equal(t, 0, zero.NNZ())

	dense := denseResult(t, call(t, iv, ToDense, tv(a)))
	assert.Equal(t, []float64{1, 0, 2, 0, 3, 0}, dense.AsFloat64())
}

func TestNormAll(t *testing.T) {
	iv := newInvoker(t)
	v := call(t, iv, NormAll, tv(coo(t, tensor.Shape{2}, [][]int64{{0}, {1}}, []float64{3, 4})), stack.Double(2))
	n, ok := v.AsDouble()
	require.True(t, ok)
	assert.InDelta(t, 5.0, n, 1e-12)
}

func TestPowZero(t *testing.T) {
	iv := newInvoker(t)
	s := stack.New()
	s.PushTensor(sampleA(t))
	s.PushDouble(0)
	err := iv.Call(Pow, s)
	assert.True(t, errors.Is(err, cpu.ErrZerothPower))
	assert.Contains(t, err.Error(), "cannot raise to zeroth power on sparse tensor")
}
