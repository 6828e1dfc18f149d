package cpu

import (
	"math"

	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/pkg/errors"
)

// Sparse kernels operate on COO tensors with float32 or float64 values.
// Naming follows the usual convention: spOP takes one sparse operand, sspOP
// returns a sparse result, and OPs with only sparse operands drop the prefix.

// ErrZerothPower is returned by Pow with exponent 0, which would fill every
// implicit zero with ones.
var ErrZerothPower = errors.New("cannot raise to zeroth power on sparse tensor")

func checkMatrix(op, what string, t tensor.Tensor) error {
	if t.Dim() != 2 {
		return errors.Errorf("%s: %s must be 2-D, got shape %v", op, what, []int(t.Shape()))
	}
	return nil
}

func (cpu *CPUBackend) checkSparse(op string, ts ...tensor.Tensor) error {
	if err := cpu.checkBackend(op, ts...); err != nil {
		return err
	}
	if err := sameDType(op, ts...); err != nil {
		return err
	}
	if dt := ts[0].DType(); !dt.IsFloat() {
		return unsupported(op, dt)
	}
	return nil
}

func sameShape(op string, a, b tensor.Tensor) error {
	if !a.Shape().Equal(b.Shape()) {
		return errors.Errorf("%s: shape mismatch: %v vs %v", op, []int(a.Shape()), []int(b.Shape()))
	}
	return nil
}

// emptySparse returns a sparse tensor of the given shape with no values.
func (cpu *CPUBackend) emptySparse(shape tensor.Shape, dtype tensor.DataType) (*tensor.SparseTensor, error) {
	indices, err := tensor.NewRaw(tensor.Shape{len(shape), 0}, tensor.Int64, cpu.id)
	if err != nil {
		return nil, err
	}
	values, err := tensor.NewRaw(tensor.Shape{0}, dtype, cpu.id)
	if err != nil {
		return nil, err
	}
	return tensor.NewSparse(shape, indices, values)
}

// Zero returns a sparse tensor shaped like s with no stored values.
func (cpu *CPUBackend) Zero(s *tensor.SparseTensor) (*tensor.SparseTensor, error) {
	if err := cpu.checkBackend("zero", s); err != nil {
		return nil, err
	}
	return cpu.emptySparse(s.Shape(), s.DType())
}

// ZerosLike is Zero under the name the operator library exposes.
func (cpu *CPUBackend) ZerosLike(s *tensor.SparseTensor) (*tensor.SparseTensor, error) {
	return cpu.Zero(s)
}

// SpAddMM computes beta*t + alpha*(sparse @ dense) as a dense matrix.
func (cpu *CPUBackend) SpAddMM(t *tensor.RawTensor, beta, alpha float64, sparse *tensor.SparseTensor, dense *tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "spaddmm"
	if err := cpu.checkSparse(op, t, sparse, dense); err != nil {
		return nil, err
	}
	n, p, err := mmShapes(op, sparse, dense)
	if err != nil {
		return nil, err
	}
	if !t.Shape().Equal(tensor.Shape{n, p}) {
		return nil, errors.Errorf("%s: t must have shape [%d %d], got %v", op, n, p, []int(t.Shape()))
	}
	out, err := cpu.alloc(op, tensor.Shape{n, p}, t.DType())
	if err != nil {
		return nil, err
	}
	switch t.DType() {
	case tensor.Float32:
		spaddmm(out.AsFloat32(), t.AsFloat32(), float32(beta), float32(alpha), sparse, dense.AsFloat32(), p)
	case tensor.Float64:
		spaddmm(out.AsFloat64(), t.AsFloat64(), beta, alpha, sparse, dense.AsFloat64(), p)
	}
	return out, nil
}

func mmShapes(op string, sparse *tensor.SparseTensor, dense *tensor.RawTensor) (n, p int, err error) {
	if err := checkMatrix(op, "sparse", sparse); err != nil {
		return 0, 0, err
	}
	if err := checkMatrix(op, "dense", dense); err != nil {
		return 0, 0, err
	}
	if sparse.Size(1) != dense.Size(0) {
		return 0, 0, errors.Errorf("%s: inner dimensions differ: %v @ %v", op, []int(sparse.Shape()), []int(dense.Shape()))
	}
	return sparse.Size(0), dense.Size(1), nil
}

func spaddmm[T tensor.Float](out, t []T, beta, alpha T, sparse *tensor.SparseTensor, dense []T, p int) {
	for i := range out {
		out[i] = beta * t[i]
	}
	spmmAccumulate(out, alpha, sparse, dense, p)
}

// spmmAccumulate adds alpha * sparse @ dense into out ([n, p] row-major).
func spmmAccumulate[T tensor.Float](out []T, alpha T, sparse *tensor.SparseTensor, dense []T, p int) {
	vals := tensor.Data[T](sparse.Values())
	nnz := sparse.NNZ()
	idx := sparse.Indices().AsInt64()
	for k := 0; k < nnz; k++ {
		row, col := int(idx[k]), int(idx[nnz+k])
		v := alpha * vals[k]
		for c := 0; c < p; c++ {
			out[row*p+c] += v * dense[col*p+c]
		}
	}
}

// SSpAddMM computes beta*t + alpha*(sparse @ dense) with sparse t and a
// sparse result holding only the non-zero entries.
func (cpu *CPUBackend) SSpAddMM(t *tensor.SparseTensor, beta, alpha float64, sparse *tensor.SparseTensor, dense *tensor.RawTensor) (*tensor.SparseTensor, error) {
	const op = "sspaddmm"
	if err := cpu.checkSparse(op, t, sparse, dense); err != nil {
		return nil, err
	}
	n, p, err := mmShapes(op, sparse, dense)
	if err != nil {
		return nil, err
	}
	if !t.Shape().Equal(tensor.Shape{n, p}) {
		return nil, errors.Errorf("%s: t must have shape [%d %d], got %v", op, n, p, []int(t.Shape()))
	}
	acc := t.ToDense()
	switch acc.DType() {
	case tensor.Float32:
		scaleAccumulate(acc.AsFloat32(), float32(beta), float32(alpha), sparse, dense.AsFloat32(), p)
	case tensor.Float64:
		scaleAccumulate(acc.AsFloat64(), beta, alpha, sparse, dense.AsFloat64(), p)
	}
	return tensor.SparseFromDense(acc, nil)
}

func scaleAccumulate[T tensor.Float](acc []T, beta, alpha T, sparse *tensor.SparseTensor, dense []T, p int) {
	for i := range acc {
		acc[i] *= beta
	}
	spmmAccumulate(acc, alpha, sparse, dense, p)
}

// HSpMM computes alpha*(sparse @ dense) as a row-sparse result: every column
// of each row that sparse touches is stored, zeros included.
func (cpu *CPUBackend) HSpMM(alpha float64, sparse *tensor.SparseTensor, dense *tensor.RawTensor) (*tensor.SparseTensor, error) {
	const op = "hspmm"
	if err := cpu.checkSparse(op, sparse, dense); err != nil {
		return nil, err
	}
	n, p, err := mmShapes(op, sparse, dense)
	if err != nil {
		return nil, err
	}
	acc, err := cpu.alloc(op, tensor.Shape{n, p}, dense.DType())
	if err != nil {
		return nil, err
	}
	switch acc.DType() {
	case tensor.Float32:
		spmmAccumulate(acc.AsFloat32(), float32(alpha), sparse, dense.AsFloat32(), p)
	case tensor.Float64:
		spmmAccumulate(acc.AsFloat64(), alpha, sparse, dense.AsFloat64(), p)
	}

	rows := make(map[int]bool)
	idx := sparse.Indices().AsInt64()
	for k := 0; k < sparse.NNZ(); k++ {
		rows[int(idx[k])] = true
	}
	return tensor.SparseFromDense(acc, func(off int) bool { return rows[off/p] })
}

// SpCAdd computes dense + value*sparse as a dense tensor.
func (cpu *CPUBackend) SpCAdd(dense *tensor.RawTensor, value float64, sparse *tensor.SparseTensor) (*tensor.RawTensor, error) {
	const op = "spcadd"
	if err := cpu.checkSparse(op, dense, sparse); err != nil {
		return nil, err
	}
	if err := sameShape(op, dense, sparse); err != nil {
		return nil, err
	}
	out := dense.Copy()
	switch out.DType() {
	case tensor.Float32:
		scatterScaled(out.AsFloat32(), float32(value), sparse)
	case tensor.Float64:
		scatterScaled(out.AsFloat64(), value, sparse)
	}
	return out, nil
}

func scatterScaled[T tensor.Float](dst []T, value T, s *tensor.SparseTensor) {
	vals := tensor.Data[T](s.Values())
	for k, v := range vals {
		dst[s.Offset(k)] += value * v
	}
}

// SpAddCMul computes t + value*src1*src2 (element-wise) as a dense tensor.
func (cpu *CPUBackend) SpAddCMul(t *tensor.RawTensor, value float64, src1, src2 *tensor.SparseTensor) (*tensor.RawTensor, error) {
	return cpu.spaddc("spaddcmul", t, value, src1, src2, false)
}

// SpAddCDiv computes t + value*src1/src2 (element-wise) as a dense tensor.
// Only entries stored in src1 contribute; where src2 has no value the
// quotient follows IEEE 754 division by zero.
func (cpu *CPUBackend) SpAddCDiv(t *tensor.RawTensor, value float64, src1, src2 *tensor.SparseTensor) (*tensor.RawTensor, error) {
	return cpu.spaddc("spaddcdiv", t, value, src1, src2, true)
}

func (cpu *CPUBackend) spaddc(op string, t *tensor.RawTensor, value float64, src1, src2 *tensor.SparseTensor, div bool) (*tensor.RawTensor, error) {
	if err := cpu.checkSparse(op, t, src1, src2); err != nil {
		return nil, err
	}
	if err := sameShape(op, t, src1); err != nil {
		return nil, err
	}
	if err := sameShape(op, src1, src2); err != nil {
		return nil, err
	}
	out := t.Copy()
	switch out.DType() {
	case tensor.Float32:
		addcLoop(out.AsFloat32(), float32(value), src1.Coalesce(), src2.Coalesce(), div)
	case tensor.Float64:
		addcLoop(out.AsFloat64(), value, src1.Coalesce(), src2.Coalesce(), div)
	}
	return out, nil
}

func addcLoop[T tensor.Float](dst []T, value T, a, b *tensor.SparseTensor, div bool) {
	bv := valueMap[T](b)
	av := tensor.Data[T](a.Values())
	for k, x := range av {
		off := a.Offset(k)
		y := bv[off]
		if div {
			dst[off] += value * x / y
		} else {
			dst[off] += value * x * y
		}
	}
}

// valueMap indexes a coalesced sparse tensor's values by flat offset.
func valueMap[T tensor.Float](s *tensor.SparseTensor) map[int]T {
	vals := tensor.Data[T](s.Values())
	m := make(map[int]T, len(vals))
	for k, v := range vals {
		m[s.Offset(k)] = v
	}
	return m
}

// SparseMul multiplies every stored value by value.
func (cpu *CPUBackend) SparseMul(s *tensor.SparseTensor, value float64) (*tensor.SparseTensor, error) {
	return cpu.mapValues("sparse_mul", s, func(x float64) float64 { return x * value })
}

// SparseDiv divides every stored value by value.
func (cpu *CPUBackend) SparseDiv(s *tensor.SparseTensor, value float64) (*tensor.SparseTensor, error) {
	return cpu.mapValues("sparse_div", s, func(x float64) float64 { return x / value })
}

// Pow raises every element to value. Duplicates are summed first. Exponent
// 0 is rejected.
func (cpu *CPUBackend) Pow(s *tensor.SparseTensor, value float64) (*tensor.SparseTensor, error) {
	if value == 0 {
		return nil, ErrZerothPower
	}
	if err := cpu.checkSparse("pow", s); err != nil {
		return nil, err
	}
	return cpu.mapValues("pow", s.Coalesce(), func(x float64) float64 { return math.Pow(x, value) })
}

func (cpu *CPUBackend) mapValues(op string, s *tensor.SparseTensor, f func(float64) float64) (*tensor.SparseTensor, error) {
	if err := cpu.checkSparse(op, s); err != nil {
		return nil, err
	}
	values := s.Values().Copy()
	switch values.DType() {
	case tensor.Float32:
		vs := values.AsFloat32()
		for i, v := range vs {
			vs[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		vs := values.AsFloat64()
		for i, v := range vs {
			vs[i] = f(v)
		}
	}
	out, err := tensor.NewSparse(s.Shape(), s.Indices().Copy(), values)
	if err != nil {
		return nil, errors.WithMessage(err, op)
	}
	return out, nil
}

// CAdd computes t + value*src.
func (cpu *CPUBackend) CAdd(t *tensor.SparseTensor, value float64, src *tensor.SparseTensor) (*tensor.SparseTensor, error) {
	return cpu.combine("cadd", t, value, src)
}

// CSub computes t - value*src.
func (cpu *CPUBackend) CSub(t *tensor.SparseTensor, value float64, src *tensor.SparseTensor) (*tensor.SparseTensor, error) {
	return cpu.combine("csub", t, -value, src)
}

// combine concatenates t and value*src and coalesces the result.
func (cpu *CPUBackend) combine(op string, t *tensor.SparseTensor, value float64, src *tensor.SparseTensor) (*tensor.SparseTensor, error) {
	if err := cpu.checkSparse(op, t, src); err != nil {
		return nil, err
	}
	if err := sameShape(op, t, src); err != nil {
		return nil, err
	}
	scaled, err := cpu.mapValues(op, src, func(x float64) float64 { return x * value })
	if err != nil {
		return nil, err
	}
	nnzA, nnzB := t.NNZ(), scaled.NNZ()
	coords := make([][]int64, 0, nnzA+nnzB)
	for k := 0; k < nnzA; k++ {
		coords = append(coords, t.Coordinate(k))
	}
	for k := 0; k < nnzB; k++ {
		coords = append(coords, scaled.Coordinate(k))
	}

	var out *tensor.SparseTensor
	switch t.DType() {
	case tensor.Float32:
		vals := append(append([]float32(nil), t.Values().AsFloat32()...), scaled.Values().AsFloat32()...)
		out, err = tensor.SparseFromCOO(t.Shape(), coords, vals, cpu.id)
	case tensor.Float64:
		vals := append(append([]float64(nil), t.Values().AsFloat64()...), scaled.Values().AsFloat64()...)
		out, err = tensor.SparseFromCOO(t.Shape(), coords, vals, cpu.id)
	}
	if err != nil {
		return nil, errors.WithMessage(err, op)
	}
	return out.Coalesce(), nil
}

// CMul multiplies t and src element-wise. Only coordinates stored in both
// operands can be non-zero, so the result holds their intersection.
func (cpu *CPUBackend) CMul(t, src *tensor.SparseTensor) (*tensor.SparseTensor, error) {
	const op = "cmul"
	if err := cpu.checkSparse(op, t, src); err != nil {
		return nil, err
	}
	if err := sameShape(op, t, src); err != nil {
		return nil, err
	}
	switch t.DType() {
	case tensor.Float32:
		return intersect[float32](cpu, t.Coalesce(), src.Coalesce())
	default:
		return intersect[float64](cpu, t.Coalesce(), src.Coalesce())
	}
}

func intersect[T tensor.Float](cpu *CPUBackend, a, b *tensor.SparseTensor) (*tensor.SparseTensor, error) {
	bv := valueMap[T](b)
	av := tensor.Data[T](a.Values())
	var coords [][]int64
	var vals []T
	for k, x := range av {
		y, ok := bv[a.Offset(k)]
		if !ok {
			continue
		}
		coords = append(coords, a.Coordinate(k))
		vals = append(vals, x*y)
	}
	out, err := tensor.SparseFromCOO(a.Shape(), coords, vals, cpu.id)
	if err != nil {
		return nil, err
	}
	return out.Coalesce(), nil
}

// NormAll returns the p-norm of all stored values, after coalescing.
// p = +Inf gives the maximum absolute value.
func (cpu *CPUBackend) NormAll(s *tensor.SparseTensor, p float64) (float64, error) {
	if err := cpu.checkSparse("normall", s); err != nil {
		return 0, err
	}
	if p <= 0 {
		return 0, errors.Errorf("normall: p must be positive, got %v", p)
	}
	c := s.Coalesce()
	var abs []float64
	switch c.DType() {
	case tensor.Float32:
		for _, v := range c.Values().AsFloat32() {
			abs = append(abs, math.Abs(float64(v)))
		}
	case tensor.Float64:
		for _, v := range c.Values().AsFloat64() {
			abs = append(abs, math.Abs(v))
		}
	}
	if math.IsInf(p, 1) {
		maxAbs := 0.0
		for _, v := range abs {
			maxAbs = math.Max(maxAbs, v)
		}
		return maxAbs, nil
	}
	sum := 0.0
	for _, v := range abs {
		sum += math.Pow(v, p)
	}
	return math.Pow(sum, 1/p), nil
}
