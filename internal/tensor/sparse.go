package tensor

import (
	"fmt"
	"sort"

	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
)

// SparseTensor is a coordinate-format (COO) sparse tensor.
//
// Indices is an Int64 tensor of shape [Dim(), nnz]: column k holds the
// coordinate of the k-th stored value. Values has shape [nnz]. A coalesced
// tensor has its coordinates sorted in row-major order with no duplicates.
type SparseTensor struct {
	shape     Shape
	indices   *RawTensor
	values    *RawTensor
	coalesced bool
}

// NewSparse builds a sparse tensor from index and value tensors.
func NewSparse(shape Shape, indices, values *RawTensor) (*SparseTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	if indices.DType() != Int64 {
		return nil, errors.Errorf("sparse indices must be int64, got %s", indices.DType())
	}
	if values.Dim() != 1 {
		return nil, errors.Errorf("sparse values must be 1-D, got shape %v", values.Shape())
	}
	nnz := values.Size(0)
	if indices.Dim() != 2 || indices.Size(0) != len(shape) || indices.Size(1) != nnz {
		return nil, errors.Errorf("sparse indices must have shape [%d %d], got %v", len(shape), nnz, indices.Shape())
	}
	if !indices.Backend().Equal(values.Backend()) {
		return nil, errors.Errorf("sparse indices on %s but values on %s", indices.Backend(), values.Backend())
	}
	idx := indices.AsInt64()
	for d, size := range shape {
		for k := 0; k < nnz; k++ {
			if c := idx[d*nnz+k]; c < 0 || c >= int64(size) {
				return nil, errors.Errorf("sparse index %d out of bounds for dimension %d (size %d)", c, d, size)
			}
		}
	}
	return &SparseTensor{shape: shape.Clone(), indices: indices, values: values}, nil
}

// SparseFromCOO builds a sparse tensor from a list of coordinates and values.
func SparseFromCOO[T DType](shape Shape, coords [][]int64, vals []T, backend typeid.TypeID) (*SparseTensor, error) {
	if len(coords) != len(vals) {
		return nil, errors.Errorf("got %d coordinates for %d values", len(coords), len(vals))
	}
	nnz := len(vals)
	indices, err := NewRaw(Shape{len(shape), nnz}, Int64, backend)
	if err != nil {
		return nil, err
	}
	idx := indices.AsInt64()
	for k, c := range coords {
		if len(c) != len(shape) {
			return nil, errors.Errorf("coordinate %d has %d dimensions, want %d", k, len(c), len(shape))
		}
		for d := range c {
			idx[d*nnz+k] = c[d]
		}
	}
	values, err := FromSlice(vals, Shape{nnz}, backend)
	if err != nil {
		return nil, err
	}
	return NewSparse(shape, indices, values)
}

// Backend returns the backend of the stored values.
func (s *SparseTensor) Backend() typeid.TypeID {
	return s.values.Backend()
}

// Layout is always SparseCOO.
func (s *SparseTensor) Layout() Layout {
	return SparseCOO
}

// DType returns the element type of the stored values.
func (s *SparseTensor) DType() DataType {
	return s.values.DType()
}

// Shape returns the logical shape.
func (s *SparseTensor) Shape() Shape {
	return s.shape
}

// Dim returns the logical rank.
func (s *SparseTensor) Dim() int {
	return len(s.shape)
}

// Size returns the logical size of dimension d.
func (s *SparseTensor) Size(d int) int {
	return s.shape[d]
}

// NNZ returns the number of stored values, duplicates included.
func (s *SparseTensor) NNZ() int {
	return s.values.Size(0)
}

// Indices returns the [Dim(), nnz] index tensor.
func (s *SparseTensor) Indices() *RawTensor {
	return s.indices
}

// Values returns the [nnz] value tensor.
func (s *SparseTensor) Values() *RawTensor {
	return s.values
}

// IsCoalesced reports whether the tensor is known to be coalesced.
func (s *SparseTensor) IsCoalesced() bool {
	return s.coalesced
}

// Coordinate returns the coordinate of the k-th stored value.
func (s *SparseTensor) Coordinate(k int) []int64 {
	nnz := s.NNZ()
	idx := s.indices.AsInt64()
	c := make([]int64, len(s.shape))
	for d := range c {
		c[d] = idx[d*nnz+k]
	}
	return c
}

// Offset returns the row-major flat offset of the k-th stored value.
func (s *SparseTensor) Offset(k int) int {
	nnz := s.NNZ()
	idx := s.indices.AsInt64()
	off := 0
	for d, size := range s.shape {
		off = off*size + int(idx[d*nnz+k])
	}
	return off
}

// String returns a short description, not the contents.
func (s *SparseTensor) String() string {
	return fmt.Sprintf("SparseTensor[%s]%v nnz=%d on %s", s.DType(), []int(s.shape), s.NNZ(), s.Backend())
}

// Coalesce returns an equivalent tensor with sorted, unique coordinates.
// Duplicate entries are summed. Bool values are combined with OR.
func (s *SparseTensor) Coalesce() *SparseTensor {
	if s.coalesced {
		return s
	}
	var out *SparseTensor
	switch s.DType() {
	case Float32:
		out = coalesce[float32](s)
	case Float64:
		out = coalesce[float64](s)
	case Int32:
		out = coalesce[int32](s)
	case Int64:
		out = coalesce[int64](s)
	case Uint8:
		out = coalesce[uint8](s)
	case Bool:
		out = coalesceBool(s)
	default:
		panic(fmt.Sprintf("coalesce: unsupported dtype %s", s.DType()))
	}
	out.coalesced = true
	return out
}

// sortedGroups returns stored-value positions grouped by flat offset, in
// ascending offset order.
func (s *SparseTensor) sortedGroups() ([]int, [][]int) {
	groups := make(map[int][]int)
	for k := 0; k < s.NNZ(); k++ {
		off := s.Offset(k)
		groups[off] = append(groups[off], k)
	}
	offsets := make([]int, 0, len(groups))
	for off := range groups {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	ordered := make([][]int, len(offsets))
	for i, off := range offsets {
		ordered[i] = groups[off]
	}
	return offsets, ordered
}

func (s *SparseTensor) rebuild(offsets []int, values *RawTensor) *SparseTensor {
	nnz := len(offsets)
	indices, _ := NewRaw(Shape{len(s.shape), nnz}, Int64, s.Backend())
	idx := indices.AsInt64()
	for k, off := range offsets {
		for d := len(s.shape) - 1; d >= 0; d-- {
			idx[d*nnz+k] = int64(off % s.shape[d])
			off /= s.shape[d]
		}
	}
	return &SparseTensor{shape: s.shape.Clone(), indices: indices, values: values}
}

func coalesce[T Numeric](s *SparseTensor) *SparseTensor {
	offsets, groups := s.sortedGroups()
	src := Data[T](s.values)
	values, _ := NewRaw(Shape{len(offsets)}, s.DType(), s.Backend())
	dst := Data[T](values)
	for i, g := range groups {
		var sum T
		for _, k := range g {
			sum += src[k]
		}
		dst[i] = sum
	}
	return s.rebuild(offsets, values)
}

func coalesceBool(s *SparseTensor) *SparseTensor {
	offsets, groups := s.sortedGroups()
	src := s.values.AsBool()
	values, _ := NewRaw(Shape{len(offsets)}, Bool, s.Backend())
	dst := values.AsBool()
	for i, g := range groups {
		for _, k := range g {
			dst[i] = dst[i] || src[k]
		}
	}
	return s.rebuild(offsets, values)
}

// ToDense materializes s as a strided tensor on the same backend.
func (s *SparseTensor) ToDense() *RawTensor {
	out, _ := NewRaw(s.shape, s.DType(), s.Backend())
	switch s.DType() {
	case Float32:
		scatterAdd[float32](out, s)
	case Float64:
		scatterAdd[float64](out, s)
	case Int32:
		scatterAdd[int32](out, s)
	case Int64:
		scatterAdd[int64](out, s)
	case Uint8:
		scatterAdd[uint8](out, s)
	case Bool:
		dst, src := out.AsBool(), s.values.AsBool()
		for k := range src {
			dst[s.Offset(k)] = dst[s.Offset(k)] || src[k]
		}
	}
	return out
}

func scatterAdd[T Numeric](dst *RawTensor, s *SparseTensor) {
	out, src := Data[T](dst), Data[T](s.values)
	for k := range src {
		out[s.Offset(k)] += src[k]
	}
}

// SparseFromDense converts d to a coalesced sparse tensor on d's backend.
// With keep == nil only non-zero entries are stored; otherwise exactly the
// flat offsets keep accepts, zeros included.
func SparseFromDense(d *RawTensor, keep func(off int) bool) (*SparseTensor, error) {
	switch d.DType() {
	case Float32:
		return sparseFromDense[float32](d, keep)
	case Float64:
		return sparseFromDense[float64](d, keep)
	case Int32:
		return sparseFromDense[int32](d, keep)
	case Int64:
		return sparseFromDense[int64](d, keep)
	case Uint8:
		return sparseFromDense[uint8](d, keep)
	case Bool:
		return sparseFromDense[bool](d, keep)
	default:
		return nil, errors.Errorf("sparse: unsupported dtype %s", d.DType())
	}
}

func sparseFromDense[T DType](d *RawTensor, keep func(off int) bool) (*SparseTensor, error) {
	var zero T
	strides := d.shape.ComputeStrides()
	var coords [][]int64
	var vals []T
	for off, v := range Data[T](d) {
		if keep == nil && v == zero || keep != nil && !keep(off) {
			continue
		}
		c := make([]int64, len(d.shape))
		rem := off
		for i, s := range strides {
			c[i] = int64(rem / s)
			rem %= s
		}
		coords = append(coords, c)
		vals = append(vals, v)
	}
	s, err := SparseFromCOO(d.shape, coords, vals, d.backend)
	if err != nil {
		return nil, err
	}
	// Offsets were visited in ascending order without repeats.
	s.coalesced = true
	return s, nil
}
