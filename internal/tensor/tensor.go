package tensor

import "github.com/born-ml/dispatch/internal/typeid"

// Layout describes how a tensor's elements are stored.
type Layout int

// Supported layouts.
const (
	Strided Layout = iota
	SparseCOO
)

// String returns a human-readable layout name.
func (l Layout) String() string {
	switch l {
	case Strided:
		return "Strided"
	case SparseCOO:
		return "SparseCOO"
	default:
		return "Unknown"
	}
}

// Tensor is the handle dispatch sees. Only the runtime descriptors matter
// to dispatch; kernels type-assert to the concrete storage they expect.
type Tensor interface {
	Backend() typeid.TypeID
	Layout() Layout
	DType() DataType
	Shape() Shape
	Dim() int
	Size(d int) int
}

var (
	_ Tensor = (*RawTensor)(nil)
	_ Tensor = (*SparseTensor)(nil)
)

// IsNil reports whether t is nil or a nil *RawTensor or *SparseTensor.
func IsNil(t Tensor) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *RawTensor:
		return v == nil
	case *SparseTensor:
		return v == nil
	}
	return false
}
