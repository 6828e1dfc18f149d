// Package tensor provides the tensor handles that flow through dispatch.
package tensor

import "github.com/pkg/errors"

// DType is a constraint for supported tensor element types.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~bool
}

// Numeric is DType without bool.
type Numeric interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}

// Float is the floating-point subset of DType.
type Float interface {
	~float32 | ~float64
}

// DataType is the runtime element-type tag of a tensor.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
)

// DataTypes lists every supported data type.
func DataTypes() []DataType {
	return []DataType{Float32, Float64, Int32, Int64, Uint8, Bool}
}

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// IsFloat reports whether dt is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	for _, dt := range DataTypes() {
		if dt.String() == s {
			return dt, nil
		}
	}
	return 0, errors.Errorf("unknown data type %q", s)
}

// DataTypeOf returns the runtime tag for T.
func DataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	default:
		panic("unsupported type")
	}
}
