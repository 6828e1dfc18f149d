// Package stack implements the dynamically-typed argument stack used to
// call operators without knowing their signatures at the call site.
package stack

import (
	"fmt"

	"github.com/born-ml/dispatch/internal/tensor"
)

// Kind is the runtime type tag of a Value.
type Kind int

// Supported value kinds.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindDouble
	KindIntList
	KindTensor
)

// String returns the kind name used in schemas and error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindIntList:
		return "int[]"
	case KindTensor:
		return "Tensor"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the kinds a stack slot can hold.
// The zero Value is KindInvalid.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	ints []int64
	t    tensor.Tensor
}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double wraps a float.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// IntList wraps a copy of xs.
func IntList(xs []int64) Value {
	return Value{kind: KindIntList, ints: append([]int64(nil), xs...)}
}

// TensorValue wraps a tensor handle. A nil tensor yields an invalid Value.
func TensorValue(t tensor.Tensor) Value {
	if t == nil {
		return Value{}
	}
	return Value{kind: KindTensor, t: t}
}

// Kind returns the runtime tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsBool returns the boolean if v is KindBool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer if v is KindInt.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsDouble returns the float if v is KindDouble.
func (v Value) AsDouble() (float64, bool) { return v.f, v.kind == KindDouble }

// AsIntList returns the list if v is KindIntList.
func (v Value) AsIntList() ([]int64, bool) { return v.ints, v.kind == KindIntList }

// AsTensor returns the tensor if v is KindTensor.
func (v Value) AsTensor() (tensor.Tensor, bool) { return v.t, v.kind == KindTensor }

// String formats the payload for logs and the CLI.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprint(v.b)
	case KindInt:
		return fmt.Sprint(v.i)
	case KindDouble:
		return fmt.Sprint(v.f)
	case KindIntList:
		return fmt.Sprint(v.ints)
	case KindTensor:
		return fmt.Sprint(v.t)
	default:
		return "<invalid>"
	}
}

// KindOf returns the Kind whose payload type is T, or KindInvalid.
func KindOf[T any]() Kind {
	switch any((*T)(nil)).(type) {
	case *bool:
		return KindBool
	case *int64:
		return KindInt
	case *float64:
		return KindDouble
	case *[]int64:
		return KindIntList
	case *tensor.Tensor:
		return KindTensor
	default:
		return KindInvalid
	}
}

// As extracts a T from v. ok is false if v does not hold a T.
func As[T any](v Value) (T, bool) {
	var out T
	if v.kind == KindInvalid || v.kind != KindOf[T]() {
		return out, false
	}
	var payload any
	switch v.kind {
	case KindBool:
		payload = v.b
	case KindInt:
		payload = v.i
	case KindDouble:
		payload = v.f
	case KindIntList:
		payload = v.ints
	case KindTensor:
		payload = v.t
	}
	out, ok := payload.(T)
	return out, ok
}

// Of wraps a T in a Value. It panics if T is not a stack payload type.
func Of[T any](x T) Value {
	switch p := any(x).(type) {
	case bool:
		return Bool(p)
	case int64:
		return Int(p)
	case float64:
		return Double(p)
	case []int64:
		return IntList(p)
	case tensor.Tensor:
		return TensorValue(p)
	}
	if KindOf[T]() == KindTensor {
		// A nil tensor.Tensor lands here; it has no dynamic type.
		return Value{}
	}
	panic(fmt.Sprintf("stack: unsupported payload type %T", x))
}
