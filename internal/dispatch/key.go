package dispatch

import (
	"strconv"
	"strings"

	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
)

// TensorKey is the dispatch descriptor of one tensor argument.
type TensorKey struct {
	Backend typeid.TypeID
	Layout  tensor.Layout
	DType   tensor.DataType
}

// KeyFor returns the descriptor of t.
func KeyFor(t tensor.Tensor) TensorKey {
	return TensorKey{Backend: t.Backend(), Layout: t.Layout(), DType: t.DType()}
}

// Equal compares backends by numeric id and the other fields exactly.
func (k TensorKey) Equal(other TensorKey) bool {
	return k.Backend.Equal(other.Backend) && k.Layout == other.Layout && k.DType == other.DType
}

// String renders the descriptor as "Backend/Layout/dtype".
func (k TensorKey) String() string {
	return k.Backend.String() + "/" + k.Layout.String() + "/" + k.DType.String()
}

// Key is the ordered tuple of descriptors, one per tensor parameter.
type Key []TensorKey

// KeyOf builds a Key from tensors in order.
func KeyOf(ts ...tensor.Tensor) Key {
	key := make(Key, len(ts))
	for i, t := range ts {
		key[i] = KeyFor(t)
	}
	return key
}

// Uniform repeats one descriptor n times.
func Uniform(n int, k TensorKey) Key {
	key := make(Key, n)
	for i := range key {
		key[i] = k
	}
	return key
}

// Equal reports position-wise equality.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if !k[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// String renders the key, e.g. "(CPUTensor/Strided/int32, CPUTensor/Strided/int32)".
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, tk := range k {
		parts[i] = tk.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// mapKey is the comparable form used for registry lookups. It encodes only
// the fields that take part in equality.
func (k Key) mapKey() string {
	var sb strings.Builder
	for i, tk := range k {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatInt(tk.Backend.ID(), 10))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(int(tk.Layout)))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(int(tk.DType)))
	}
	return sb.String()
}
