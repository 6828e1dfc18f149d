package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
)

// tensorBuffer is a reference-counted buffer shared between clones.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex
}

func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// RawTensor is a dense, strided tensor.
type RawTensor struct {
	buffer  *tensorBuffer
	shape   Shape
	stride  []int
	dtype   DataType
	backend typeid.TypeID
	offset  int
}

// NewRaw allocates a zero-filled dense tensor.
func NewRaw(shape Shape, dtype DataType, backend typeid.TypeID) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	if !backend.IsDefined() {
		return nil, errors.New("tensor backend must be a defined type id")
	}
	return &RawTensor{
		buffer:  newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:   shape.Clone(),
		stride:  shape.ComputeStrides(),
		dtype:   dtype,
		backend: backend,
	}, nil
}

// FromSlice creates a dense tensor holding a copy of data.
func FromSlice[T DType](data []T, shape Shape, backend typeid.TypeID) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, DataTypeOf[T](), backend)
	if err != nil {
		return nil, err
	}
	copy(Data[T](raw), data)
	return raw, nil
}

// Scalar creates a 0-D tensor.
func Scalar[T DType](v T, backend typeid.TypeID) (*RawTensor, error) {
	return FromSlice([]T{v}, Shape{}, backend)
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Backend returns the tensor's backend identifier.
func (r *RawTensor) Backend() typeid.TypeID {
	return r.backend
}

// Layout is always Strided.
func (r *RawTensor) Layout() Layout {
	return Strided
}

// Dim returns the tensor's rank.
func (r *RawTensor) Dim() int {
	return len(r.shape)
}

// Size returns the size of dimension d.
func (r *RawTensor) Size(d int) int {
	return r.shape[d]
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory.
func (r *RawTensor) Data() []byte {
	return r.buffer.data[r.offset:]
}

func (r *RawTensor) mustBe(dt DataType) {
	if r.dtype != dt {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
}

// Data returns a zero-copy typed view of r.
// Panics if T does not match r's dtype.
func Data[T DType](r *RawTensor) []T {
	r.mustBe(DataTypeOf[T]())
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	data := r.buffer.data[r.offset:]
	//nolint:gosec // bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}

// AsFloat32 interprets the data as []float32.
func (r *RawTensor) AsFloat32() []float32 { return Data[float32](r) }

// AsFloat64 interprets the data as []float64.
func (r *RawTensor) AsFloat64() []float64 { return Data[float64](r) }

// AsInt32 interprets the data as []int32.
func (r *RawTensor) AsInt32() []int32 { return Data[int32](r) }

// AsInt64 interprets the data as []int64.
func (r *RawTensor) AsInt64() []int64 { return Data[int64](r) }

// AsUint8 interprets the data as []uint8.
func (r *RawTensor) AsUint8() []uint8 { return Data[uint8](r) }

// AsBool interprets the data as []bool.
func (r *RawTensor) AsBool() []bool { return Data[bool](r) }

// Clone returns a shallow copy sharing r's buffer.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer:  r.buffer,
		shape:   r.shape.Clone(),
		stride:  append([]int(nil), r.stride...),
		dtype:   r.dtype,
		backend: r.backend,
		offset:  r.offset,
	}
}

// Copy returns a deep copy with its own buffer.
func (r *RawTensor) Copy() *RawTensor {
	out := &RawTensor{
		buffer:  newTensorBuffer(r.ByteSize()),
		shape:   r.shape.Clone(),
		stride:  r.shape.ComputeStrides(),
		dtype:   r.dtype,
		backend: r.backend,
	}
	copy(out.buffer.data, r.Data())
	return out
}

// Release drops this handle's reference to the buffer.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique reports whether this tensor is the only reference to its buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// String returns a short description, not the contents.
func (r *RawTensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", r.dtype, []int(r.shape), r.backend)
}
