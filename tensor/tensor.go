// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
)

// Type aliases for public API

// DType is a constraint for tensor element types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType is the runtime tag of a tensor's element type.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Layout describes how a tensor's elements are stored.
type Layout = tensor.Layout

// Layout constants.
const (
	Strided   Layout = tensor.Strided
	SparseCOO Layout = tensor.SparseCOO
)

// TypeID identifies the backend a tensor lives on.
type TypeID = typeid.TypeID

// Standard backend identifiers.
var (
	Undefined    = typeid.Undefined
	CPUTensor    = typeid.CPUTensor
	CUDATensor   = typeid.CUDATensor
	VulkanTensor = typeid.VulkanTensor
	MetalTensor  = typeid.MetalTensor
	WebGPUTensor = typeid.WebGPUTensor
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is the handle kernels and the dispatcher operate on.
type Tensor = tensor.Tensor

// RawTensor is a dense, strided tensor.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPUTensor)
//	data := raw.AsFloat32()  // Zero-copy typed view
//	clone := raw.Clone()     // Shares buffer via reference counting
type RawTensor = tensor.RawTensor

// SparseTensor is a coordinate-format (COO) sparse tensor.
type SparseTensor = tensor.SparseTensor

// NewRaw allocates a zero-filled dense tensor.
func NewRaw(shape Shape, dtype DataType, backend TypeID) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, backend)
}

// FromSlice creates a dense tensor holding a copy of data.
func FromSlice[T DType](data []T, shape Shape, backend TypeID) (*RawTensor, error) {
	return tensor.FromSlice(data, shape, backend)
}

// Scalar creates a 0-D tensor.
func Scalar[T DType](v T, backend TypeID) (*RawTensor, error) {
	return tensor.Scalar(v, backend)
}

// Data returns a zero-copy typed view of r. It panics if T does not match
// r's dtype.
func Data[T DType](r *RawTensor) []T {
	return tensor.Data[T](r)
}

// NewSparse builds a sparse tensor from index and value tensors.
func NewSparse(shape Shape, indices, values *RawTensor) (*SparseTensor, error) {
	return tensor.NewSparse(shape, indices, values)
}

// SparseFromCOO builds a sparse tensor from coordinates and values.
func SparseFromCOO[T DType](shape Shape, coords [][]int64, vals []T, backend TypeID) (*SparseTensor, error) {
	return tensor.SparseFromCOO(shape, coords, vals, backend)
}

// SparseFromDense converts a dense tensor to COO. With keep == nil only
// non-zero entries are stored.
func SparseFromDense(d *RawTensor, keep func(off int) bool) (*SparseTensor, error) {
	return tensor.SparseFromDense(d, keep)
}
