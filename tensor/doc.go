// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor handles used with the dispatch
// runtime.
//
// # Overview
//
// Every tensor carries three runtime descriptors that decide which kernel
// runs for it:
//   - Backend: a TypeID such as CPUTensor or CUDATensor
//   - Layout: Strided (dense) or SparseCOO
//   - DataType: float32, float64, int32, int64, uint8 or bool
//
// # Basic Usage
//
//	import "github.com/born-ml/dispatch/tensor"
//
//	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPUTensor)
//	s, _ := tensor.SparseFromDense(x, nil) // only the non-zero entries
//
// # Sparse Tensors
//
// SparseTensor stores coordinates in an int64 index tensor of shape
// [Dim(), nnz] and values in a dense [nnz] tensor. Coalesce sorts the
// coordinates in row-major order and sums duplicates.
//
// # Memory Management
//
// RawTensor buffers are reference-counted. Clone shares the buffer, Copy
// duplicates it.
package tensor
