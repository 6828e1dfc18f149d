// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor kernels.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - NumPy-compatible broadcasting for element-wise arithmetic
//   - Reductions with negative dimension wrapping
//   - Sparse COO kernels (float32 and float64)
//
// Kernels return errors for invalid operands instead of panicking.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dispatch/backend/cpu"
//	    "github.com/born-ml/dispatch/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, tensor.CPUTensor)
//	    sum, err := backend.Add(a, a)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each kernel allocates its
// own result and does not share mutable state.
package cpu
