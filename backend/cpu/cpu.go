// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/dispatch/internal/backend/cpu"
	"github.com/born-ml/dispatch/internal/parallel"
)

// Backend represents the CPU backend implementation.
//
// Backend provides pure Go dense and sparse kernels for tensors tagged
// tensor.CPUTensor.
type Backend = internalcpu.CPUBackend

// ParallelConfig controls how element loops fan out over goroutines.
type ParallelConfig = parallel.Config

// Errors returned by the backend's kernels.
var (
	ErrUnsupportedDType = internalcpu.ErrUnsupportedDType
	ErrDivisionByZero   = internalcpu.ErrDivisionByZero
	ErrZerothPower      = internalcpu.ErrZerothPower
)

// New creates a new CPU backend with default parallelism.
//
// Example:
//
//	import (
//	    "github.com/born-ml/dispatch/backend/cpu"
//	    "github.com/born-ml/dispatch/dispatch"
//	)
//
//	func main() {
//	    reg, err := dispatch.NewStandardRegistry(nil, cpu.New())
//	    ...
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with the given parallelism.
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultParallelConfig returns parallelism defaults based on CPU count.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}
