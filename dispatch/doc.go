// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dispatch is the public API of the operator dispatch runtime.
//
// # Overview
//
// Operators are declared once as a Schema (name, typed parameters, result
// kinds). Kernels are registered per Schema and Key, where a Key holds one
// (backend, layout, dtype) descriptor for each tensor parameter. An Invoker
// pops an operator's arguments from a Stack, derives the Key from the
// tensor arguments, runs the exactly matching kernel and pushes the results.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dispatch/backend/cpu"
//	    "github.com/born-ml/dispatch/dispatch"
//	    "github.com/born-ml/dispatch/tensor"
//	)
//
//	func main() {
//	    reg, _ := dispatch.NewStandardRegistry(nil, cpu.New())
//	    iv := dispatch.NewInvoker(reg)
//
//	    lhs, _ := tensor.FromSlice([]int32{5}, tensor.Shape{1}, tensor.CPUTensor)
//	    rhs, _ := tensor.FromSlice([]int32{10}, tensor.Shape{1}, tensor.CPUTensor)
//
//	    s := dispatch.NewStack()
//	    s.PushBool(true)
//	    s.PushTensor(lhs)
//	    s.PushTensor(rhs)
//	    err := iv.Call("conditional", s) // s now holds lhs
//	}
//
// # Registration Phase
//
// Declare and Register are startup work and are not synchronized. Freeze
// ends registration; a frozen Registry is read-only and may be shared by
// concurrent invocations. Each invocation needs its own Stack.
//
// # Errors
//
// Errors are sentinel values checked with errors.Is. Duplicate type ids,
// operators and kernels all match ErrRegistrationConflict. Failures inside
// a kernel are returned as *KernelError and match ErrKernelFailed.
package dispatch
