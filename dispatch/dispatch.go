// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dispatch

import (
	"github.com/born-ml/dispatch/internal/backend/cpu"
	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/ops"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/typeid"
)

// Registry holds operator schemas and the kernels bound to them.
type Registry = dispatch.Registry

// Schema is an operator's name and ordered, typed signature.
type Schema = dispatch.Schema

// Param is one named, typed schema parameter.
type Param = dispatch.Param

// Kernel is a concrete implementation of an operator for one Key.
type Kernel = dispatch.Kernel

// TensorKey is the dispatch descriptor of one tensor argument.
type TensorKey = dispatch.TensorKey

// Key is the ordered tuple of descriptors, one per tensor parameter.
type Key = dispatch.Key

// Invoker calls operators by name on a stack of arguments.
type Invoker = dispatch.Invoker

// KernelError reports a failure raised inside a kernel.
type KernelError = dispatch.KernelError

// TypeRegistry allocates backend TypeIDs.
type TypeRegistry = typeid.Registry

// Errors.
var (
	ErrRegistrationConflict = dispatch.ErrRegistrationConflict
	ErrDuplicateID          = typeid.ErrDuplicateID
	ErrDuplicateOperator    = dispatch.ErrDuplicateOperator
	ErrDuplicateKernel      = dispatch.ErrDuplicateKernel
	ErrFrozen               = dispatch.ErrFrozen
	ErrUnknownOperator      = dispatch.ErrUnknownOperator
	ErrNoMatchingKernel     = dispatch.ErrNoMatchingKernel
	ErrUnknownBackend       = dispatch.ErrUnknownBackend
	ErrKeyArity             = dispatch.ErrKeyArity
	ErrInvalidSchema        = dispatch.ErrInvalidSchema
	ErrKernelFailed         = dispatch.ErrKernelFailed
	ErrBadKernelResult      = dispatch.ErrBadKernelResult
	ErrTypeMismatch         = dispatch.ErrTypeMismatch
	ErrStackUnderflow       = dispatch.ErrStackUnderflow
)

// NewRegistry creates an empty operator registry whose kernel keys may
// name the backends in types. A nil types uses the standard identifiers.
func NewRegistry(types *TypeRegistry) *Registry {
	return dispatch.NewRegistry(types)
}

// NewStandardRegistry returns a frozen registry holding the standard
// operator library bound to backend.
func NewStandardRegistry(types *TypeRegistry, backend *cpu.CPUBackend) (*Registry, error) {
	return ops.NewStandardRegistry(types, backend)
}

// RegisterStandard adds the standard operator library to reg.
func RegisterStandard(reg *Registry, backend *cpu.CPUBackend) error {
	return ops.RegisterStandard(reg, backend)
}

// NewTypeRegistry creates a type registry holding the standard identifiers.
func NewTypeRegistry() *TypeRegistry {
	return typeid.NewStandardRegistry()
}

// NewInvoker creates an invoker over reg.
func NewInvoker(reg *Registry) *Invoker {
	return dispatch.NewInvoker(reg)
}

// P is shorthand for a Param.
func P(name string, kind Kind) Param {
	return dispatch.P(name, kind)
}

// Uniform builds a Key repeating one descriptor n times.
func Uniform(n int, k TensorKey) Key {
	return dispatch.Uniform(n, k)
}

// Func1 adapts a typed one-argument function into a Kernel.
func Func1[A, R any](f func(A) (R, error)) Kernel {
	return dispatch.Func1(f)
}

// Func2 adapts a typed two-argument function into a Kernel.
func Func2[A, B, R any](f func(A, B) (R, error)) Kernel {
	return dispatch.Func2(f)
}

// Func3 adapts a typed three-argument function into a Kernel.
func Func3[A, B, C, R any](f func(A, B, C) (R, error)) Kernel {
	return dispatch.Func3(f)
}

// Func4 adapts a typed four-argument function into a Kernel.
func Func4[A, B, C, D, R any](f func(A, B, C, D) (R, error)) Kernel {
	return dispatch.Func4(f)
}

// Func5 adapts a typed five-argument function into a Kernel.
func Func5[A, B, C, D, E, R any](f func(A, B, C, D, E) (R, error)) Kernel {
	return dispatch.Func5(f)
}

// Kind tags the payload of a stack Value.
type Kind = stack.Kind

// Value kinds.
const (
	KindBool    Kind = stack.KindBool
	KindInt     Kind = stack.KindInt
	KindDouble  Kind = stack.KindDouble
	KindIntList Kind = stack.KindIntList
	KindTensor  Kind = stack.KindTensor
)

// Value is one dynamically typed stack entry.
type Value = stack.Value

// Stack is the LIFO argument frame operators consume and produce.
type Stack = stack.Stack

// NewStack creates an empty stack.
func NewStack() *Stack {
	return stack.New()
}
