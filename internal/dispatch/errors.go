package dispatch

import (
	"fmt"

	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
)

// Dispatch errors. Registration conflicts share typeid's parent so one
// errors.Is check covers every duplicate definition at startup.
var (
	ErrRegistrationConflict = typeid.ErrRegistrationConflict
	ErrDuplicateOperator    = errors.WithMessage(ErrRegistrationConflict, "duplicate operator")
	ErrDuplicateKernel      = errors.WithMessage(ErrRegistrationConflict, "duplicate kernel")
	ErrFrozen               = typeid.ErrFrozen

	ErrUnknownOperator  = errors.New("unknown operator")
	ErrNoMatchingKernel = errors.New("no matching kernel")
	ErrUnknownBackend   = errors.New("backend not defined in type registry")
	ErrKeyArity         = errors.New("dispatch key does not match schema")
	ErrInvalidSchema    = errors.New("invalid schema")
	ErrKernelFailed     = errors.New("kernel failed")
	ErrBadKernelResult  = errors.New("kernel returned unexpected results")

	ErrTypeMismatch   = stack.ErrTypeMismatch
	ErrStackUnderflow = stack.ErrStackUnderflow
)

// KernelError reports a failure raised inside a kernel. It matches
// ErrKernelFailed and unwraps to the kernel's own error.
type KernelError struct {
	Op  string
	Key Key
	Err error
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	return fmt.Sprintf("%s%v: %v: %v", e.Op, e.Key, ErrKernelFailed, e.Err)
}

// Unwrap returns the kernel's error.
func (e *KernelError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrKernelFailed.
func (e *KernelError) Is(target error) bool {
	return target == ErrKernelFailed
}
