package dispatch

import (
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Invoker calls operators by name on a stack of arguments.
//
// The calling convention: the caller pushes the arguments in declared
// order, so the last parameter is on top. Call pops them all, resolves
// the kernel from the tensor arguments' descriptors, runs it, and pushes
// the results in declared order, leaving a single result on top.
type Invoker struct {
	reg *Registry
}

// NewInvoker creates an invoker over reg.
func NewInvoker(reg *Registry) *Invoker {
	return &Invoker{reg: reg}
}

// Registry returns the registry the invoker resolves against.
func (iv *Invoker) Registry() *Registry {
	return iv.reg
}

// Call invokes the operator named name with arguments taken from s.
//
// Any failure before the kernel runs aborts the call without running the
// kernel. Arguments already popped are not restored. Kernel errors are
// returned as *KernelError and never retried.
func (iv *Invoker) Call(name string, s *stack.Stack) error {
	schema, ok := iv.reg.Schema(name)
	if !ok {
		return errors.Wrapf(ErrUnknownOperator, "%q", name)
	}

	args, err := popArgs(schema, s)
	if err != nil {
		return errors.WithMessagef(err, "%s", schema.name)
	}

	key, err := iv.keyFromArgs(schema, args)
	if err != nil {
		return errors.WithMessagef(err, "%s", schema.name)
	}
	kernel, err := iv.reg.Lookup(schema, key)
	if err != nil {
		return err
	}

	if klog.V(5).Enabled() {
		klog.V(5).InfoS("invoking kernel", "op", schema.name, "key", key.String())
	}
	results, err := kernel(args)
	if err != nil {
		return &KernelError{Op: schema.name, Key: key, Err: err}
	}
	if err := checkResults(schema, results); err != nil {
		return errors.WithMessagef(err, "%s%v", schema.name, key)
	}

	for _, v := range results {
		s.Push(v)
	}
	return nil
}

// popArgs pops the argument frame, last declared parameter first.
func popArgs(schema *Schema, s *stack.Stack) ([]stack.Value, error) {
	args := make([]stack.Value, len(schema.params))
	for i := len(schema.params) - 1; i >= 0; i-- {
		p := schema.params[i]
		v, err := s.PopKind(p.Kind)
		if err != nil {
			return nil, errors.WithMessagef(err, "parameter %q", p.Name)
		}
		args[i] = v
	}
	return args, nil
}

// keyFromArgs derives the dispatch key from the tensor arguments.
// Non-tensor arguments do not contribute. A nil tensor or one whose
// backend is not in the type registry fails.
func (iv *Invoker) keyFromArgs(schema *Schema, args []stack.Value) (Key, error) {
	key := make(Key, len(schema.tensors))
	for j, i := range schema.tensors {
		p := schema.params[i]
		t, _ := args[i].AsTensor()
		if tensor.IsNil(t) {
			return nil, errors.Wrapf(ErrTypeMismatch, "parameter %q: nil tensor", p.Name)
		}
		tk := KeyFor(t)
		if !iv.reg.types.Contains(tk.Backend) {
			return nil, errors.Wrapf(ErrUnknownBackend, "parameter %q: %v", p.Name, tk.Backend)
		}
		key[j] = tk
	}
	return key, nil
}

func checkResults(schema *Schema, results []stack.Value) error {
	if len(results) != len(schema.returns) {
		return errors.Wrapf(ErrBadKernelResult, "got %d results, want %d", len(results), len(schema.returns))
	}
	for i, v := range results {
		if v.Kind() != schema.returns[i] {
			return errors.Wrapf(ErrBadKernelResult, "result %d is %s, want %s", i, v.Kind(), schema.returns[i])
		}
	}
	return nil
}
