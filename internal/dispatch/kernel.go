package dispatch

import (
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/pkg/errors"
)

// The FuncN adapters turn typed Go functions into Kernels, so kernel
// authors write func(bool, tensor.Tensor, tensor.Tensor) (tensor.Tensor, error)
// instead of unpacking stack values by hand. Parameter types must be stack
// payload types (bool, int64, float64, []int64, tensor.Tensor).

func arg[T any](args []stack.Value, i int) (T, error) {
	v, ok := stack.As[T](args[i])
	if !ok {
		var zero T
		return zero, errors.Wrapf(ErrTypeMismatch, "argument %d: want %s, got %s", i, stack.KindOf[T](), args[i].Kind())
	}
	return v, nil
}

func checkArity(args []stack.Value, n int) error {
	if len(args) != n {
		return errors.Errorf("kernel takes %d arguments, got %d", n, len(args))
	}
	return nil
}

// Func1 adapts a one-argument function.
func Func1[A, R any](f func(A) (R, error)) Kernel {
	return func(args []stack.Value) ([]stack.Value, error) {
		if err := checkArity(args, 1); err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		r, err := f(a)
		if err != nil {
			return nil, err
		}
		return []stack.Value{stack.Of(r)}, nil
	}
}

// Func2 adapts a two-argument function.
func Func2[A, B, R any](f func(A, B) (R, error)) Kernel {
	return func(args []stack.Value) ([]stack.Value, error) {
		if err := checkArity(args, 2); err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		r, err := f(a, b)
		if err != nil {
			return nil, err
		}
		return []stack.Value{stack.Of(r)}, nil
	}
}

// Func3 adapts a three-argument function.
func Func3[A, B, C, R any](f func(A, B, C) (R, error)) Kernel {
	return func(args []stack.Value) ([]stack.Value, error) {
		if err := checkArity(args, 3); err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		c, err := arg[C](args, 2)
		if err != nil {
			return nil, err
		}
		r, err := f(a, b, c)
		if err != nil {
			return nil, err
		}
		return []stack.Value{stack.Of(r)}, nil
	}
}

// Func4 adapts a four-argument function.
func Func4[A, B, C, D, R any](f func(A, B, C, D) (R, error)) Kernel {
	return func(args []stack.Value) ([]stack.Value, error) {
		if err := checkArity(args, 4); err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		c, err := arg[C](args, 2)
		if err != nil {
			return nil, err
		}
		d, err := arg[D](args, 3)
		if err != nil {
			return nil, err
		}
		r, err := f(a, b, c, d)
		if err != nil {
			return nil, err
		}
		return []stack.Value{stack.Of(r)}, nil
	}
}

// Func5 adapts a five-argument function.
func Func5[A, B, C, D, E, R any](f func(A, B, C, D, E) (R, error)) Kernel {
	return func(args []stack.Value) ([]stack.Value, error) {
		if err := checkArity(args, 5); err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		c, err := arg[C](args, 2)
		if err != nil {
			return nil, err
		}
		d, err := arg[D](args, 3)
		if err != nil {
			return nil, err
		}
		e, err := arg[E](args, 4)
		if err != nil {
			return nil, err
		}
		r, err := f(a, b, c, d, e)
		if err != nil {
			return nil, err
		}
		return []stack.Value{stack.Of(r)}, nil
	}
}
