package stack

import (
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/pkg/errors"
)

// Stack errors.
var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrInvalidValue   = errors.New("invalid value")
)

// Stack is a last-in-first-out sequence of Values.
//
// A Stack is scoped to one invocation and has no internal synchronization.
// Pushed values are owned by the stack until popped.
type Stack struct {
	values []Value
}

// New creates an empty stack.
func New() *Stack {
	return &Stack{}
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int {
	return len(s.values)
}

// Empty reports whether the stack holds no values.
func (s *Stack) Empty() bool {
	return len(s.values) == 0
}

// Push appends v. Pushing an invalid Value panics: it can only come from a
// nil tensor or a zero Value, both caller bugs.
func (s *Stack) Push(v Value) {
	if !v.IsValid() {
		panic(ErrInvalidValue.Error())
	}
	s.values = append(s.values, v)
}

// Peek returns the top value without removing it.
func (s *Stack) Peek() (Value, error) {
	if len(s.values) == 0 {
		return Value{}, ErrStackUnderflow
	}
	return s.values[len(s.values)-1], nil
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (Value, error) {
	v, err := s.Peek()
	if err != nil {
		return Value{}, err
	}
	s.drop()
	return v, nil
}

// PopKind removes the top value if it has kind k. On mismatch the value
// stays on the stack.
func (s *Stack) PopKind(k Kind) (Value, error) {
	v, err := s.Peek()
	if err != nil {
		return Value{}, errors.Wrapf(err, "pop %s", k)
	}
	if v.Kind() != k {
		return Value{}, errors.Wrapf(ErrTypeMismatch, "pop %s: top of stack is %s", k, v.Kind())
	}
	s.drop()
	return v, nil
}

func (s *Stack) drop() {
	n := len(s.values) - 1
	s.values[n] = Value{} // release the payload
	s.values = s.values[:n]
}

// Pop removes the top value and returns it as a T.
// T must be one of bool, int64, float64, []int64 or tensor.Tensor.
func Pop[T any](s *Stack) (T, error) {
	var zero T
	k := KindOf[T]()
	if k == KindInvalid {
		return zero, errors.Wrapf(ErrTypeMismatch, "pop %T: not a stack payload type", zero)
	}
	v, err := s.PopKind(k)
	if err != nil {
		return zero, err
	}
	out, _ := As[T](v)
	return out, nil
}

// PushBool pushes a boolean.
func (s *Stack) PushBool(b bool) { s.Push(Bool(b)) }

// PushInt pushes an integer.
func (s *Stack) PushInt(i int64) { s.Push(Int(i)) }

// PushDouble pushes a float.
func (s *Stack) PushDouble(f float64) { s.Push(Double(f)) }

// PushIntList pushes a copy of xs.
func (s *Stack) PushIntList(xs []int64) { s.Push(IntList(xs)) }

// PushTensor pushes a tensor handle.
func (s *Stack) PushTensor(t tensor.Tensor) { s.Push(TensorValue(t)) }

// PopBool pops a boolean.
func (s *Stack) PopBool() (bool, error) { return Pop[bool](s) }

// PopInt pops an integer.
func (s *Stack) PopInt() (int64, error) { return Pop[int64](s) }

// PopDouble pops a float.
func (s *Stack) PopDouble() (float64, error) { return Pop[float64](s) }

// PopIntList pops an integer list.
func (s *Stack) PopIntList() ([]int64, error) { return Pop[[]int64](s) }

// PopTensor pops a tensor handle.
func (s *Stack) PopTensor() (tensor.Tensor, error) { return Pop[tensor.Tensor](s) }
