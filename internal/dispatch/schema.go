package dispatch

import (
	"strings"

	"github.com/born-ml/dispatch/internal/stack"
)

// Param is one formal parameter of an operator.
type Param struct {
	Name string
	Kind stack.Kind
}

// P is shorthand for building a Param.
func P(name string, kind stack.Kind) Param {
	return Param{Name: name, Kind: kind}
}

// Schema describes an operator independently of any kernel.
// Schemas are created by Registry.Declare and never change afterwards.
type Schema struct {
	name    string
	params  []Param
	returns []stack.Kind
	tensors []int // positions of tensor parameters, in declared order
}

// Name returns the operator name.
func (s *Schema) Name() string {
	return s.name
}

// Params returns a copy of the declared parameters.
func (s *Schema) Params() []Param {
	return append([]Param(nil), s.params...)
}

// Returns returns a copy of the declared result kinds.
func (s *Schema) Returns() []stack.Kind {
	return append([]stack.Kind(nil), s.returns...)
}

// Arity returns the number of parameters.
func (s *Schema) Arity() int {
	return len(s.params)
}

// TensorParams returns how many parameters contribute to the dispatch key.
func (s *Schema) TensorParams() int {
	return len(s.tensors)
}

// ParamNames returns the parameter names in declared order.
func (s *Schema) ParamNames() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// String renders the schema, e.g. "conditional(condition: bool, lhs: Tensor, rhs: Tensor) -> Tensor".
func (s *Schema) String() string {
	var sb strings.Builder
	sb.WriteString(s.name)
	sb.WriteByte('(')
	for i, p := range s.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		sb.WriteString(": ")
		sb.WriteString(p.Kind.String())
	}
	sb.WriteString(") -> ")
	switch len(s.returns) {
	case 0:
		sb.WriteString("()")
	case 1:
		sb.WriteString(s.returns[0].String())
	default:
		sb.WriteByte('(')
		for i, k := range s.returns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k.String())
		}
		sb.WriteByte(')')
	}
	return sb.String()
}
