package cpu

import (
	"github.com/born-ml/dispatch/internal/parallel"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/pkg/errors"
)

// ErrDivisionByZero is returned by integer division with a zero divisor.
var ErrDivisionByZero = errors.New("integer division by zero")

type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
)

func (op binaryOp) String() string {
	return [...]string{"add", "sub", "mul", "div"}[op]
}

func binaryFunc[T tensor.Numeric](op binaryOp) func(x, y T) T {
	switch op {
	case opAdd:
		return func(x, y T) T { return x + y }
	case opSub:
		return func(x, y T) T { return x - y }
	case opMul:
		return func(x, y T) T { return x * y }
	default:
		return func(x, y T) T { return x / y }
	}
}

// Add performs element-wise addition with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opAdd, a, b)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opSub, a, b)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opMul, a, b)
}

// Div performs element-wise division with broadcasting.
// Integer division by zero is an error; float division follows IEEE 754.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opDiv, a, b)
}

func (cpu *CPUBackend) binary(op binaryOp, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	name := op.String()
	if err := cpu.checkBackend(name, a, b); err != nil {
		return nil, err
	}
	if err := sameDType(name, a, b); err != nil {
		return nil, err
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}
	if op == opDiv && !a.DType().IsFloat() && hasZero(b) {
		return nil, errors.WithMessage(ErrDivisionByZero, name)
	}
	out, err := cpu.alloc(name, outShape, a.DType())
	if err != nil {
		return nil, err
	}

	switch a.DType() {
	case tensor.Float32:
		binaryLoop(cpu.par, out, a, b, binaryFunc[float32](op))
	case tensor.Float64:
		binaryLoop(cpu.par, out, a, b, binaryFunc[float64](op))
	case tensor.Int32:
		binaryLoop(cpu.par, out, a, b, binaryFunc[int32](op))
	case tensor.Int64:
		binaryLoop(cpu.par, out, a, b, binaryFunc[int64](op))
	case tensor.Uint8:
		binaryLoop(cpu.par, out, a, b, binaryFunc[uint8](op))
	default:
		return nil, unsupported(name, a.DType())
	}
	return out, nil
}

func binaryLoop[T tensor.Numeric](cfg parallel.Config, out, a, b *tensor.RawTensor, f func(x, y T) T) {
	dst, xs, ys := tensor.Data[T](out), tensor.Data[T](a), tensor.Data[T](b)

	if a.Shape().Equal(b.Shape()) {
		parallel.For(len(dst), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				dst[i] = f(xs[i], ys[i])
			}
		}, cfg)
		return
	}

	outStrides := out.Shape().ComputeStrides()
	aStrides := broadcastStrides(a.Shape(), out.Shape())
	bStrides := broadcastStrides(b.Shape(), out.Shape())
	parallel.For(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = f(xs[flatIndex(i, outStrides, aStrides)], ys[flatIndex(i, outStrides, bStrides)])
		}
	}, cfg)
}

func hasZero(t *tensor.RawTensor) bool {
	switch t.DType() {
	case tensor.Int32:
		return containsZero(t.AsInt32())
	case tensor.Int64:
		return containsZero(t.AsInt64())
	case tensor.Uint8:
		return containsZero(t.AsUint8())
	}
	return false
}

func containsZero[T tensor.Numeric](xs []T) bool {
	for _, x := range xs {
		if x == 0 {
			return true
		}
	}
	return false
}

// AddScalar adds value to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, value float64) (*tensor.RawTensor, error) {
	return cpu.scalar(opAdd, x, value)
}

// MulScalar multiplies every element by value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, value float64) (*tensor.RawTensor, error) {
	return cpu.scalar(opMul, x, value)
}

func (cpu *CPUBackend) scalar(op binaryOp, x *tensor.RawTensor, value float64) (*tensor.RawTensor, error) {
	name := op.String() + "_scalar"
	if err := cpu.checkBackend(name, x); err != nil {
		return nil, err
	}
	out, err := cpu.alloc(name, x.Shape(), x.DType())
	if err != nil {
		return nil, err
	}
	switch x.DType() {
	case tensor.Float32:
		scalarLoop(cpu.par, out, x, float32(value), binaryFunc[float32](op))
	case tensor.Float64:
		scalarLoop(cpu.par, out, x, value, binaryFunc[float64](op))
	case tensor.Int32:
		scalarLoop(cpu.par, out, x, int32(value), binaryFunc[int32](op))
	case tensor.Int64:
		scalarLoop(cpu.par, out, x, int64(value), binaryFunc[int64](op))
	default:
		return nil, unsupported(name, x.DType())
	}
	return out, nil
}

func scalarLoop[T tensor.Numeric](cfg parallel.Config, out, x *tensor.RawTensor, v T, f func(x, y T) T) {
	dst, src := tensor.Data[T](out), tensor.Data[T](x)
	parallel.For(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = f(src[i], v)
		}
	}, cfg)
}

// Where selects x where cond is true and y elsewhere. All three operands
// must have the same shape.
func (cpu *CPUBackend) Where(cond, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := cpu.checkBackend("where", cond, x, y); err != nil {
		return nil, err
	}
	if cond.DType() != tensor.Bool {
		return nil, errors.Errorf("where: condition must be bool, got %s", cond.DType())
	}
	if err := sameDType("where", x, y); err != nil {
		return nil, err
	}
	if !cond.Shape().Equal(x.Shape()) || !x.Shape().Equal(y.Shape()) {
		return nil, errors.Errorf("where: shape mismatch: %v, %v, %v", cond.Shape(), x.Shape(), y.Shape())
	}
	out, err := cpu.alloc("where", x.Shape(), x.DType())
	if err != nil {
		return nil, err
	}
	// Selection is dtype-agnostic at the byte level.
	mask, size := cond.AsBool(), x.DType().Size()
	dst, xs, ys := out.Data(), x.Data(), y.Data()
	parallel.For(len(mask), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			src := ys
			if mask[i] {
				src = xs
			}
			copy(dst[i*size:(i+1)*size], src[i*size:(i+1)*size])
		}
	}, cpu.par)
	return out, nil
}

// Conditional returns lhs if cond holds and rhs otherwise, as a clone
// sharing the chosen operand's buffer.
func (cpu *CPUBackend) Conditional(cond bool, lhs, rhs *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := cpu.checkBackend("conditional", lhs, rhs); err != nil {
		return nil, err
	}
	if err := sameDType("conditional", lhs, rhs); err != nil {
		return nil, err
	}
	if cond {
		return lhs.Clone(), nil
	}
	return rhs.Clone(), nil
}
