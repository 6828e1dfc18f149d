package ops

import (
	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
)

var (
	arithmeticTypes = []tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64, tensor.Uint8}
	reduceTypes     = []tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64}
)

// registerConditional binds conditional(condition, lhs, rhs), which
// returns lhs when condition holds and rhs otherwise.
func (l *library) registerConditional() {
	s := l.declare(Conditional, []dispatch.Param{
		dispatch.P("condition", stack.KindBool),
		dispatch.P("lhs", stack.KindTensor),
		dispatch.P("rhs", stack.KindTensor),
	}, stack.KindTensor)

	kernel := dispatch.Func3(func(cond bool, lhs, rhs tensor.Tensor) (tensor.Tensor, error) {
		x, err := asDense(lhs)
		if err != nil {
			return nil, err
		}
		y, err := asDense(rhs)
		if err != nil {
			return nil, err
		}
		return l.cpu.Conditional(cond, x, y)
	})
	for _, dt := range tensor.DataTypes() {
		l.register(s, dispatch.Uniform(2, l.strided(dt)), kernel)
	}
}

// registerDenseOps binds element-wise arithmetic and reductions.
func (l *library) registerDenseOps() {
	binary := []dispatch.Param{
		dispatch.P("self", stack.KindTensor),
		dispatch.P("other", stack.KindTensor),
	}
	for _, op := range []struct {
		name string
		f    func(a, b *tensor.RawTensor) (*tensor.RawTensor, error)
	}{
		{Add, l.cpu.Add},
		{Sub, l.cpu.Sub},
		{Mul, l.cpu.Mul},
		{Div, l.cpu.Div},
	} {
		s := l.declare(op.name, binary, stack.KindTensor)
		kernel := denseBinary(op.f)
		for _, dt := range arithmeticTypes {
			l.register(s, dispatch.Uniform(2, l.strided(dt)), kernel)
		}
	}

	scalar := []dispatch.Param{
		dispatch.P("self", stack.KindTensor),
		dispatch.P("value", stack.KindDouble),
	}
	for _, op := range []struct {
		name string
		f    func(x *tensor.RawTensor, v float64) (*tensor.RawTensor, error)
	}{
		{AddScalar, l.cpu.AddScalar},
		{MulScalar, l.cpu.MulScalar},
	} {
		s := l.declare(op.name, scalar, stack.KindTensor)
		kernel := denseScalar(op.f)
		for _, dt := range reduceTypes {
			l.register(s, dispatch.Key{l.strided(dt)}, kernel)
		}
	}

	where := l.declare(Where, []dispatch.Param{
		dispatch.P("condition", stack.KindTensor),
		dispatch.P("self", stack.KindTensor),
		dispatch.P("other", stack.KindTensor),
	}, stack.KindTensor)
	whereKernel := dispatch.Func3(func(cond, x, y tensor.Tensor) (tensor.Tensor, error) {
		c, err := asDense(cond)
		if err != nil {
			return nil, err
		}
		a, err := asDense(x)
		if err != nil {
			return nil, err
		}
		b, err := asDense(y)
		if err != nil {
			return nil, err
		}
		return l.cpu.Where(c, a, b)
	})
	for _, dt := range tensor.DataTypes() {
		l.register(where, dispatch.Key{l.strided(tensor.Bool), l.strided(dt), l.strided(dt)}, whereKernel)
	}

	sum := l.declare(Sum, []dispatch.Param{dispatch.P("self", stack.KindTensor)}, stack.KindTensor)
	sumKernel := dispatch.Func1(func(x tensor.Tensor) (tensor.Tensor, error) {
		r, err := asDense(x)
		if err != nil {
			return nil, err
		}
		return l.cpu.Sum(r)
	})

	sumDim := l.declare(SumDim, []dispatch.Param{
		dispatch.P("self", stack.KindTensor),
		dispatch.P("dim", stack.KindInt),
		dispatch.P("keepdim", stack.KindBool),
	}, stack.KindTensor)
	sumDimKernel := dispatch.Func3(func(x tensor.Tensor, dim int64, keepDim bool) (tensor.Tensor, error) {
		r, err := asDense(x)
		if err != nil {
			return nil, err
		}
		return l.cpu.SumDim(r, dim, keepDim)
	})

	for _, dt := range reduceTypes {
		key := dispatch.Key{l.strided(dt)}
		l.register(sum, key, sumKernel)
		l.register(sumDim, key, sumDimKernel)
	}
}

func denseBinary(f func(a, b *tensor.RawTensor) (*tensor.RawTensor, error)) dispatch.Kernel {
	return dispatch.Func2(func(a, b tensor.Tensor) (tensor.Tensor, error) {
		x, err := asDense(a)
		if err != nil {
			return nil, err
		}
		y, err := asDense(b)
		if err != nil {
			return nil, err
		}
		return f(x, y)
	})
}

func denseScalar(f func(x *tensor.RawTensor, v float64) (*tensor.RawTensor, error)) dispatch.Kernel {
	return dispatch.Func2(func(a tensor.Tensor, v float64) (tensor.Tensor, error) {
		x, err := asDense(a)
		if err != nil {
			return nil, err
		}
		return f(x, v)
	})
}
