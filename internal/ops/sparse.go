package ops

import (
	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
)

var sparseTypes = []tensor.DataType{tensor.Float32, tensor.Float64}

type sparseScalarFunc func(s *tensor.SparseTensor, v float64) (*tensor.SparseTensor, error)

type sparseCombineFunc func(t *tensor.SparseTensor, v float64, src *tensor.SparseTensor) (*tensor.SparseTensor, error)

type denseAddCFunc func(t *tensor.RawTensor, v float64, a, b *tensor.SparseTensor) (*tensor.RawTensor, error)

// registerSparseOps binds the COO kernels. In keys, S marks a sparse
// argument and D a strided one.
func (l *library) registerSparseOps() {
	self := dispatch.P("self", stack.KindTensor)
	value := dispatch.P("value", stack.KindDouble)

	zerosLike := l.declare(ZerosLike, []dispatch.Param{self}, stack.KindTensor)
	toDense := l.declare(ToDense, []dispatch.Param{self}, stack.KindTensor)

	addmm := []dispatch.Param{
		self,
		dispatch.P("beta", stack.KindDouble),
		dispatch.P("alpha", stack.KindDouble),
		dispatch.P("mat1", stack.KindTensor),
		dispatch.P("mat2", stack.KindTensor),
	}
	// spaddmm(D, beta, alpha, S, D) -> D
	spaddmm := l.declare(SpAddMM, addmm, stack.KindTensor)
	// sspaddmm(S, beta, alpha, S, D) -> S
	sspaddmm := l.declare(SSpAddMM, addmm, stack.KindTensor)
	// hspmm(alpha, S, D) -> S
	hspmm := l.declare(HSpMM, []dispatch.Param{
		dispatch.P("alpha", stack.KindDouble),
		dispatch.P("mat1", stack.KindTensor),
		dispatch.P("mat2", stack.KindTensor),
	}, stack.KindTensor)
	// spcadd(D, value, S) -> D
	spcadd := l.declare(SpCAdd, []dispatch.Param{self, value, dispatch.P("other", stack.KindTensor)}, stack.KindTensor)

	addc := []dispatch.Param{
		self,
		value,
		dispatch.P("tensor1", stack.KindTensor),
		dispatch.P("tensor2", stack.KindTensor),
	}
	scalar := []dispatch.Param{self, value}
	combine := []dispatch.Param{self, value, dispatch.P("other", stack.KindTensor)}

	cmul := l.declare(CMul, []dispatch.Param{self, dispatch.P("other", stack.KindTensor)}, stack.KindTensor)
	normAll := l.declare(NormAll, []dispatch.Param{self, dispatch.P("p", stack.KindDouble)}, stack.KindDouble)

	zerosLikeKernel := sparseUnary(l.cpu.ZerosLike)
	toDenseKernel := dispatch.Func1(func(x tensor.Tensor) (tensor.Tensor, error) {
		s, err := asSparse(x)
		if err != nil {
			return nil, err
		}
		return s.ToDense(), nil
	})
	spaddmmKernel := dispatch.Func5(func(t tensor.Tensor, beta, alpha float64, m1, m2 tensor.Tensor) (tensor.Tensor, error) {
		d, s, m, err := denseSparseDense(t, m1, m2)
		if err != nil {
			return nil, err
		}
		return l.cpu.SpAddMM(d, beta, alpha, s, m)
	})
	sspaddmmKernel := dispatch.Func5(func(t tensor.Tensor, beta, alpha float64, m1, m2 tensor.Tensor) (tensor.Tensor, error) {
		acc, err := asSparse(t)
		if err != nil {
			return nil, err
		}
		s, err := asSparse(m1)
		if err != nil {
			return nil, err
		}
		m, err := asDense(m2)
		if err != nil {
			return nil, err
		}
		return l.cpu.SSpAddMM(acc, beta, alpha, s, m)
	})
	hspmmKernel := dispatch.Func3(func(alpha float64, m1, m2 tensor.Tensor) (tensor.Tensor, error) {
		s, err := asSparse(m1)
		if err != nil {
			return nil, err
		}
		m, err := asDense(m2)
		if err != nil {
			return nil, err
		}
		return l.cpu.HSpMM(alpha, s, m)
	})
	spcaddKernel := dispatch.Func3(func(t tensor.Tensor, v float64, other tensor.Tensor) (tensor.Tensor, error) {
		d, err := asDense(t)
		if err != nil {
			return nil, err
		}
		s, err := asSparse(other)
		if err != nil {
			return nil, err
		}
		return l.cpu.SpCAdd(d, v, s)
	})
	cmulKernel := dispatch.Func2(func(a, b tensor.Tensor) (tensor.Tensor, error) {
		x, err := asSparse(a)
		if err != nil {
			return nil, err
		}
		y, err := asSparse(b)
		if err != nil {
			return nil, err
		}
		return l.cpu.CMul(x, y)
	})
	normAllKernel := dispatch.Func2(func(x tensor.Tensor, p float64) (float64, error) {
		s, err := asSparse(x)
		if err != nil {
			return 0, err
		}
		return l.cpu.NormAll(s, p)
	})

	var addcOps []*dispatch.Schema
	var addcKernels []dispatch.Kernel
	for _, op := range []struct {
		name string
		f    denseAddCFunc
	}{
		{SpAddCMul, l.cpu.SpAddCMul},
		{SpAddCDiv, l.cpu.SpAddCDiv},
	} {
		addcOps = append(addcOps, l.declare(op.name, addc, stack.KindTensor))
		addcKernels = append(addcKernels, denseAddC(op.f))
	}

	var scalarOps []*dispatch.Schema
	var scalarKernels []dispatch.Kernel
	for _, op := range []struct {
		name string
		f    sparseScalarFunc
	}{
		{SparseMul, l.cpu.SparseMul},
		{SparseDiv, l.cpu.SparseDiv},
		{Pow, l.cpu.Pow},
	} {
		scalarOps = append(scalarOps, l.declare(op.name, scalar, stack.KindTensor))
		scalarKernels = append(scalarKernels, sparseScalar(op.f))
	}

	var combineOps []*dispatch.Schema
	var combineKernels []dispatch.Kernel
	for _, op := range []struct {
		name string
		f    sparseCombineFunc
	}{
		{CAdd, l.cpu.CAdd},
		{CSub, l.cpu.CSub},
	} {
		combineOps = append(combineOps, l.declare(op.name, combine, stack.KindTensor))
		combineKernels = append(combineKernels, sparseCombine(op.f))
	}

	for _, dt := range sparseTypes {
		s, d := l.sparse(dt), l.strided(dt)

		l.register(zerosLike, dispatch.Key{s}, zerosLikeKernel)
		l.register(toDense, dispatch.Key{s}, toDenseKernel)
		l.register(spaddmm, dispatch.Key{d, s, d}, spaddmmKernel)
		l.register(sspaddmm, dispatch.Key{s, s, d}, sspaddmmKernel)
		l.register(hspmm, dispatch.Key{s, d}, hspmmKernel)
		l.register(spcadd, dispatch.Key{d, s}, spcaddKernel)
		l.register(cmul, dispatch.Key{s, s}, cmulKernel)
		l.register(normAll, dispatch.Key{s}, normAllKernel)
		for i, op := range addcOps {
			l.register(op, dispatch.Key{d, s, s}, addcKernels[i])
		}
		for i, op := range scalarOps {
			l.register(op, dispatch.Key{s}, scalarKernels[i])
		}
		for i, op := range combineOps {
			l.register(op, dispatch.Key{s, s}, combineKernels[i])
		}
	}
}

func denseSparseDense(a, b, c tensor.Tensor) (*tensor.RawTensor, *tensor.SparseTensor, *tensor.RawTensor, error) {
	x, err := asDense(a)
	if err != nil {
		return nil, nil, nil, err
	}
	y, err := asSparse(b)
	if err != nil {
		return nil, nil, nil, err
	}
	z, err := asDense(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return x, y, z, nil
}

func sparseUnary(f func(s *tensor.SparseTensor) (*tensor.SparseTensor, error)) dispatch.Kernel {
	return dispatch.Func1(func(x tensor.Tensor) (tensor.Tensor, error) {
		s, err := asSparse(x)
		if err != nil {
			return nil, err
		}
		return f(s)
	})
}

func sparseScalar(f sparseScalarFunc) dispatch.Kernel {
	return dispatch.Func2(func(x tensor.Tensor, v float64) (tensor.Tensor, error) {
		s, err := asSparse(x)
		if err != nil {
			return nil, err
		}
		return f(s, v)
	})
}

func sparseCombine(f sparseCombineFunc) dispatch.Kernel {
	return dispatch.Func3(func(t tensor.Tensor, v float64, src tensor.Tensor) (tensor.Tensor, error) {
		a, err := asSparse(t)
		if err != nil {
			return nil, err
		}
		b, err := asSparse(src)
		if err != nil {
			return nil, err
		}
		return f(a, v, b)
	})
}

func denseAddC(f denseAddCFunc) dispatch.Kernel {
	return dispatch.Func4(func(t tensor.Tensor, v float64, a, b tensor.Tensor) (tensor.Tensor, error) {
		d, err := asDense(t)
		if err != nil {
			return nil, err
		}
		x, err := asSparse(a)
		if err != nil {
			return nil, err
		}
		y, err := asSparse(b)
		if err != nil {
			return nil, err
		}
		return f(d, v, x, y)
	})
}
