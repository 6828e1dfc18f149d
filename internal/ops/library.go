package ops

import (
	"github.com/born-ml/dispatch/internal/backend/cpu"
	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// Names of the standard operators.
const (
	Conditional = "conditional"
	Add         = "add"
	Sub         = "sub"
	Mul         = "mul"
	Div         = "div"
	AddScalar   = "add_scalar"
	MulScalar   = "mul_scalar"
	Where       = "where"
	Sum         = "sum"
	SumDim      = "sum_dim"

	ZerosLike = "zeros_like"
	ToDense   = "to_dense"
	SpAddMM   = "spaddmm"
	SSpAddMM  = "sspaddmm"
	HSpMM     = "hspmm"
	SpCAdd    = "spcadd"
	SpAddCMul = "spaddcmul"
	SpAddCDiv = "spaddcdiv"
	SparseMul = "sparse_mul"
	SparseDiv = "sparse_div"
	Pow       = "pow"
	CAdd      = "cadd"
	CSub      = "csub"
	CMul      = "cmul"
	NormAll   = "normall"
)

// library accumulates declaration and registration errors so a broken
// startup reports every conflict at once.
type library struct {
	reg *dispatch.Registry
	cpu *cpu.CPUBackend
	err error
}

// RegisterStandard declares the standard operators in reg and registers
// the backend's kernels for them. All conflicts are returned together;
// operators that failed to declare get no kernels.
func RegisterStandard(reg *dispatch.Registry, backend *cpu.CPUBackend) error {
	l := &library{reg: reg, cpu: backend}

	l.registerConditional()
	l.registerDenseOps()
	l.registerSparseOps()

	if l.err != nil {
		return l.err
	}
	klog.V(2).InfoS("Registered standard operators", "operators", len(reg.Operators()), "kernels", reg.NumKernels())
	return nil
}

// NewStandardRegistry returns a frozen registry holding the standard library.
// Kernel keys are checked against types; nil means the standard type ids.
func NewStandardRegistry(types *typeid.Registry, backend *cpu.CPUBackend) (*dispatch.Registry, error) {
	reg := dispatch.NewRegistry(types)
	if err := RegisterStandard(reg, backend); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}

func (l *library) declare(name string, params []dispatch.Param, returns ...stack.Kind) *dispatch.Schema {
	s, err := l.reg.Declare(name, params, returns...)
	if err != nil {
		l.err = multierr.Append(l.err, err)
		return nil
	}
	return s
}

func (l *library) register(s *dispatch.Schema, key dispatch.Key, kernel dispatch.Kernel) {
	if s == nil {
		return
	}
	l.err = multierr.Append(l.err, l.reg.Register(s, key, kernel))
}

func (l *library) strided(dt tensor.DataType) dispatch.TensorKey {
	return dispatch.TensorKey{Backend: l.cpu.TypeID(), Layout: tensor.Strided, DType: dt}
}

func (l *library) sparse(dt tensor.DataType) dispatch.TensorKey {
	return dispatch.TensorKey{Backend: l.cpu.TypeID(), Layout: tensor.SparseCOO, DType: dt}
}

func asDense(t tensor.Tensor) (*tensor.RawTensor, error) {
	r, ok := t.(*tensor.RawTensor)
	if !ok {
		return nil, errors.Errorf("expected a strided tensor, got %s", t.Layout())
	}
	return r, nil
}

func asSparse(t tensor.Tensor) (*tensor.SparseTensor, error) {
	s, ok := t.(*tensor.SparseTensor)
	if !ok {
		return nil, errors.Errorf("expected a sparse tensor, got %s", t.Layout())
	}
	return s, nil
}
