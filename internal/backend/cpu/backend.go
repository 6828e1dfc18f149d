// Package cpu implements dense and sparse tensor kernels in pure Go.
//
// Every method validates its inputs and returns an error instead of
// panicking.
package cpu

import (
	"github.com/born-ml/dispatch/internal/parallel"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
)

// ErrUnsupportedDType is returned for element types a kernel does not handle.
var ErrUnsupportedDType = errors.New("unsupported dtype")

// CPUBackend runs kernels on the host.
type CPUBackend struct {
	id  typeid.TypeID
	par parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with the given parallelism.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{id: typeid.CPUTensor, par: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// TypeID returns the identifier the backend's tensors carry.
func (cpu *CPUBackend) TypeID() typeid.TypeID {
	return cpu.id
}

// Parallel returns the parallelism settings.
func (cpu *CPUBackend) Parallel() parallel.Config {
	return cpu.par
}

func (cpu *CPUBackend) alloc(op string, shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(shape, dtype, cpu.id)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: allocate result", op)
	}
	return out, nil
}

func unsupported(op string, dt tensor.DataType) error {
	return errors.Wrapf(ErrUnsupportedDType, "%s: %s", op, dt)
}

func (cpu *CPUBackend) checkBackend(op string, ts ...tensor.Tensor) error {
	for i, t := range ts {
		if !t.Backend().Equal(cpu.id) {
			return errors.Errorf("%s: operand %d is on %s, not %s", op, i, t.Backend(), cpu.id)
		}
	}
	return nil
}

func sameDType(op string, ts ...tensor.Tensor) error {
	for i := 1; i < len(ts); i++ {
		if ts[i].DType() != ts[0].DType() {
			return errors.Errorf("%s: dtype mismatch: %s vs %s", op, ts[0].DType(), ts[i].DType())
		}
	}
	return nil
}
