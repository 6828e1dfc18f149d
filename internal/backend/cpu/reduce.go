package cpu

import (
	"github.com/born-ml/dispatch/internal/parallel"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/wrapdim"
	"github.com/pkg/errors"
)

// SumDim sums elements along dim, which may be negative (-1 is the last
// dimension). With keepDim the reduced dimension stays with size 1.
//
//	x: [2, 3, 4]
//	SumDim(x, -1, true)  -> [2, 3, 1]
//	SumDim(x, -1, false) -> [2, 3]
//
// A 0-D tensor accepts dim 0 or -1 and is returned unchanged.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int64, keepDim bool) (*tensor.RawTensor, error) {
	if err := cpu.checkBackend("sum_dim", x); err != nil {
		return nil, err
	}
	d, err := wrapdim.ForTensor(dim, x)
	if err != nil {
		return nil, errors.WithMessage(err, "sum_dim")
	}
	if x.Dim() == 0 {
		return x.Copy(), nil
	}

	shape := x.Shape()
	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[d] = 1
	} else {
		outShape = make(tensor.Shape, 0, len(shape)-1)
		outShape = append(outShape, shape[:d]...)
		outShape = append(outShape, shape[d+1:]...)
	}
	out, err := cpu.alloc("sum_dim", outShape, x.DType())
	if err != nil {
		return nil, err
	}

	switch x.DType() {
	case tensor.Float32:
		sumDim[float32](cpu.par, out, x, int(d))
	case tensor.Float64:
		sumDim[float64](cpu.par, out, x, int(d))
	case tensor.Int32:
		sumDim[int32](cpu.par, out, x, int(d))
	case tensor.Int64:
		sumDim[int64](cpu.par, out, x, int(d))
	default:
		return nil, unsupported("sum_dim", x.DType())
	}
	return out, nil
}

func sumDim[T tensor.Numeric](cfg parallel.Config, out, x *tensor.RawTensor, d int) {
	shape := x.Shape()
	outer := tensor.Shape(shape[:d]).NumElements()
	inner := tensor.Shape(shape[d+1:]).NumElements()
	size := shape[d]
	src, dst := tensor.Data[T](x), tensor.Data[T](out)

	parallel.For(outer*inner, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			o, i := j/inner, j%inner
			var sum T
			for k := 0; k < size; k++ {
				sum += src[(o*size+k)*inner+i]
			}
			dst[j] = sum
		}
	}, cfg)
}

// Sum adds every element into a 0-D tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := cpu.checkBackend("sum", x); err != nil {
		return nil, err
	}
	out, err := cpu.alloc("sum", tensor.Shape{}, x.DType())
	if err != nil {
		return nil, err
	}
	switch x.DType() {
	case tensor.Float32:
		out.AsFloat32()[0] = total(x.AsFloat32())
	case tensor.Float64:
		out.AsFloat64()[0] = total(x.AsFloat64())
	case tensor.Int32:
		out.AsInt32()[0] = total(x.AsInt32())
	case tensor.Int64:
		out.AsInt64()[0] = total(x.AsInt64())
	default:
		return nil, unsupported("sum", x.DType())
	}
	return out, nil
}

func total[T tensor.Numeric](xs []T) T {
	var sum T
	for _, x := range xs {
		sum += x
	}
	return sum
}
