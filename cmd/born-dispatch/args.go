package main

import (
	"strconv"
	"strings"

	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
)

var dtypeCodes = map[string]tensor.DataType{
	"f32":  tensor.Float32,
	"f64":  tensor.Float64,
	"i32":  tensor.Int32,
	"i64":  tensor.Int64,
	"u8":   tensor.Uint8,
	"bool": tensor.Bool,
}

// parseArg converts one command-line word into a stack value. Tensors are
// created on CPUTensor unless they name another backend defined in types.
func parseArg(s string, types *typeid.Registry) (stack.Value, error) {
	switch {
	case s == "true" || s == "false":
		return stack.Bool(s == "true"), nil
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		xs, err := parseInts(s[1 : len(s)-1])
		if err != nil {
			return stack.Value{}, errors.WithMessagef(err, "int list %q", s)
		}
		return stack.IntList(xs), nil
	case strings.Contains(s, ":"):
		t, err := parseTensor(s, types)
		if err != nil {
			return stack.Value{}, errors.WithMessagef(err, "tensor %q", s)
		}
		return stack.TensorValue(t), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return stack.Int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return stack.Double(f), nil
	}
	return stack.Value{}, errors.Errorf("cannot parse argument %q", s)
}

func parseInts(s string) ([]int64, error) {
	fields := splitList(s)
	xs := make([]int64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		xs[i] = x
	}
	return xs, nil
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// parseTensor parses [s]<dtype>[<shape>][@<backend>]:<values>.
func parseTensor(s string, types *typeid.Registry) (tensor.Tensor, error) {
	head, body, _ := strings.Cut(s, ":")
	sparse := strings.HasPrefix(head, "s")
	head = strings.TrimPrefix(head, "s")

	backend := typeid.CPUTensor
	head, name, named := strings.Cut(head, "@")
	if named {
		var ok bool
		if backend, ok = types.LookupName(name); !ok {
			return nil, errors.Wrapf(dispatch.ErrUnknownBackend, "%q", name)
		}
	}

	code, dims, hasShape := strings.Cut(head, "[")
	dt, ok := dtypeCodes[code]
	if !ok {
		var err error
		if dt, err = tensor.ParseDataType(code); err != nil {
			return nil, err
		}
	}

	fields := splitList(body)
	shape := tensor.Shape{len(fields)}
	if hasShape {
		if !strings.HasSuffix(dims, "]") {
			return nil, errors.New("unterminated shape")
		}
		sizes, err := parseInts(strings.TrimSuffix(dims, "]"))
		if err != nil {
			return nil, errors.WithMessage(err, "shape")
		}
		shape = tensor.ShapeOf(sizes)
	}

	raw, err := denseFromFields(dt, fields, shape, backend)
	if err != nil {
		return nil, err
	}
	if sparse {
		return tensor.SparseFromDense(raw, nil)
	}
	return raw, nil
}

func denseFromFields(dt tensor.DataType, fields []string, shape tensor.Shape, backend typeid.TypeID) (*tensor.RawTensor, error) {
	switch dt {
	case tensor.Float32:
		return fromFields(fields, shape, backend, func(f string) (float32, error) {
			x, err := strconv.ParseFloat(f, 32)
			return float32(x), err
		})
	case tensor.Float64:
		return fromFields(fields, shape, backend, func(f string) (float64, error) {
			return strconv.ParseFloat(f, 64)
		})
	case tensor.Int32:
		return fromFields(fields, shape, backend, func(f string) (int32, error) {
			x, err := strconv.ParseInt(f, 10, 32)
			return int32(x), err
		})
	case tensor.Int64:
		return fromFields(fields, shape, backend, func(f string) (int64, error) {
			return strconv.ParseInt(f, 10, 64)
		})
	case tensor.Uint8:
		return fromFields(fields, shape, backend, func(f string) (uint8, error) {
			x, err := strconv.ParseUint(f, 10, 8)
			return uint8(x), err
		})
	default:
		return fromFields(fields, shape, backend, strconv.ParseBool)
	}
}

func fromFields[T tensor.DType](fields []string, shape tensor.Shape, backend typeid.TypeID, parse func(string) (T, error)) (*tensor.RawTensor, error) {
	data := make([]T, len(fields))
	for i, f := range fields {
		x, err := parse(f)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		data[i] = x
	}
	return tensor.FromSlice(data, shape, backend)
}
