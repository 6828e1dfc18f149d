package main

import (
	"testing"

	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var standard = typeid.NewStandardRegistry()

func TestParseScalarArgs(t *testing.T) {
	tests := []struct {
		in   string
		want stack.Value
	}{
		{"true", stack.Bool(true)},
		{"false", stack.Bool(false)},
		{"42", stack.Int(42)},
		{"-1", stack.Int(-1)},
		{"1.5", stack.Double(1.5)},
		{"[1, 2,3]", stack.IntList([]int64{1, 2, 3})},
		{"[]", stack.IntList(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseArg(tt.in, standard)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind(), got.Kind())
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestParseTensorArgs(t *testing.T) {
	v, err := parseArg("f32:1,2,3", standard)
	require.NoError(t, err)
	x, ok := v.AsTensor()
	require.True(t, ok)
	r := x.(*tensor.RawTensor)
	assert.Equal(t, tensor.Shape{3}, r.Shape())
	assert.Equal(t, []float32{1, 2, 3}, r.AsFloat32())

	v, err = parseArg("i64[2,2]:1,0,0,1", standard)
	require.NoError(t, err)
	x, _ = v.AsTensor()
	assert.Equal(t, tensor.Shape{2, 2}, x.Shape())
	assert.Equal(t, tensor.Int64, x.DType())

	v, err = parseArg("float64[]:7", standard)
	require.NoError(t, err)
	x, _ = v.AsTensor()
	assert.Equal(t, 0, x.Dim())

	v, err = parseArg("sf64[2,2]:0,3,0,4", standard)
	require.NoError(t, err)
	x, _ = v.AsTensor()
	s, ok := x.(*tensor.SparseTensor)
	require.True(t, ok)
	assert.Equal(t, 2, s.NNZ())
	assert.Equal(t, tensor.SparseCOO, s.Layout())

	v, err = parseArg("bool:true,0", standard)
	require.NoError(t, err)
	x, _ = v.AsTensor()
	assert.Equal(t, []bool{true, false}, x.(*tensor.RawTensor).AsBool())
}

func TestParseTensorBackend(t *testing.T) {
	types := typeid.NewStandardRegistry()
	xla := types.MustDefine(100, "XLATensor")

	v, err := parseArg("f32[2]@XLATensor:1,2", types)
	require.NoError(t, err)
	x, _ := v.AsTensor()
	assert.True(t, x.Backend().Equal(xla))
	assert.Equal(t, tensor.Shape{2}, x.Shape())

	v, err = parseArg("sf64@CUDATensor:0,1", types)
	require.NoError(t, err)
	x, _ = v.AsTensor()
	assert.True(t, x.Backend().Equal(typeid.CUDATensor))
	assert.Equal(t, tensor.SparseCOO, x.Layout())

	_, err = parseArg("f32@TPUTensor:1", types)
	assert.True(t, errors.Is(err, dispatch.ErrUnknownBackend))
}

func TestParseArgErrors(t *testing.T) {
	for _, in := range []string{
		"maybe",
		"[1,x]",
		"c64:1,2",
		"f32[2:1,2",
		"f32[3]:1,2",
		"u8:300",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := parseArg(in, standard)
			assert.Error(t, err)
		})
	}
}
