package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/tensor"
)

// table prints aligned columns with a header on a terminal, and bare
// tab-separated rows otherwise.
type table struct {
	w        io.Writer
	tw       *tabwriter.Writer
	terminal bool
}

func newTable(w io.Writer, terminal bool, header ...string) *table {
	t := &table{w: w, terminal: terminal}
	if terminal {
		t.tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		t.row(header...)
	}
	return t
}

func (t *table) row(cols ...string) {
	line := strings.Join(cols, "\t") + "\n"
	if t.tw != nil {
		fmt.Fprint(t.tw, line)
		return
	}
	fmt.Fprint(t.w, line)
}

func (t *table) flush() error {
	if t.tw == nil {
		return nil
	}
	return t.tw.Flush()
}

func formatValue(v stack.Value) string {
	x, ok := v.AsTensor()
	if !ok {
		return v.String()
	}
	switch t := x.(type) {
	case *tensor.RawTensor:
		return fmt.Sprintf("%s %s", t, elements(t))
	case *tensor.SparseTensor:
		return fmt.Sprintf("%s %s", t, elements(t.ToDense()))
	default:
		return fmt.Sprint(x)
	}
}

func elements(r *tensor.RawTensor) string {
	switch r.DType() {
	case tensor.Float32:
		return fmt.Sprint(r.AsFloat32())
	case tensor.Float64:
		return fmt.Sprint(r.AsFloat64())
	case tensor.Int32:
		return fmt.Sprint(r.AsInt32())
	case tensor.Int64:
		return fmt.Sprint(r.AsInt64())
	case tensor.Uint8:
		return fmt.Sprint(r.AsUint8())
	case tensor.Bool:
		return fmt.Sprint(r.AsBool())
	default:
		return "?"
	}
}
