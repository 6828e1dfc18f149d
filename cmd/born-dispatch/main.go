// Package main provides the born-dispatch CLI, which lists and invokes the
// operators of the standard library from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/born-ml/dispatch/internal/backend/cpu"
	"github.com/born-ml/dispatch/internal/config"
	"github.com/born-ml/dispatch/internal/dispatch"
	"github.com/born-ml/dispatch/internal/ops"
	"github.com/born-ml/dispatch/internal/stack"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

const usage = `Usage: born-dispatch [flags] <command> [args]

Commands:
  version              Show version
  types                List backend type ids
  ops [name]           List operators and their registered kernels
  run <op> <arg>...    Invoke an operator

Arguments to run are pushed in order:
  true, false          bool
  42                   int
  1.5                  double
  [1,2,3]              int list
  f32:1,2,3            1-D dense tensor (f32, f64, i32, i64, u8, bool)
  f64[2,2]:1,0,0,1     dense tensor with shape
  sf64[2,2]:1,0,0,1    sparse COO tensor holding the non-zero entries
  f32@CUDATensor:1,2   tensor on a named backend (standard or configured)
`

func main() {
	ctx := context.Background()
	err := run(ctx, os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("born-dispatch", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	klog.InitFlags(fs)
	configPath := fs.String("config", "", "path to a YAML config file")
	// klog's verbosity is process-wide; restore it when the command ends.
	verbosity := fs.Lookup("v").Value.String()
	defer func() { _ = fs.Set("v", verbosity) }()
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if cfg.Verbosity > 0 && !isSet(fs, "v") {
		if err := fs.Set("v", strconv.Itoa(cfg.Verbosity)); err != nil {
			return errors.Wrap(err, "applying verbosity")
		}
	}
	defer klog.Flush()

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	cli := &cli{cfg: cfg, out: out, terminal: isTerminal(out)}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(out, "born-dispatch %s\n", version)
		return nil
	case "types":
		return cli.types()
	case "ops":
		return cli.ops(rest)
	case "run":
		return cli.run(ctx, rest)
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type cli struct {
	cfg      *config.Config
	out      io.Writer
	terminal bool
}

// registry builds the standard operator library over the standard and
// configured type ids.
func (c *cli) registry() (*dispatch.Registry, error) {
	types, err := c.cfg.TypeRegistry()
	if err != nil {
		return nil, err
	}
	types.Freeze()
	return ops.NewStandardRegistry(types, cpu.NewWithConfig(c.cfg.ParallelConfig()))
}

func (c *cli) types() error {
	reg, err := c.registry()
	if err != nil {
		return err
	}
	t := newTable(c.out, c.terminal, "ID", "NAME")
	for _, id := range reg.Types().All() {
		t.row(strconv.FormatInt(id.ID(), 10), id.Name())
	}
	return t.flush()
}

func (c *cli) ops(args []string) error {
	reg, err := c.registry()
	if err != nil {
		return err
	}
	schemas := reg.Operators()
	if len(args) > 0 {
		s, ok := reg.Schema(args[0])
		if !ok {
			return errors.Wrapf(dispatch.ErrUnknownOperator, "%q", args[0])
		}
		schemas = []*dispatch.Schema{s}
	}

	t := newTable(c.out, c.terminal, "OPERATOR", "KERNELS", "SIGNATURE")
	for _, s := range schemas {
		t.row(s.Name(), strconv.Itoa(len(reg.Kernels(s))), s.String())
	}
	if len(args) == 0 {
		return t.flush()
	}
	if err := t.flush(); err != nil {
		return err
	}
	keys := newTable(c.out, c.terminal, "KEY")
	for _, k := range reg.Kernels(schemas[0]) {
		keys.row(k.String())
	}
	return keys.flush()
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("run: operator name required")
	}
	log := klog.FromContext(ctx).WithValues("run", uuid.New().String())

	reg, err := c.registry()
	if err != nil {
		return err
	}
	name := args[0]
	s := stack.New()
	for i, a := range args[1:] {
		v, err := parseArg(a, reg.Types())
		if err != nil {
			return errors.WithMessagef(err, "argument %d", i+1)
		}
		s.Push(v)
	}

	log.V(1).Info("Invoking operator", "op", name, "args", s.Len())
	if err := dispatch.NewInvoker(reg).Call(name, s); err != nil {
		return err
	}
	log.V(1).Info("Operator returned", "op", name, "results", s.Len())

	// Results are pushed in declared order; print them that way.
	schema, _ := reg.Schema(name)
	results := make([]stack.Value, len(schema.Returns()))
	for i := len(results) - 1; i >= 0; i-- {
		v, err := s.Pop()
		if err != nil {
			return err
		}
		results[i] = v
	}
	if !s.Empty() {
		return errors.Errorf("run: %d unused arguments for %s", s.Len(), schema)
	}
	for _, v := range results {
		fmt.Fprintln(c.out, formatValue(v))
	}
	return nil
}
