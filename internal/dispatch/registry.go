// Package dispatch registers operator schemas and kernels and invokes
// them on a stack of dynamically-typed arguments.
//
// Kernels are selected by exact match on a Key: one descriptor (backend
// TypeID, layout, dtype) per tensor parameter, in declared order. There is
// no fallback or wildcard resolution; every supported combination must be
// registered explicitly.
//
// Every backend named in a key must be defined in the registry's
// typeid.Registry. Ids from another registry that share a number but not a
// name are rejected.
//
// A Registry goes through two phases. During startup, Declare and Register
// are called from a single goroutine. Freeze ends that phase; afterwards the
// registry is read-only and Lookup may be called concurrently.
package dispatch

import (
	"sort"

	"github.com/born-ml/dispatch/internal/stack"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kernel is a concrete implementation of an operator for one Key.
// It receives exactly Schema.Arity() arguments in declared order and must
// return values matching Schema.Returns().
type Kernel func(args []stack.Value) ([]stack.Value, error)

type kernelSlot struct {
	op  string
	key string
}

type kernelEntry struct {
	key    Key
	kernel Kernel
}

// Registry holds operator schemas and the kernels bound to them.
type Registry struct {
	types   *typeid.Registry
	schemas map[string]*Schema
	kernels map[kernelSlot]kernelEntry
	frozen  bool
}

// NewRegistry creates an empty registry whose keys may name the backends
// defined in types. A nil types uses typeid.NewStandardRegistry.
func NewRegistry(types *typeid.Registry) *Registry {
	if types == nil {
		types = typeid.NewStandardRegistry()
	}
	return &Registry{
		types:   types,
		schemas: make(map[string]*Schema),
		kernels: make(map[kernelSlot]kernelEntry),
	}
}

// Declare creates the schema for a new operator.
// Parameter names are metadata only; they do not take part in dispatch.
func (r *Registry) Declare(name string, params []Param, returns ...stack.Kind) (*Schema, error) {
	if r.frozen {
		return nil, errors.Wrapf(ErrFrozen, "declare %q", name)
	}
	if name == "" {
		return nil, errors.WithMessage(ErrInvalidSchema, "operator name must not be empty")
	}
	if _, ok := r.schemas[name]; ok {
		return nil, errors.Wrapf(ErrDuplicateOperator, "declare %q", name)
	}

	s := &Schema{
		name:    name,
		params:  append([]Param(nil), params...),
		returns: append([]stack.Kind(nil), returns...),
	}
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if p.Name == "" || seen[p.Name] {
			return nil, errors.WithMessagef(ErrInvalidSchema, "%s: parameter %d has empty or repeated name %q", name, i, p.Name)
		}
		if p.Kind == stack.KindInvalid {
			return nil, errors.WithMessagef(ErrInvalidSchema, "%s: parameter %q has no kind", name, p.Name)
		}
		seen[p.Name] = true
		if p.Kind == stack.KindTensor {
			s.tensors = append(s.tensors, i)
		}
	}
	for i, k := range returns {
		if k == stack.KindInvalid {
			return nil, errors.WithMessagef(ErrInvalidSchema, "%s: result %d has no kind", name, i)
		}
	}

	r.schemas[name] = s
	klog.V(4).InfoS("declared operator", "schema", s.String())
	return s, nil
}

// MustDeclare is like Declare but panics on error.
func (r *Registry) MustDeclare(name string, params []Param, returns ...stack.Kind) *Schema {
	s, err := r.Declare(name, params, returns...)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// Types returns the type registry that backends are checked against.
func (r *Registry) Types() *typeid.Registry {
	return r.types
}

// Schema returns the schema declared under name.
func (r *Registry) Schema(name string) (*Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Register binds kernel to (schema, key). A second registration for the
// same pair fails and leaves the first binding in place.
func (r *Registry) Register(schema *Schema, key Key, kernel Kernel) error {
	if r.frozen {
		return errors.Wrapf(ErrFrozen, "register %s%v", schema.Name(), key)
	}
	if r.schemas[schema.name] != schema {
		return errors.Wrapf(ErrUnknownOperator, "register %q: schema not declared in this registry", schema.name)
	}
	if kernel == nil {
		return errors.Errorf("register %s%v: nil kernel", schema.name, key)
	}
	if len(key) != len(schema.tensors) {
		return errors.Wrapf(ErrKeyArity, "register %s%v: %d descriptors for %d tensor parameters",
			schema.name, key, len(key), len(schema.tensors))
	}
	for i, tk := range key {
		if !r.types.Contains(tk.Backend) {
			return errors.Wrapf(ErrUnknownBackend, "register %s%v: descriptor %d names %v", schema.name, key, i, tk.Backend)
		}
	}

	slot := kernelSlot{op: schema.name, key: key.mapKey()}
	if _, ok := r.kernels[slot]; ok {
		return errors.Wrapf(ErrDuplicateKernel, "register %s%v", schema.name, key)
	}
	r.kernels[slot] = kernelEntry{key: append(Key(nil), key...), kernel: kernel}
	klog.V(4).InfoS("registered kernel", "op", schema.name, "key", key.String())
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(schema *Schema, key Key, kernel Kernel) {
	if err := r.Register(schema, key, kernel); err != nil {
		panic(err.Error())
	}
}

// Lookup returns the kernel registered for exactly (schema, key).
func (r *Registry) Lookup(schema *Schema, key Key) (Kernel, error) {
	e, ok := r.kernels[kernelSlot{op: schema.name, key: key.mapKey()}]
	if !ok {
		return nil, errors.Wrapf(ErrNoMatchingKernel, "%s%v", schema.name, key)
	}
	return e.kernel, nil
}

// Freeze ends the registration phase and freezes the type registry.
func (r *Registry) Freeze() {
	if !r.frozen {
		klog.V(2).InfoS("dispatch registry frozen", "operators", len(r.schemas), "kernels", len(r.kernels))
	}
	r.frozen = true
	r.types.Freeze()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Operators returns every schema sorted by name.
func (r *Registry) Operators() []*Schema {
	out := make([]*Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Kernels returns the keys registered for schema, sorted by their string form.
func (r *Registry) Kernels(schema *Schema) []Key {
	var keys []Key
	for slot, e := range r.kernels {
		if slot.op == schema.name {
			keys = append(keys, e.key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// NumKernels returns the total number of registered kernels.
func (r *Registry) NumKernels() int {
	return len(r.kernels)
}
