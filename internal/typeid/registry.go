package typeid

import (
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Registration errors.
var (
	// ErrRegistrationConflict is the parent of every duplicate-registration error.
	ErrRegistrationConflict = errors.New("registration conflict")
	ErrDuplicateID          = errors.WithMessage(ErrRegistrationConflict, "duplicate type id")
	ErrFrozen               = errors.New("registry is frozen")
	ErrInvalidName          = errors.New("type id name must not be empty")
)

// Registry allocates and holds TypeIDs.
//
// Define is startup work and is not synchronized. After Freeze the registry
// is read-only and may be shared by concurrent readers.
type Registry struct {
	byID   map[int64]TypeID
	byName map[string]TypeID
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[int64]TypeID),
		byName: make(map[string]TypeID),
	}
}

// NewStandardRegistry creates a registry holding the standard identifiers.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	for _, t := range Standard() {
		r.MustDefine(t.id, t.name)
	}
	return r
}

// Define creates a new TypeID. It fails if id is already defined.
func (r *Registry) Define(id int64, name string) (TypeID, error) {
	if r.frozen {
		return TypeID{}, errors.Wrapf(ErrFrozen, "define %s(%d)", name, id)
	}
	if name == "" {
		return TypeID{}, errors.Wrapf(ErrInvalidName, "define id %d", id)
	}
	if prev, ok := r.byID[id]; ok {
		return TypeID{}, errors.Wrapf(ErrDuplicateID, "define %s(%d): id already held by %s", name, id, prev.name)
	}
	t := TypeID{id: id, name: name}
	r.byID[id] = t
	if _, ok := r.byName[name]; !ok {
		r.byName[name] = t
	}
	klog.V(4).InfoS("defined type id", "id", id, "name", name)
	return t, nil
}

// MustDefine is like Define but panics on error.
// Use it in startup code where a conflict is fatal.
func (r *Registry) MustDefine(id int64, name string) TypeID {
	t, err := r.Define(id, name)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// Lookup returns the TypeID with the given numeric identifier.
func (r *Registry) Lookup(id int64) (TypeID, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// LookupName returns the first TypeID defined with the given name.
func (r *Registry) LookupName(name string) (TypeID, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Contains reports whether t was defined in this registry.
func (r *Registry) Contains(t TypeID) bool {
	got, ok := r.byID[t.id]
	return ok && got.name == t.name
}

// All returns every defined TypeID sorted by numeric identifier.
func (r *Registry) All() []TypeID {
	all := make([]TypeID, 0, len(r.byID))
	for _, t := range r.byID {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })
	return all
}

// Len returns the number of defined identifiers.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Freeze ends the definition phase.
func (r *Registry) Freeze() {
	if !r.frozen {
		klog.V(2).InfoS("type registry frozen", "types", len(r.byID))
	}
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen
}
