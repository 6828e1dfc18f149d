// Package typeid provides compact identifiers for tensor backends.
//
// A TypeID carries everything dispatch needs to branch on a tensor's
// backend. IDs are flat: equality is by numeric identifier only and there
// is no subtyping relation between them.
package typeid

import "fmt"

// TypeID identifies a tensor backend for dispatch purposes.
//
// The zero value is not a defined identifier; registries never return it.
type TypeID struct {
	id   int64
	name string
}

// Standard identifiers.
var (
	Undefined    = TypeID{id: 0, name: "Undefined"}
	CPUTensor    = TypeID{id: 1, name: "CPUTensor"}
	CUDATensor   = TypeID{id: 2, name: "CUDATensor"}
	VulkanTensor = TypeID{id: 3, name: "VulkanTensor"}
	MetalTensor  = TypeID{id: 4, name: "MetalTensor"}
	WebGPUTensor = TypeID{id: 5, name: "WebGPUTensor"}
)

// Standard returns the standard identifiers in id order.
func Standard() []TypeID {
	return []TypeID{Undefined, CPUTensor, CUDATensor, VulkanTensor, MetalTensor, WebGPUTensor}
}

// ID returns the numeric identifier.
func (t TypeID) ID() int64 {
	return t.id
}

// Name returns the human-readable name.
func (t TypeID) Name() string {
	return t.name
}

// IsDefined reports whether t was created by a registry or is a standard id.
func (t TypeID) IsDefined() bool {
	return t.name != ""
}

// Equal compares numeric identifiers only.
func (t TypeID) Equal(other TypeID) bool {
	return t.id == other.id
}

// String returns the name, or a placeholder for the zero value.
func (t TypeID) String() string {
	if t.name == "" {
		return fmt.Sprintf("TypeID(%d)", t.id)
	}
	return t.name
}

// Equal reports whether a and b have the same numeric identifier.
func Equal(a, b TypeID) bool {
	return a.Equal(b)
}
