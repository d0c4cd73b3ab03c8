// Package registry collects exported UDFs and captures them as descriptors
// for publication.
//
// A Function is a normalized, already-exported callable; the Registry owns
// the set of functions the serving instance exposes. Registration supports
// an authoritative replace mode so an interactive session can re-register
// its current definitions without accumulating stale entries.
package registry

import "context"

// Param describes one parameter of a UDF signature.
type Param struct {
	// Name is the parameter name.
	Name string `json:"name"`

	// Type is the declared database type of the parameter.
	Type string `json:"type"`
}

// Signature is the structured description of a UDF's parameters and return
// type.
type Signature struct {
	// Params are the declared parameters, in order.
	Params []Param `json:"params"`

	// Returns is the declared return type.
	Returns string `json:"returns"`
}

// Descriptor describes one registered function's metadata.
// It is a snapshot: mutating a Descriptor never affects the Registry.
type Descriptor struct {
	// Name is the unique identifier for the function within a registry.
	Name string `json:"name"`

	// Signature describes the function's parameters and return type.
	Signature Signature `json:"signature"`

	// Metadata contains free-form attributes attached at export time.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Function is one exported callable.
type Function interface {
	// Name returns the unique function name.
	Name() string

	// Signature returns the structured parameter/return description.
	Signature() Signature

	// Metadata returns free-form attributes attached at export time.
	Metadata() map[string]any

	// Call invokes the function with positional arguments.
	Call(ctx context.Context, args []any) (any, error)
}

// ToDescriptor converts a Function to its Descriptor.
// This extracts the metadata without the execution logic.
func ToDescriptor(f Function) Descriptor {
	return Descriptor{
		Name:      f.Name(),
		Signature: f.Signature(),
		Metadata:  f.Metadata(),
	}
}
