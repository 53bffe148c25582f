package rsa

import (
	"fmt"
	"sort"
)

// Params is passed to constructors. Mode selects an implementation variant.
type Params struct {
	Mode int
}

// Constructor creates an uninitialized implementation.
type Constructor func(Params) (Acquisition, error)

// Implementation is a registry entry.
type Implementation struct {
	Name        string
	Description string
	Params      Params
	New         Constructor
}

// Label returns a user-friendly description for the implementation.
func (i Implementation) Label() string {
	if i.Description != "" {
		return fmt.Sprintf("%s (%s)", i.Name, i.Description)
	}
	return i.Name
}

// Registry maps implementation names to constructors. It is owned by the
// process entry point and handed to whoever creates implementations.
type Registry struct {
	impls []Implementation
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an implementation. Names must be unique.
func (r *Registry) Register(name, description string, params Params, ctor Constructor) error {
	if name == "" || ctor == nil {
		return fmt.Errorf("rsa: register: name and constructor are required")
	}
	if _, ok := r.lookup(name); ok {
		return fmt.Errorf("rsa: register: %q already registered", name)
	}
	r.impls = append(r.impls, Implementation{Name: name, Description: description, Params: params, New: ctor})
	return nil
}

// Create builds the named implementation.
func (r *Registry) Create(name string) (Acquisition, error) {
	impl, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImplementation, name)
	}
	acq, err := impl.New(impl.Params)
	if err != nil {
		return nil, fmt.Errorf("rsa: create %q: %w", name, err)
	}
	return acq, nil
}

// At returns the implementation registered at position i.
func (r *Registry) At(i int) (Implementation, bool) {
	if i < 0 || i >= len(r.impls) {
		return Implementation{}, false
	}
	return r.impls[i], true
}

func (r *Registry) Len() int { return len(r.impls) }

// Implementations returns the entries in registration order.
func (r *Registry) Implementations() []Implementation {
	out := make([]Implementation, len(r.impls))
	copy(out, r.impls)
	return out
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.impls))
	for _, impl := range r.impls {
		names = append(names, impl.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Implementation, bool) {
	for _, impl := range r.impls {
		if impl.Name == name {
			return impl, true
		}
	}
	return Implementation{}, false
}
