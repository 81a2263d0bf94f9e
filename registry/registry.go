// Package registry implements an in-process management registry: objects
// expose named, described attributes and invocable operations, register
// under a structured object name, and are served for external inspection
// over HTTP and Prometheus.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/softee/managed/objectname"
)

// Impact classifies an operation's side effect for external tooling.
type Impact string

const (
	ImpactInfo   Impact = "info"
	ImpactAction Impact = "action"
)

// Attribute is a named, described, readable property of a managed object.
type Attribute struct {
	Name        string
	Description string
	Value       func() any
}

// Eval reads the attribute's current value. A panicking value func degrades
// to an error string so inspection never crashes the reader.
func (a Attribute) Eval() (value any) {
	defer func() {
		if p := recover(); p != nil {
			value = fmt.Sprintf("attribute error: %v", p)
		}
	}()
	return a.Value()
}

// Operation is a named, described, externally invocable action.
type Operation struct {
	Name        string
	Description string
	Impact      Impact
	Invoke      func() error
}

// Managed is the contract an object implements to become manageable.
type Managed interface {
	ManagedAttributes() []Attribute
	ManagedOperations() []Operation
}

var (
	ErrAlreadyRegistered = errors.New("object name already registered")
	ErrNotRegistered     = errors.New("object name not registered")
	ErrRegistryClosed    = errors.New("registry is closed")
)

// Registration records one registered object.
type Registration struct {
	ID           string
	Name         objectname.ObjectName
	Object       Managed
	RegisteredAt time.Time
}

// Registry tracks managed objects by object name. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	closed  bool
	objects map[string]*Registration
}

func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[string]*Registration),
	}
}

// Register adds an object under the given name and returns the registration
// ID. Fails if the name is malformed or already taken, or if the registry
// has been closed.
func (r *Registry) Register(name objectname.ObjectName, obj Managed) (string, error) {
	if err := name.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrRegistryClosed
	}

	key := name.String()
	if _, taken := r.objects[key]; taken {
		return "", fmt.Errorf("%w: %s", ErrAlreadyRegistered, key)
	}

	reg := &Registration{
		ID:           uuid.New().String(),
		Name:         name,
		Object:       obj,
		RegisteredAt: time.Now(),
	}
	r.objects[key] = reg

	return reg.ID, nil
}

// Unregister removes the object registered under the given name.
func (r *Registry) Unregister(name objectname.ObjectName) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	key := name.String()
	if _, ok := r.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	delete(r.objects, key)

	return nil
}

// Lookup returns the registration for a canonical object name string.
func (r *Registry) Lookup(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.objects[name]
	return reg, ok
}

// Names returns the canonical names of all registered objects, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.objects))
	for name := range r.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Close marks the registry unavailable. Subsequent Register and Unregister
// calls fail with ErrRegistryClosed; reads keep working.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Registry) registrations() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]*Registration, 0, len(r.objects))
	for _, reg := range r.objects {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Name.String() < regs[j].Name.String()
	})

	return regs
}
