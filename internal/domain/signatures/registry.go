package signatures

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Registry holds modules in registration order. Order is the tie-break:
// when two modules report the same confidence the earlier one wins.
type Registry struct {
	order []Module
	byID  map[string]Module
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Module)}
}

// NewDefaultRegistry creates a registry with the built-in modules
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range Builtins() {
		// Built-in IDs are distinct, Register cannot fail here.
		_ = r.Register(m)
	}
	return r
}

// Builtins returns the compiled-in modules in their registration order
func Builtins() []Module {
	return []Module{
		NewUPX(),
		NewThemida(),
		NewASPack(),
		NewPECompact(),
	}
}

// Register appends a module. IDs must be unique.
func (r *Registry) Register(m Module) error {
	if m == nil {
		return fmt.Errorf("module is nil")
	}
	id := m.ID()
	if id == "" {
		return fmt.Errorf("module has empty id")
	}
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("module %q already registered", id)
	}
	r.order = append(r.order, m)
	r.byID[id] = m
	return nil
}

// Get returns a module by ID
func (r *Registry) Get(id string) (Module, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Modules returns the modules in registration order
func (r *Registry) Modules() []Module {
	out := make([]Module, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered modules
func (r *Registry) Len() int {
	return len(r.order)
}

// Fingerprint identifies the registry contents and order.
// Rule modules contribute their full definition, so editing a rule file
// changes the fingerprint.
func (r *Registry) Fingerprint() string {
	var b strings.Builder
	for _, m := range r.order {
		b.WriteString(m.ID())
		if rm, ok := m.(*ruleModule); ok {
			b.WriteString(fmt.Sprintf("%+v", *rm.rule))
		}
		b.WriteByte(0)
	}
	return strconv.FormatUint(xxh3.HashString(b.String()), 16)
}
