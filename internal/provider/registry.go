package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the providers a host composes, ordered by their hint.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	disabled  map[string]bool
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		disabled:  make(map[string]bool),
	}
}

func registryKey(name string, kind EntityKind) string {
	return name + "/" + string(kind)
}

// Register adds a provider to the registry. A name may be registered once per
// entity kind.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("provider is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(p.Name(), p.Kind())
	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("provider %s already registered", key)
	}

	if err := ValidateCapabilities(p.Capabilities()); err != nil {
		return fmt.Errorf("invalid provider capabilities for %s: %w", key, err)
	}

	r.providers[key] = p
	return nil
}

// Get returns a provider by name and kind
func (r *Registry) Get(name string, kind EntityKind) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[registryKey(name, kind)]
	return p, exists
}

// List returns every registered provider key, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.providers))
	for key := range r.providers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Disable hides a provider from For without unregistering it.
func (r *Registry) Disable(name string, kind EntityKind) error {
	return r.setDisabled(name, kind, true)
}

// Enable reverses Disable.
func (r *Registry) Enable(name string, kind EntityKind) error {
	return r.setDisabled(name, kind, false)
}

func (r *Registry) setDisabled(name string, kind EntityKind, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(name, kind)
	if _, exists := r.providers[key]; !exists {
		return fmt.Errorf("provider %s not found", key)
	}
	if disabled {
		r.disabled[key] = true
	} else {
		delete(r.disabled, key)
	}
	return nil
}

// For returns the enabled providers that support info, lowest Order first.
// Ties keep name order so results are deterministic.
func (r *Registry) For(info LookupInfo) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	for key, p := range r.providers {
		if r.disabled[key] {
			continue
		}
		if p.Supports(info) {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order() != out[j].Order() {
			return out[i].Order() < out[j].Order()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// ForMetadata is For ordered by each provider's metadata order instead of its
// image order.
func (r *Registry) ForMetadata(info LookupInfo) []Provider {
	out := r.For(info)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Capabilities().MetadataOrder < out[j].Capabilities().MetadataOrder
	})
	return out
}
