package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/xrts/internal/config"
	"github.com/san-kum/xrts/internal/potential"
)

// Registry resolves named run configurations and potential kinds.
type Registry struct {
	presets map[string]func() *config.Config
}

func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]func() *config.Config)}
	for _, name := range config.ListPresets() {
		name := name
		r.presets[name] = func() *config.Config { return config.GetPreset(name) }
	}
	r.presets["default"] = config.DefaultConfig
	return r
}

// Register adds or replaces a preset.
func (r *Registry) Register(name string, fn func() *config.Config) {
	r.presets[name] = fn
}

func (r *Registry) Get(name string) (*config.Config, error) {
	fn, ok := r.presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Potential(name string) (potential.Kind, error) {
	return potential.ParseKind(name)
}

func (r *Registry) ListPotentials() []string { return potential.KindNames() }
