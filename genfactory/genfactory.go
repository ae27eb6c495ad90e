// Package genfactory is the plugin-style factory map binding a
// generator kind's name to the constructor that builds it. Factories
// register themselves through an explicit call from main, never
// through a package-level init() side effect, avoiding the
// init()-ordering hazards of package-level self-registration.
package genfactory

import (
	"fmt"
	"sync"

	"github.com/rotblauer/vtsproxy/registry"
)

type entry struct {
	factory        registry.Factory
	systemInstance bool
}

// Registry is the live set of registered generator-kind factories.
// It implements registry.FactoryLookup.
type Registry struct {
	mu        sync.Mutex
	factories map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]entry{}}
}

// Default is the process-wide factory map main registers generator
// kinds into before calling cmd.Execute, rather than each generator
// kind registering itself via init().
var Default = NewRegistry()

// Register binds generatorType to factory. systemInstance marks the
// factory as one the registry instantiates once per reference frame
// at startup rather than from catalogue resources. Registering the
// same generatorType twice is a programmer error and panics, matching
// the "duplicate registration" guards on an RPC method table.
func (r *Registry) Register(generatorType string, factory registry.Factory, systemInstance bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[generatorType]; exists {
		panic(fmt.Sprintf("genfactory: duplicate registration for %q", generatorType))
	}
	r.factories[generatorType] = entry{factory: factory, systemInstance: systemInstance}
}

// Factory looks up the constructor registered for generatorType.
func (r *Registry) Factory(generatorType string) (registry.Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.factories[generatorType]
	if !ok {
		return nil, false
	}
	return e.factory, true
}

// SystemFactories lists every factory registered with systemInstance
// set, in registration order being unspecified -- the registry
// instantiates one generator per reference frame per entry regardless
// of iteration order.
func (r *Registry) SystemFactories() []registry.SystemFactory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]registry.SystemFactory, 0)
	for generatorType, e := range r.factories {
		if e.systemInstance {
			out = append(out, registry.SystemFactory{GeneratorType: generatorType, Factory: e.factory})
		}
	}
	return out
}
