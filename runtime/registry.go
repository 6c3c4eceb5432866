package runtime

import (
	"sync"

	"github.com/juju/errors"
	"github.com/warriorguo/dagflow/types"
	"github.com/warriorguo/dagflow/utils"
)

var (
	_ types.Registry = &Registry{}
)

type nodeEntity struct {
	name         string
	dependencies []string
	handler      types.NodeHandler
}

// Registry holds node definitions. It never looks at the graph as a whole.
type Registry struct {
	mu sync.Mutex

	sealed bool
	order  []string
	nodes  map[string]*nodeEntity
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*nodeEntity)}
}

func (r *Registry) Register(name string, dependencies []string, handler types.NodeHandler) error {
	if handler == nil {
		return errors.BadRequestf("node:%s handler is nil", name)
	}
	if name == "" {
		return errors.BadRequestf("node name is empty")
	}

	deps := utils.UniqueCopy(dependencies)
	for _, dep := range deps {
		if dep == name {
			return errors.Trace(&types.InvalidDependencyError{Node: name, Dependency: dep})
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Trace(types.ErrRegistrySealed)
	}
	if _, exists := r.nodes[name]; exists {
		return errors.Trace(&types.DuplicateNodeError{Name: name})
	}
	r.nodes[name] = &nodeEntity{name: name, dependencies: deps, handler: handler}
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Nodes() []types.NodeInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]types.NodeInfo, 0, len(r.order))
	for _, name := range r.order {
		n := r.nodes[name]
		deps := make([]string, len(n.dependencies))
		copy(deps, n.dependencies)
		infos = append(infos, types.NodeInfo{Name: name, Dependencies: deps})
	}
	return infos
}

func (r *Registry) Handler(name string) (types.NodeHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, exists := r.nodes[name]
	if !exists {
		return nil, false
	}
	return n.handler, true
}

func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.order)
}
