package runtime

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"github.com/spf13/cast"
	"github.com/warriorguo/dagflow/types"
)

var (
	_ types.Context = &nodeContext{}
)

/**
 * ExecutionContext maps node names to their results. It is append-only:
 * a name is written once and never overwritten. Writes and reads are
 * guarded so the concurrent executor can share one instance.
 */
type ExecutionContext struct {
	mu sync.RWMutex

	results types.Data
}

func NewExecutionContext(seed types.Data) *ExecutionContext {
	ec := &ExecutionContext{results: make(types.Data, len(seed))}
	for k, v := range seed {
		ec.results[k] = v
	}
	return ec
}

func (ec *ExecutionContext) Get(name string) (any, error) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()

	v, exists := ec.results[name]
	if !exists {
		return nil, errors.Trace(&types.UnresolvedDependencyError{Name: name})
	}
	return v, nil
}

func (ec *ExecutionContext) Set(name string, value any) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if _, exists := ec.results[name]; exists {
		return errors.Trace(&types.DuplicateResultError{Name: name})
	}
	ec.results[name] = value
	return nil
}

func (ec *ExecutionContext) Has(name string) bool {
	ec.mu.RLock()
	defer ec.mu.RUnlock()

	_, exists := ec.results[name]
	return exists
}

func (ec *ExecutionContext) Keys() []string {
	ec.mu.RLock()
	defer ec.mu.RUnlock()

	return ec.results.Keys()
}

func (ec *ExecutionContext) Snapshot() types.Data {
	ec.mu.RLock()
	defer ec.mu.RUnlock()

	return ec.results.Clone()
}

// nodeContext is what a single handler invocation sees.
type nodeContext struct {
	context.Context

	ec    *ExecutionContext
	runID string
	node  string
}

func newNodeContext(ctx context.Context, ec *ExecutionContext, runID, node string) *nodeContext {
	return &nodeContext{Context: ctx, ec: ec, runID: runID, node: node}
}

func (c *nodeContext) GetRunID() string {
	return c.runID
}

func (c *nodeContext) GetCurrentNode() string {
	return c.node
}

func (c *nodeContext) Get(name string) (any, error) {
	return c.ec.Get(name)
}

func (c *nodeContext) Has(name string) bool {
	return c.ec.Has(name)
}

func (c *nodeContext) Keys() []string {
	return c.ec.Keys()
}

func (c *nodeContext) Snapshot() types.Data {
	return c.ec.Snapshot()
}

func (c *nodeContext) GetString(name string) (string, error) {
	v, err := c.ec.Get(name)
	if err != nil {
		return "", errors.Trace(err)
	}
	s, err := cast.ToStringE(v)
	return s, errors.Annotatef(err, "result of %s", name)
}

func (c *nodeContext) GetInt(name string) (int, error) {
	v, err := c.ec.Get(name)
	if err != nil {
		return 0, errors.Trace(err)
	}
	i, err := cast.ToIntE(v)
	return i, errors.Annotatef(err, "result of %s", name)
}

func (c *nodeContext) GetBool(name string) (bool, error) {
	v, err := c.ec.Get(name)
	if err != nil {
		return false, errors.Trace(err)
	}
	b, err := cast.ToBoolE(v)
	return b, errors.Annotatef(err, "result of %s", name)
}

func (c *nodeContext) GetFloat64(name string) (float64, error) {
	v, err := c.ec.Get(name)
	if err != nil {
		return 0, errors.Trace(err)
	}
	f, err := cast.ToFloat64E(v)
	return f, errors.Annotatef(err, "result of %s", name)
}

func (c *nodeContext) GetStruct(name string, s any) error {
	v, err := c.ec.Get(name)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(types.DecodeStruct(v, s), "result of %s", name)
}
