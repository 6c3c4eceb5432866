package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/dagflow/store"
	"github.com/warriorguo/dagflow/types"
)

var (
	_ types.Executor = &Executor{}
)

type Executor struct {
	registry types.Registry
	store    store.Store
	opts     *types.ExecutionOptions

	mu          sync.Mutex
	runtimeData map[string]*types.NodeRuntimeData
}

// run holds everything owned by a single call to Run.
type run struct {
	id      string
	ctx     context.Context
	order   []string
	nodes   map[string]*nodeRuntime
	ec      *ExecutionContext
	builder *reportBuilder
}

/**
 * NewExecutor binds a registry to an executor. The store may be nil, in
 * which case reports are only returned to the caller.
 */
func NewExecutor(registry types.Registry, s store.Store, opts *types.ExecutionOptions) *Executor {
	if opts == nil {
		opts = types.NewExecutionOptions()
	}
	return &Executor{
		registry:    registry,
		store:       s,
		opts:        opts,
		runtimeData: make(map[string]*types.NodeRuntimeData),
	}
}

func (e *Executor) Order() ([]string, error) {
	order, err := Validate(e.registry.Nodes())
	return order, errors.Trace(err)
}

func (e *Executor) Run(ctx context.Context, initial types.Data) (*types.RunReport, error) {
	if ctx == nil {
		ctx = e.opts.Ctx
	}
	r, err := e.prepare(ctx, initial)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// a rejected graph can still be fixed, registration closes once a run starts
	e.registry.Seal()

	logger := log.WithField("run", r.id)
	logger.Infof("run started with %d nodes", len(r.order))

	if e.opts.Concurrency > 1 {
		e.runConcurrent(r)
	} else {
		e.runSequential(r)
	}
	report := r.builder.finish(r.order, r.nodes, r.ec)

	e.persist(ctx, r, report)

	logger.Infof("run finished: %d completed, %d failed, %d skipped",
		len(report.Names(types.Completed)), len(report.Names(types.Failed)), len(report.Names(types.Skipped)))
	return report, nil
}

// prepare validates the graph and sets up the per-run state. Nothing has run yet
// when it fails.
func (e *Executor) prepare(ctx context.Context, initial types.Data) (*run, error) {
	infos := e.registry.Nodes()
	order, err := Validate(infos)
	if err != nil {
		return nil, errors.Trace(err)
	}

	nodes := make(map[string]*nodeRuntime, len(infos))
	for _, info := range infos {
		if _, exists := initial[info.Name]; exists {
			return nil, errors.Annotatef(&types.DuplicateResultError{Name: info.Name}, "initial context")
		}
		handler, _ := e.registry.Handler(info.Name)
		nodes[info.Name] = &nodeRuntime{
			name:         info.Name,
			dependencies: info.Dependencies,
			handler:      handler,
			status:       types.Pending,
			runtimeData:  e.nodeRuntimeData(info.Name),
		}
	}

	id := uuid.NewString()
	return &run{
		id:      id,
		ctx:     ctx,
		order:   order,
		nodes:   nodes,
		ec:      NewExecutionContext(initial),
		builder: newReportBuilder(id, order),
	}, nil
}

func (e *Executor) runSequential(r *run) {
	for _, name := range r.order {
		if err := r.ctx.Err(); err != nil {
			r.builder.abort(errors.Annotatef(err, "run cancelled before %s", name))
			return
		}

		n := r.nodes[name]
		if e.opts.ContinueOnFailure {
			if dep := n.blockingDependency(r.nodes); dep != "" {
				n.status = types.Skipped
				n.skipReason = skipReasonFor(dep)
				continue
			}
		}

		r.builder.begin(name)
		ok := e.checkDependencies(r, n)
		if ok {
			ok = e.complete(r, n, n.invoke(newNodeContext(r.ctx, r.ec, r.id, name)))
		}
		if !ok && !e.opts.ContinueOnFailure {
			return
		}
	}
}

// checkDependencies re-checks at invocation time that every dependency
// completed. The validated order guarantees it unless the graph changed.
func (e *Executor) checkDependencies(r *run, n *nodeRuntime) bool {
	dep := n.unmetDependency(r.nodes, r.ec)
	if dep == "" {
		n.status = types.Running
		return true
	}

	err := errors.Annotatef(&types.UnresolvedDependencyError{Name: dep}, "node %s", n.name)
	log.WithFields(log.Fields{"run": r.id, "node": n.name}).Errorf("dependency check failed: %v", err)

	n.status = types.Failed
	r.builder.end(n, nil, err)
	return false
}

func (e *Executor) complete(r *run, n *nodeRuntime, ret *invokeResult) bool {
	if ret.err == nil {
		ret.err = r.ec.Set(n.name, ret.output)
	}

	if ret.err != nil {
		n.status = types.Failed
	} else {
		n.status = types.Completed
		n.completed = true
		n.result = ret.output
	}
	n.record = n.newRecord(r.id, ret)
	r.builder.end(n, ret, ret.err)
	return ret.err == nil
}

func (e *Executor) persist(ctx context.Context, r *run, report *types.RunReport) {
	if !e.opts.PersistReports || e.store == nil {
		return
	}
	// persisting must outlive a cancelled run
	ctx = context.WithoutCancel(ctx)

	for _, name := range r.order {
		record := r.nodes[name].record
		if record == nil {
			continue
		}
		if err := SaveRecord(ctx, e.store, record); err != nil {
			log.Errorf("%s failed to save record of %s: %v", r.id, name, err)
		}
	}
	if err := SaveReport(ctx, e.store, report); err != nil {
		log.Errorf("%s failed to save report: %v", r.id, err)
	}
}

func (e *Executor) nodeRuntimeData(name string) *types.NodeRuntimeData {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, exists := e.runtimeData[name]
	if !exists {
		data = &types.NodeRuntimeData{Node: name}
		e.runtimeData[name] = data
	}
	return data
}

// RuntimeData returns the counters of a node accumulated over every run.
func (e *Executor) RuntimeData(name string) (types.NodeRuntimeData, bool) {
	e.mu.Lock()
	data, exists := e.runtimeData[name]
	e.mu.Unlock()

	if !exists {
		return types.NodeRuntimeData{}, false
	}
	return types.NodeRuntimeData{
		Node:           name,
		CurrentRunning: atomic.LoadInt32(&data.CurrentRunning),
		SuccessTimes:   atomic.LoadInt64(&data.SuccessTimes),
		FailedTimes:    atomic.LoadInt64(&data.FailedTimes),
	}, true
}

func (e *Executor) RenderDOT(report *types.RunReport) (string, error) {
	return renderDOT(e.registry.Nodes(), report)
}

func (e *Executor) LoadReport(ctx context.Context, runID string) (*types.RunReport, error) {
	if e.store == nil {
		return nil, errors.NotSupportedf("executor without store")
	}
	return LoadReport(ctx, e.store, runID)
}

func (e *Executor) ListRuns(ctx context.Context) ([]string, error) {
	if e.store == nil {
		return nil, errors.NotSupportedf("executor without store")
	}
	return ListRuns(ctx, e.store)
}

// Close releases the store when it holds a connection.
func (e *Executor) Close() error {
	if closer, ok := e.store.(store.Closer); ok {
		return errors.Trace(closer.Close())
	}
	return nil
}
