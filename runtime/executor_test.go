package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/dagflow/store"
	"github.com/warriorguo/dagflow/store/mem"
	"github.com/warriorguo/dagflow/types"
)

func newOptions() *types.ExecutionOptions {
	opts := types.NewExecutionOptions()
	opts.MemStore = true
	return opts
}

// pipeline records which handlers were called, in order.
type pipeline struct {
	t *testing.T

	mu    sync.Mutex
	calls []string
}

func (p *pipeline) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
}

func (p *pipeline) called() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.calls...)
}

func (p *pipeline) ok(value any) types.NodeHandler {
	return func(ctx types.Context) (any, error) {
		p.record(ctx.GetCurrentNode())
		return value, nil
	}
}

func (p *pipeline) fail(msg string) types.NodeHandler {
	return func(ctx types.Context) (any, error) {
		p.record(ctx.GetCurrentNode())
		return nil, errors.New(msg)
	}
}

func (p *pipeline) collect(ctx types.Context) (any, error) {
	p.record(ctx.GetCurrentNode())
	task, err := ctx.GetString("task")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return "data for " + task, nil
}

func (p *pipeline) analyze(ctx types.Context) (any, error) {
	p.record(ctx.GetCurrentNode())
	data, err := ctx.GetString("A")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ctx.GetCurrentNode() + "(" + data + ")", nil
}

func (p *pipeline) report(ctx types.Context) (any, error) {
	p.record(ctx.GetCurrentNode())
	b, err := ctx.GetString("B")
	if err != nil {
		return nil, errors.Trace(err)
	}
	c, err := ctx.GetString("C")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return b + " + " + c, nil
}

func (p *pipeline) diamond(t *testing.T) *Registry {
	r := NewRegistry()
	require.Nil(t, r.Register("A", nil, p.collect))
	require.Nil(t, r.Register("B", []string{"A"}, p.analyze))
	require.Nil(t, r.Register("C", []string{"A"}, p.analyze))
	require.Nil(t, r.Register("D", []string{"B", "C"}, p.report))
	return r
}

func statuses(report *types.RunReport) []string {
	s := make([]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		s = append(s, fmt.Sprintf("%s:%s", o.Name, o.Status))
	}
	return s
}

func TestRunDiamond(t *testing.T) {
	p := &pipeline{t: t}
	e := NewExecutor(p.diamond(t), mem.NewMemStore(), newOptions())

	report, err := e.Run(context.Background(), types.Data{"task": "pricing"})
	require.Nil(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, report.Order)
	assert.Equal(t, []string{"A", "B", "C", "D"}, p.called())
	assert.Equal(t, []string{"A:Completed", "B:Completed", "C:Completed", "D:Completed"}, statuses(report))
	assert.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)

	final := report.FinalContext()
	assert.Equal(t, "pricing", final["task"])
	assert.Equal(t, "data for pricing", final["A"])
	assert.Equal(t, "B(data for pricing) + C(data for pricing)", final["D"])
	assert.Len(t, final, 5)

	for _, o := range report.Outcomes {
		assert.False(t, o.StartTime.IsZero())
		assert.False(t, o.EndTime.Before(o.StartTime))
	}
}

func TestRunFailFast(t *testing.T) {
	p := &pipeline{t: t}
	r := NewRegistry()
	require.Nil(t, r.Register("A", nil, p.ok("a")))
	require.Nil(t, r.Register("B", []string{"A"}, p.fail("quota exceeded")))
	require.Nil(t, r.Register("C", nil, p.ok("c")))

	e := NewExecutor(r, mem.NewMemStore(), newOptions())
	report, err := e.Run(context.Background(), nil)
	require.Nil(t, err)

	assert.Equal(t, []string{"A:Completed", "B:Failed", "C:Skipped"}, statuses(report))
	// C does not depend on B but is never invoked
	assert.Equal(t, []string{"A", "B"}, p.called())
	assert.False(t, report.Succeeded())

	failed, exists := report.FirstFailure()
	require.True(t, exists)
	assert.Equal(t, "B", failed.Name)
	assert.Contains(t, failed.Error, "quota exceeded")
	var handlerErr *types.HandlerError
	assert.True(t, errors.As(failed.Err(), &handlerErr))
	assert.Equal(t, "B", handlerErr.Node)

	skipped, _ := report.Outcome("C")
	assert.Empty(t, skipped.Error)

	final := report.FinalContext()
	assert.Equal(t, types.Data{"A": "a"}, final)
}

func TestRunValidationErrors(t *testing.T) {
	p := &pipeline{t: t}

	cyclic := NewRegistry()
	require.Nil(t, cyclic.Register("start", nil, p.ok(1)))
	require.Nil(t, cyclic.Register("X", []string{"Y"}, p.ok(1)))
	require.Nil(t, cyclic.Register("Y", []string{"X"}, p.ok(1)))

	report, err := NewExecutor(cyclic, nil, newOptions()).Run(context.Background(), nil)
	assert.Nil(t, report)
	assert.True(t, types.IsCyclicDependency(err))

	unknown := NewRegistry()
	require.Nil(t, unknown.Register("start", nil, p.ok(1)))
	require.Nil(t, unknown.Register("Z", []string{"W"}, p.ok(1)))

	report, err = NewExecutor(unknown, nil, newOptions()).Run(context.Background(), nil)
	assert.Nil(t, report)
	var missing *types.UnknownDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Z", missing.Node)
	assert.Equal(t, "W", missing.Dependency)

	assert.Empty(t, p.called())
}

func TestRunSeedConflict(t *testing.T) {
	p := &pipeline{t: t}
	e := NewExecutor(p.diamond(t), nil, newOptions())

	report, err := e.Run(context.Background(), types.Data{"task": "x", "B": "preset"})
	assert.Nil(t, report)
	assert.True(t, types.IsDuplicateResult(err))
	assert.Empty(t, p.called())
}

func TestRunDeterministic(t *testing.T) {
	p := &pipeline{t: t}
	e := NewExecutor(p.diamond(t), nil, newOptions())

	first, err := e.Run(context.Background(), types.Data{"task": "pricing"})
	require.Nil(t, err)
	second, err := e.Run(context.Background(), types.Data{"task": "pricing"})
	require.Nil(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Order, second.Order)
	assert.Equal(t, statuses(first), statuses(second))
	assert.Equal(t, first.FinalContext(), second.FinalContext())
	assert.Equal(t, []string{"A", "B", "C", "D", "A", "B", "C", "D"}, p.called())

	data, exists := e.RuntimeData("A")
	assert.True(t, exists)
	assert.Equal(t, int64(2), data.SuccessTimes)
	assert.Equal(t, int64(0), data.FailedTimes)
	assert.Equal(t, int32(0), data.CurrentRunning)
}

func TestRunSealsRegistry(t *testing.T) {
	p := &pipeline{t: t}
	r := p.diamond(t)
	e := NewExecutor(r, nil, newOptions())

	_, err := e.Run(context.Background(), types.Data{"task": "x"})
	require.Nil(t, err)
	assert.True(t, errors.Is(r.Register("E", nil, p.ok(1)), types.ErrRegistrySealed))
}

func TestRejectedRunKeepsRegistryOpen(t *testing.T) {
	p := &pipeline{t: t}
	r := NewRegistry()
	require.Nil(t, r.Register("Z", []string{"W"}, p.ok("z")))
	e := NewExecutor(r, nil, newOptions())

	_, err := e.Run(context.Background(), nil)
	assert.True(t, types.IsUnknownDependency(err))

	require.Nil(t, r.Register("W", nil, p.ok("w")))
	report, err := e.Run(context.Background(), nil)
	require.Nil(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, []string{"W", "Z"}, report.Order)
	assert.True(t, errors.Is(r.Register("V", nil, p.ok("v")), types.ErrRegistrySealed))
}

type closableStore struct {
	store.Store
	closed int
}

func (c *closableStore) Close() error {
	c.closed++
	return nil
}

func TestExecutorCloseReleasesStore(t *testing.T) {
	p := &pipeline{t: t}
	s := &closableStore{Store: mem.NewMemStore()}
	e := NewExecutor(p.diamond(t), s, newOptions())

	_, err := e.Run(context.Background(), types.Data{"task": "x"})
	require.Nil(t, err)
	assert.Nil(t, e.Close())
	assert.Equal(t, 1, s.closed)

	assert.Nil(t, NewExecutor(p.diamond(t), nil, newOptions()).Close())
	assert.Nil(t, NewExecutor(p.diamond(t), mem.NewMemStore(), newOptions()).Close())
}

func TestRunHandlerSeesRunID(t *testing.T) {
	var seen []string
	r := NewRegistry()
	require.Nil(t, r.Register("A", nil, func(ctx types.Context) (any, error) {
		seen = append(seen, ctx.GetRunID())
		assert.False(t, ctx.Has("B"))
		_, err := ctx.Get("B")
		assert.True(t, types.IsUnresolvedDependency(err))
		return 1, nil
	}))
	require.Nil(t, r.Register("B", []string{"A"}, func(ctx types.Context) (any, error) {
		seen = append(seen, ctx.GetRunID())
		v, err := ctx.GetInt("A")
		return v + 1, err
	}))

	report, err := NewExecutor(r, nil, newOptions()).Run(context.Background(), nil)
	require.Nil(t, err)
	assert.Equal(t, []string{report.RunID, report.RunID}, seen)
}

func TestRunEmptyRegistry(t *testing.T) {
	report, err := NewExecutor(NewRegistry(), nil, newOptions()).Run(context.Background(), types.Data{"k": "v"})
	require.Nil(t, err)
	assert.Empty(t, report.Outcomes)
	assert.True(t, report.Succeeded())
	assert.Equal(t, types.Data{"k": "v"}, report.FinalContext())
}

func TestRunPersistsReport(t *testing.T) {
	p := &pipeline{t: t}
	s := mem.NewMemStore()
	r := NewRegistry()
	require.Nil(t, r.Register("A", nil, p.ok("a")))
	require.Nil(t, r.Register("B", []string{"A"}, p.fail("broken")))
	require.Nil(t, r.Register("C", []string{"B"}, p.ok("c")))

	e := NewExecutor(r, s, newOptions())
	report, err := e.Run(context.Background(), nil)
	require.Nil(t, err)

	loaded, err := e.LoadReport(context.Background(), report.RunID)
	require.Nil(t, err)
	assert.Equal(t, statuses(report), statuses(loaded))
	assert.Equal(t, report.Order, loaded.Order)
	assert.Equal(t, "a", loaded.Context["A"])

	runs, err := e.ListRuns(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []string{report.RunID}, runs)

	records, err := LoadRecords(context.Background(), s, report.RunID)
	assert.Nil(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, types.Completed, records["A"].Status)
	assert.Equal(t, types.Failed, records["B"].Status)
	assert.True(t, strings.Contains(records["B"].Error, "broken"))
}

func TestRunWithoutPersistence(t *testing.T) {
	p := &pipeline{t: t}
	s := mem.NewMemStore()
	opts := newOptions()
	opts.PersistReports = false

	e := NewExecutor(p.diamond(t), s, opts)
	report, err := e.Run(context.Background(), types.Data{"task": "x"})
	require.Nil(t, err)

	_, err = e.LoadReport(context.Background(), report.RunID)
	assert.True(t, errors.IsNotFound(err))

	var noStore store.Store
	_, err = NewExecutor(p.diamond(t), noStore, opts).LoadReport(context.Background(), "any")
	assert.True(t, errors.IsNotSupported(err))
}
