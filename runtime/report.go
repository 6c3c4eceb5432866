package runtime

import (
	"time"

	"github.com/juju/errors"
	"github.com/warriorguo/dagflow/types"
)

// reportBuilder collects outcomes while a run is going. Only the goroutine
// driving the run touches it.
type reportBuilder struct {
	report *types.RunReport
	index  map[string]int
}

func newReportBuilder(runID string, order []string) *reportBuilder {
	return &reportBuilder{
		report: &types.RunReport{
			RunID:     runID,
			Order:     order,
			Outcomes:  make([]types.NodeOutcome, 0, len(order)),
			StartTime: time.Now(),
		},
		index: make(map[string]int, len(order)),
	}
}

// begin reserves the slot of a node in attempt order.
func (b *reportBuilder) begin(name string) {
	b.index[name] = len(b.report.Outcomes)
	b.report.Outcomes = append(b.report.Outcomes, types.NewNodeOutcome(name, types.Running, nil))
}

func (b *reportBuilder) end(n *nodeRuntime, ret *invokeResult, err error) {
	o := types.NewNodeOutcome(n.name, n.status, err)
	if ret != nil {
		o.StartTime = ret.startTime
		o.EndTime = ret.endTime
	}

	if i, exists := b.index[n.name]; exists {
		b.report.Outcomes[i] = o
		return
	}
	b.index[n.name] = len(b.report.Outcomes)
	b.report.Outcomes = append(b.report.Outcomes, o)
}

func (b *reportBuilder) abort(err error) {
	if b.report.AbortError == "" && err != nil {
		b.report.AbortError = err.Error()
	}
}

/**
 * finish appends every node that was never reached as Skipped, in validated
 * order, and freezes the final context.
 */
func (b *reportBuilder) finish(order []string, nodes map[string]*nodeRuntime, ec *ExecutionContext) *types.RunReport {
	for _, name := range order {
		if _, exists := b.index[name]; exists {
			continue
		}
		n := nodes[name]
		if !n.status.IsTerminal() {
			n.status = types.Skipped
		}

		var err error
		if n.skipReason != "" {
			err = errors.New(n.skipReason)
		}
		b.end(n, nil, err)
	}

	b.report.Context = ec.Snapshot()
	b.report.EndTime = time.Now()
	return b.report
}
