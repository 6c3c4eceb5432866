package runtime

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/dagflow/types"
)

// nodeRuntime is the per-run state of one node.
type nodeRuntime struct {
	name         string
	dependencies []string
	handler      types.NodeHandler

	status    types.StatusType
	completed bool
	result    any

	// skipReason explains why a node never ran, empty when it simply was not reached.
	skipReason string

	runtimeData *types.NodeRuntimeData
	record      *types.NodeTraceRecord
}

type invokeResult struct {
	name      string
	output    any
	err       error
	startTime time.Time
	endTime   time.Time
}

func (n *nodeRuntime) runHandler(fc *nodeContext) (output any, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = errors.Errorf("panic on %s: %v", n.name, r)
		}
	}()
	return n.handler(fc)
}

// invoke runs the handler once. It only touches fields that are safe to
// read from a worker goroutine.
func (n *nodeRuntime) invoke(fc *nodeContext) *invokeResult {
	atomic.AddInt32(&n.runtimeData.CurrentRunning, 1)
	defer atomic.AddInt32(&n.runtimeData.CurrentRunning, -1)

	logger := log.WithFields(log.Fields{"run": fc.runID, "node": n.name})
	logger.Debugf("running")

	ret := &invokeResult{name: n.name, startTime: time.Now()}
	ret.output, ret.err = n.runHandler(fc)
	ret.endTime = time.Now()

	if ret.err != nil {
		atomic.AddInt64(&n.runtimeData.FailedTimes, 1)
		logger.Errorf("failed after %v: %v", ret.endTime.Sub(ret.startTime), ret.err)
		ret.err = types.NewHandlerError(n.name, ret.err)
	} else {
		atomic.AddInt64(&n.runtimeData.SuccessTimes, 1)
		logger.Debugf("completed in %v", ret.endTime.Sub(ret.startTime))
	}
	return ret
}

func (n *nodeRuntime) newRecord(runID string, ret *invokeResult) *types.NodeTraceRecord {
	record := &types.NodeTraceRecord{
		RunID:     runID,
		Node:      n.name,
		Status:    n.status,
		StartTime: ret.startTime,
		EndTime:   ret.endTime,
		Output:    ret.output,
	}
	if ret.err != nil {
		record.Error = errors.ErrorStack(ret.err)
	}
	return record
}

func (n *nodeRuntime) unmetDependency(nodes map[string]*nodeRuntime, ec *ExecutionContext) string {
	for _, dep := range n.dependencies {
		d, exists := nodes[dep]
		if !exists || !d.completed || !ec.Has(dep) {
			return dep
		}
	}
	return ""
}

// blockingDependency returns a dependency that will never complete in this run.
func (n *nodeRuntime) blockingDependency(nodes map[string]*nodeRuntime) string {
	for _, dep := range n.dependencies {
		if d, exists := nodes[dep]; exists && (d.status == types.Failed || d.status == types.Skipped) {
			return dep
		}
	}
	return ""
}

func skipReasonFor(dep string) string {
	return fmt.Sprintf("dependency %s did not complete", dep)
}
