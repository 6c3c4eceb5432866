package types

import (
	"context"
	"time"
)

type NodeTraceRecord struct {
	RunID     string
	Node      string
	Status    StatusType
	StartTime time.Time
	EndTime   time.Time
	Error     string `json:",omitempty"`
	Output    any    `json:",omitempty"`
}

type NodeRuntimeData struct {
	Node           string
	CurrentRunning int32
	SuccessTimes   int64
	FailedTimes    int64
}

// NodeHandler is the only unit of work the executor knows about.
type NodeHandler func(ctx Context) (any, error)

// NodeInfo describes a registered node without its per-run state.
type NodeInfo struct {
	Name         string
	Dependencies []string
}

type Registry interface {
	/**
	 * Register adds a node. Dependencies are de-duplicated, their existence
	 * is only checked once a run starts so registration order is free.
	 */
	Register(name string, dependencies []string, handler NodeHandler) error
	// Nodes returns every node in registration order.
	Nodes() []NodeInfo
	Handler(name string) (NodeHandler, bool)
	// Seal closes the registry for registration, a run calls it on start.
	Seal()
}

type Executor interface {
	/**
	 * Run validates the graph and executes it. A malformed graph is returned
	 * as an error and no handler runs. Once validation passed, handler
	 * failures only show up in the report and the error is nil.
	 */
	Run(ctx context.Context, initial Data) (*RunReport, error)
	// Order returns the validated execution order without running anything.
	Order() ([]string, error)
	RenderDOT(report *RunReport) (string, error)
	RuntimeData(node string) (NodeRuntimeData, bool)
	LoadReport(ctx context.Context, runID string) (*RunReport, error)
	ListRuns(ctx context.Context) ([]string, error)
	Close() error
}
