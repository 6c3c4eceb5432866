package types

import (
	"context"
	"fmt"
)

type StatusType int32

const (
	None      StatusType = 0
	Pending   StatusType = 1
	Running   StatusType = 2
	Completed StatusType = 3
	Failed    StatusType = 5
	Skipped   StatusType = 6
)

var statusNames = map[StatusType]string{
	None:      "None",
	Pending:   "Pending",
	Running:   "Running",
	Completed: "Completed",
	Failed:    "Failed",
	Skipped:   "Skipped",
}

func (s StatusType) String() string {
	if name, exists := statusNames[s]; exists {
		return name
	}
	return fmt.Sprintf("StatusType(%d)", int32(s))
}

// IsTerminal reports whether a node in this status will not change any more
// during the current run.
func (s StatusType) IsTerminal() bool {
	return s == Completed || s == Failed || s == Skipped
}

func (s StatusType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StatusType) UnmarshalText(b []byte) error {
	for status, name := range statusNames {
		if name == string(b) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status: %s", string(b))
}

/**
 * Context is the read-only view of the execution context handed to every
 * node handler. It only exposes results of nodes that already completed,
 * plus the values the caller seeded the run with.
 */
type Context interface {
	context.Context

	GetRunID() string
	GetCurrentNode() string

	// Get fails with *UnresolvedDependencyError when name has no result yet.
	Get(name string) (any, error)
	Has(name string) bool
	Keys() []string
	Snapshot() Data

	GetString(name string) (string, error)
	GetInt(name string) (int, error)
	GetBool(name string) (bool, error)
	GetFloat64(name string) (float64, error)
	GetStruct(name string, s any) error
}
