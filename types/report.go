package types

import "time"

// NodeOutcome is one entry of a run report. Times stay zero for nodes that
// never ran.
type NodeOutcome struct {
	Name      string
	Status    StatusType
	Error     string `json:",omitempty"`
	StartTime time.Time
	EndTime   time.Time

	err error
}

func NewNodeOutcome(name string, status StatusType, err error) NodeOutcome {
	o := NodeOutcome{Name: name, Status: status, err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Err returns the failure of the node. It is only kept in memory, a loaded
// report carries the description in Error.
func (o NodeOutcome) Err() error {
	return o.err
}

/**
 * RunReport is built by the executor during one run and handed to the caller
 * once the run is over. Outcomes are in attempt order, skipped nodes follow
 * in validated order.
 */
type RunReport struct {
	RunID      string
	Order      []string
	Outcomes   []NodeOutcome
	Context    Data
	StartTime  time.Time
	EndTime    time.Time
	AbortError string `json:",omitempty"`
}

func (r *RunReport) FinalContext() Data {
	return r.Context.Clone()
}

func (r *RunReport) Outcome(name string) (NodeOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return NodeOutcome{}, false
}

func (r *RunReport) Status(name string) StatusType {
	if o, exists := r.Outcome(name); exists {
		return o.Status
	}
	return None
}

func (r *RunReport) Names(status StatusType) []string {
	names := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status == status {
			names = append(names, o.Name)
		}
	}
	return names
}

// Attempted lists the nodes whose handler was invoked, in invocation order.
func (r *RunReport) Attempted() []string {
	names := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status == Completed || o.Status == Failed {
			names = append(names, o.Name)
		}
	}
	return names
}

// FirstFailure returns the first node that failed.
func (r *RunReport) FirstFailure() (NodeOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Status == Failed {
			return o, true
		}
	}
	return NodeOutcome{}, false
}

func (r *RunReport) Succeeded() bool {
	if r.AbortError != "" {
		return false
	}
	for _, o := range r.Outcomes {
		if o.Status != Completed {
			return false
		}
	}
	return true
}
