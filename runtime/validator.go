package runtime

import (
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/dagflow/types"
)

type visitState int

const (
	unvisited  visitState = 0
	inProgress visitState = 1
	done       visitState = 2
)

// visitFrame is one entry of the explicit traversal stack.
type visitFrame struct {
	name string
	next int
}

/**
 * Validate computes the execution order of the nodes: every node comes after
 * all of its dependencies. Roots are taken in registration order and the
 * dependencies of a node in declaration order, so identical registrations
 * always produce the same order.
 *
 * The depth-first traversal runs on an explicit stack, a deep graph can not
 * exhaust the goroutine stack.
 */
func Validate(nodes []types.NodeInfo) ([]string, error) {
	deps := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		deps[n.Name] = n.Dependencies
	}

	state := make(map[string]visitState, len(nodes))
	order := make([]string, 0, len(nodes))

	for _, root := range nodes {
		if state[root.Name] != unvisited {
			continue
		}

		state[root.Name] = inProgress
		stack := []visitFrame{{name: root.Name}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(deps[top.name]) {
				state[top.name] = done
				order = append(order, top.name)
				stack = stack[:len(stack)-1]
				continue
			}

			dep := deps[top.name][top.next]
			top.next++

			if _, known := deps[dep]; !known {
				return nil, errors.Trace(&types.UnknownDependencyError{Node: top.name, Dependency: dep})
			}

			switch state[dep] {
			case inProgress:
				return nil, errors.Trace(&types.CyclicDependencyError{Node: dep, Path: cyclePath(stack, dep)})
			case unvisited:
				state[dep] = inProgress
				stack = append(stack, visitFrame{name: dep})
			}
		}
	}

	log.Debugf("execution order: %v", order)
	return order, nil
}

// cyclePath walks the stack from the first occurrence of name, closing the loop.
func cyclePath(stack []visitFrame, name string) []string {
	start := 0
	for i, f := range stack {
		if f.name == name {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.name)
	}
	return append(path, name)
}
