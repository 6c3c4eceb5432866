package runtime

import (
	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/dagflow/types"
)

/**
 * concurrentRunner starts every node whose dependencies completed on a worker
 * pool. Only the goroutine calling run touches the node states and the
 * report, workers just invoke handlers and hand the result back.
 *
 * Once a failure is seen (fail-fast) or the context is done, no new node is
 * launched but nodes already running are waited for.
 */
type concurrentRunner struct {
	e *Executor
	r *run

	wp     *workerpool.WorkerPool
	doneCh chan *invokeResult

	waiting    map[string]int
	dependents map[string][]string
	running    int
	stopped    bool
}

func (e *Executor) runConcurrent(r *run) {
	cr := &concurrentRunner{
		e:          e,
		r:          r,
		wp:         workerpool.New(e.opts.Concurrency),
		doneCh:     make(chan *invokeResult, len(r.order)),
		waiting:    make(map[string]int, len(r.order)),
		dependents: make(map[string][]string, len(r.order)),
	}
	defer cr.wp.StopWait()

	cr.run()
}

func (cr *concurrentRunner) run() {
	for _, name := range cr.r.order {
		n := cr.r.nodes[name]
		cr.waiting[name] = len(n.dependencies)
		for _, dep := range n.dependencies {
			cr.dependents[dep] = append(cr.dependents[dep], name)
		}
	}

	for _, name := range cr.r.order {
		if cr.waiting[name] == 0 {
			cr.tryLaunch(cr.r.nodes[name])
		}
	}

	for cr.running > 0 {
		ret := <-cr.doneCh
		cr.running--

		n := cr.r.nodes[ret.name]
		if !cr.e.complete(cr.r, n, ret) {
			cr.onFailure(n)
			continue
		}
		for _, next := range cr.dependents[n.name] {
			if cr.waiting[next]--; cr.waiting[next] == 0 {
				cr.tryLaunch(cr.r.nodes[next])
			}
		}
	}
}

func (cr *concurrentRunner) canLaunch(name string) bool {
	if cr.stopped {
		return false
	}
	if err := cr.r.ctx.Err(); err != nil {
		cr.r.builder.abort(errors.Annotatef(err, "run cancelled before %s", name))
		cr.stopped = true
		return false
	}
	return true
}

func (cr *concurrentRunner) tryLaunch(n *nodeRuntime) {
	if !cr.canLaunch(n.name) {
		return
	}

	cr.r.builder.begin(n.name)
	if !cr.e.checkDependencies(cr.r, n) {
		cr.onFailure(n)
		return
	}

	cr.running++
	fc := newNodeContext(cr.r.ctx, cr.r.ec, cr.r.id, n.name)
	cr.wp.Submit(func() {
		cr.doneCh <- n.invoke(fc)
	})
}

func (cr *concurrentRunner) onFailure(n *nodeRuntime) {
	if !cr.e.opts.ContinueOnFailure {
		if !cr.stopped {
			log.WithField("run", cr.r.id).Debugf("%s failed, no more nodes will be launched", n.name)
		}
		cr.stopped = true
		return
	}
	cr.skipDependents(n.name)
}

// skipDependents marks everything downstream of name as unreachable.
func (cr *concurrentRunner) skipDependents(name string) {
	queue := []string{name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range cr.dependents[current] {
			n := cr.r.nodes[next]
			if n.status == types.Skipped {
				continue
			}
			n.status = types.Skipped
			n.skipReason = skipReasonFor(current)
			queue = append(queue, next)
		}
	}
}
