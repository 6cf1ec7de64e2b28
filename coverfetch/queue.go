package coverfetch

import "sync"

// Queue is an unbounded FIFO of jobs which tracks how many put jobs have not been
// marked done yet. Shutdown signals share the FIFO with jobs but are not tracked.
type Queue struct {
	mu      sync.Mutex
	ready   sync.Cond
	drained sync.Cond

	items   []entry
	pending int
}

type entry struct {
	job      Job
	shutdown bool
}

func NewQueue() *Queue {
	var q Queue
	q.ready.L = &q.mu
	q.drained.L = &q.mu
	return &q
}

// Put adds a job which must later be acknowledged with [Queue.Done].
func (q *Queue) Put(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, entry{job: job})
	q.pending++
	q.ready.Signal()
}

// Stop adds a single shutdown signal. The consumer that receives it should exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, entry{shutdown: true})
	q.ready.Signal()
}

// Get blocks until an item is available. It returns false if the item was a shutdown
// signal.
func (q *Queue) Get() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.ready.Wait()
	}
	e := q.items[0]
	q.items[0] = entry{}
	q.items = q.items[1:]
	if e.shutdown {
		return Job{}, false
	}
	return e.job, true
}

// Done marks one job returned by Get as finished.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending <= 0 {
		panic("coverfetch: Done called more times than Put")
	}
	q.pending--
	if q.pending == 0 {
		q.drained.Broadcast()
	}
}

// Wait blocks until every job put so far has been marked done, not just taken.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending > 0 {
		q.drained.Wait()
	}
}

// Pending returns the number of jobs not yet marked done.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
