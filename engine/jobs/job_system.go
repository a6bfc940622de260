// package jobs runs short CPU-bound batches on a persistent worker pool. Callers submit a batch and block until every job
// in it has finished, so the rest of the engine stays single-threaded.
package jobs

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// JobSystem fans work out onto pooled goroutines and joins it before returning.
type JobSystem interface {
	// Run executes every function concurrently and waits for all of them.
	//
	// Parameters:
	//   - fns: the jobs to run
	//
	// Returns:
	//   - error: every job error joined together, or nil
	Run(fns ...func() error) error

	// Parallel calls fn for every index in [0, n) and waits for all calls.
	//
	// Parameters:
	//   - n: number of iterations
	//   - fn: work for one index
	//
	// Returns:
	//   - error: every iteration error joined together, or nil
	Parallel(n int, fn func(i int) error) error

	// Workers returns the configured worker count.
	Workers() int
}

type jobSystemImpl struct {
	pool    worker.DynamicWorkerPool
	workers int
	nextID  atomic.Int64
}

var _ JobSystem = &jobSystemImpl{}

// NewJobSystem creates a JobSystem with the given number of workers. A non-positive count uses NumCPU-1 (minimum 1).
// Workers persist across batches and idle-exit after a second of inactivity.
func NewJobSystem(workers int) JobSystem {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	return &jobSystemImpl{
		// Queue size of 256 covers the largest batch (6 cube faces per mip level times a handful of levels).
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers: workers,
	}
}

func (j *jobSystemImpl) Workers() int {
	return j.workers
}

func (j *jobSystemImpl) Run(fns ...func() error) error {
	return j.Parallel(len(fns), func(i int) error { return fns[i]() })
}

func (j *jobSystemImpl) Parallel(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return guard(0, fn)
	}

	errs := make([]error, n)
	// A WaitGroup is the per-batch barrier; the pool itself is never drained.
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		idx := i
		j.pool.SubmitTask(worker.Task{
			ID: int(j.nextID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = guard(idx, fn)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// guard turns a panicking job into an error so one bad job can not take the worker down with it.
func guard(i int, fn func(i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("jobs: job %d panicked: %v", i, r)
		}
	}()
	return fn(i)
}
