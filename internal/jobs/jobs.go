// Package jobs runs independent tasks off the control thread and hands their
// results back at a single join point.
//
// A task is submitted with everything it needs captured by value. It always
// runs to completion; there is no cancellation. The submitter calls Join, which
// blocks until the result is available.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrTaskPanicked wraps a panic recovered from a task.
var ErrTaskPanicked = errors.New("jobs: task panicked")

// Scheduler bounds the number of tasks running at once.
type Scheduler struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewScheduler creates a scheduler running at most workers tasks at a time.
// A non-positive count uses GOMAXPROCS.
func NewScheduler(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scheduler{sem: semaphore.NewWeighted(int64(workers))}
}

// Wait blocks until every submitted task has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Future is the handle of one submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Submit starts fn on the scheduler and returns its future. Submit never
// blocks the caller; tasks beyond the worker limit queue up.
func Submit[T any](s *Scheduler, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(f.done)

		// Acquire cannot fail with a background context.
		_ = s.sem.Acquire(context.Background(), 1)
		defer s.sem.Release(1)

		f.value, f.err = run(fn)
	}()

	return f
}

func run[T any](fn func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return fn()
}

// Ready reports whether the task has finished. It never blocks.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Join blocks until the task has finished and returns its result. Join may be
// called more than once; every call returns the same result.
func (f *Future[T]) Join() (T, error) {
	<-f.done
	return f.value, f.err
}
