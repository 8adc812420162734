// Package worker runs blocking jobs (dialogs, whole-file I/O) off the
// caller's goroutine on a bounded pool.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"

	"inkwell/internal/log"

	"golang.org/x/sync/semaphore"
)

// ErrPanicked wraps the value recovered from a job that panicked.
type ErrPanicked struct {
	Value interface{}
}

func (e *ErrPanicked) Error() string {
	return fmt.Sprintf("worker job panicked: %v", e.Value)
}

// Pool bounds how many blocking jobs run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a pool running at most size jobs concurrently.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return int(p.size)
}

// Do runs job on a pool goroutine and waits for it. If ctx ends first Do
// returns ctx.Err(); the job still runs to completion and its result is
// discarded. A panicking job is reported as *ErrPanicked.
func Do[T any](ctx context.Context, p *Pool, job func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	done := start(p, job)
	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Complete is Do for jobs that must not be abandoned once started, such as
// writes. ctx only bounds the wait for a free slot; after that Complete
// returns the job's own result.
func Complete[T any](ctx context.Context, p *Pool, job func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	res := <-start(p, job)
	return res.val, res.err
}

type result[T any] struct {
	val T
	err error
}

// start runs job on a new goroutine holding an already acquired slot.
func start[T any](p *Pool, job func() (T, error)) <-chan result[T] {
	done := make(chan result[T], 1)

	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				log.LogWithFields(log.F("panic", r), log.F("stack", string(debug.Stack()))).Error("Blocking job panicked")
				done <- result[T]{err: &ErrPanicked{Value: r}}
			}
		}()
		val, err := job()
		done <- result[T]{val: val, err: err}
	}()

	return done
}
