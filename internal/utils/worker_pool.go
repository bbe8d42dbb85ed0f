package utils

import (
	"context"
	"sync"
)

// Job represents a task to be executed by a worker.
type Job struct {
	Task func(ctx context.Context)
}

// WorkerPool manages a pool of workers to execute jobs.
type WorkerPool struct {
	ctx       context.Context
	workers   int
	jobQueue  chan Job
	waitGroup sync.WaitGroup
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers.
// Every task receives ctx; tasks still queued when ctx is done are dropped.
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	pool := &WorkerPool{
		ctx:      ctx,
		workers:  workers,
		jobQueue: make(chan Job, workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker processes jobs from the jobQueue.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			continue
		}
		job.Task(wp.ctx)
	}
}

// Submit adds a new job to the worker pool.
func (wp *WorkerPool) Submit(task func(ctx context.Context)) {
	wp.jobQueue <- Job{Task: task}
}

// Shutdown waits for all workers to finish and then closes the worker pool.
func (wp *WorkerPool) Shutdown() {
	close(wp.jobQueue)
	wp.waitGroup.Wait()
}
