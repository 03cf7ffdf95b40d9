// Package parallel provides the bounded worker pool used for shared-memory
// work that is not on the sampling hot path, such as coverage counting.
package parallel

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dd0wney/cluso-imm/pkg/logging"
)

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// ErrPoolClosed is returned by Run after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// WorkerPool manages a fixed set of worker goroutines.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // guards taskQueue against close during send
	closed    bool
	logger    logging.Logger
}

// NewWorkerPool starts a pool with the given number of workers; values below
// one start a single worker. logger may be nil.
func NewWorkerPool(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
		logger:    logging.OrNop(logger).With(logging.Component("worker_pool")),
	}

	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		task()
	}
}

// Submit adds a task to the pool. It returns false if the pool is closed.
// A panicking task is logged and does not take down its worker.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	wp.taskQueue <- func() {
		defer func() {
			if r := recover(); r != nil {
				wp.logger.Error("task panicked", logging.Any("panic", r))
			}
		}()
		task()
	}
	return true
}

// Run executes fn once per range and waits for all of them. A panic inside fn
// is returned as an error after every range has finished.
func (wp *WorkerPool) Run(ranges []Range, fn func(worker int, r Range)) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, r := range ranges {
		i, r := i, r
		wg.Add(1)
		ok := wp.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("range %d [%d, %d) panicked: %v", i, r.Start, r.End, p)
					}
					mu.Unlock()
				}
			}()
			fn(i, r)
		})
		if !ok {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = ErrPoolClosed
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return firstErr
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
