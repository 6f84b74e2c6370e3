package worker

import (
	"context"
	"sync"
	"time"

	"accountmarket/pkg/logger"
)

// Task is one side effect to run outside the request path.
type Task struct {
	Name    string
	Run     func(ctx context.Context) error
	attempt int
}

type Config struct {
	Workers    int
	Buffer     int
	MaxRetries int
	Backoff    time.Duration
	// OnFailure is called once a task has exhausted its retries.
	OnFailure func(name string, err error)
}

// Queue runs tasks on a fixed pool of goroutines, retrying failures with
// linear backoff. A task failure never reaches the caller that enqueued it.
type Queue struct {
	cfg   Config
	tasks chan Task

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	pending sync.WaitGroup
}

func NewQueue(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Queue{
		cfg:   cfg,
		tasks: make(chan Task, cfg.Buffer),
	}
}

func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.loop(ctx)
	}
	logger.Info("Side effect queue started with %d workers", q.cfg.Workers)
}

// Enqueue schedules fn. It reports false when the queue is closed or full.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	return q.push(Task{Name: name, Run: fn})
}

func (q *Queue) push(task Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		logger.Warn("Side effect queue closed, dropping task %s", task.Name)
		return false
	}

	q.pending.Add(1)
	select {
	case q.tasks <- task:
		return true
	default:
		q.pending.Done()
		logger.Warn("Side effect queue full, dropping task %s", task.Name)
		return false
	}
}

func (q *Queue) loop(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.run(ctx, task)
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) run(ctx context.Context, task Task) {
	defer q.pending.Done()

	for {
		err := task.Run(ctx)
		if err == nil {
			return
		}

		task.attempt++
		if task.attempt > q.cfg.MaxRetries {
			logger.Error("Side effect %s failed after %d attempts: %v", task.Name, task.attempt, err)
			if q.cfg.OnFailure != nil {
				q.cfg.OnFailure(task.Name, err)
			}
			return
		}

		logger.Warn("Side effect %s failed (attempt %d), retrying: %v", task.Name, task.attempt, err)
		select {
		case <-time.After(q.cfg.Backoff * time.Duration(task.attempt)):
		case <-ctx.Done():
			return
		}
	}
}

// Drain waits until every accepted task has finished.
func (q *Queue) Drain() {
	q.pending.Wait()
}

// Stop refuses new tasks, finishes the accepted ones and stops the workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.pending.Wait()
	close(q.tasks)
	q.wg.Wait()
}
