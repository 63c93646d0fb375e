package services

import (
	"context"
	"sync"

	"shakti-shield/pkg/logger"
)

// Job is a unit of background work. The context is never cancelled by the
// dispatcher; jobs bound their own run time.
type Job func(ctx context.Context)

// Dispatcher is a fixed pool of workers fed by a bounded queue. Shutdown
// stops intake and waits for queued jobs to finish.
type Dispatcher struct {
	jobs   chan Job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *logger.Logger
}

func NewDispatcher(workers, queueSize int, log *logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.NewNop()
	}

	d := &Dispatcher{
		jobs:   make(chan Job, queueSize),
		logger: log,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	return d
}

// Submit enqueues job without blocking. It fails with ErrDispatcherBusy when
// the queue is full and ErrDispatcherClosed after Shutdown.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- job:
		d.logger.WithField("queued", len(d.jobs)).Debug("Job queued")
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for job := range d.jobs {
		d.run(id, job)
	}
}

func (d *Dispatcher) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(map[string]interface{}{
				"worker": id,
				"panic":  r,
			}).Error("Dispatcher job panicked")
		}
	}()

	job(context.Background())
}
