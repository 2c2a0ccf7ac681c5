// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"sales-import/internal/domain"
)

// Task is one unit of background work. The context is cancelled when the pool's
// parent context ends.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines fed by a bounded queue.
// Tasks still queued when the pool stops are run once with a cancelled context so
// they can release what they hold without doing their work.
type Pool struct {
	wg       sync.WaitGroup
	jobs     chan Task
	quit     chan struct{}
	stopOnce sync.Once
	n        int
	log      zerolog.Logger
}

func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	return &Pool{
		jobs: make(chan Task, queueSize),
		quit: make(chan struct{}),
		n:    workers,
		log:  logger.With().Str("component", "worker-pool").Logger(),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				// a closed quit wins over a ready task
				select {
				case <-p.quit:
					return
				default:
				}
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := p.run(ctx, task); err != nil {
						p.log.Error().Err(err).Int("worker", id).Msg("task failed")
					}
				}
			}
		}(i)
	}
	p.log.Info().Int("workers", p.n).Int("queue", cap(p.jobs)).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task(ctx)
}

// Stop lets running tasks finish and waits for the workers, or gives up when ctx ends.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.quit) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if dropped := p.discardQueued(); dropped > 0 {
			p.log.Warn().Int("dropped", dropped).Msg("worker pool stopped with queued tasks")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) discardQueued() int {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := 0
	for {
		select {
		case task := <-p.jobs:
			if task == nil {
				continue
			}
			n++
			if err := p.run(ctx, task); err != nil && !errors.Is(err, context.Canceled) {
				p.log.Error().Err(err).Msg("discarded task failed")
			}
		default:
			return n
		}
	}
}

// Submit enqueues without blocking and reports domain.ErrQueueFull when saturated.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case <-p.quit:
		return fmt.Errorf("%w: pool stopped", domain.ErrQueueFull)
	default:
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Pending reports how many tasks are waiting for a worker.
func (p *Pool) Pending() int { return len(p.jobs) }
