// Package workers provides the bounded pool that executes background
// downloads (proxied images, marker icons) off the request and UI threads.
package workers

import (
	"context"
	"sync"
)

// Task is one unit of background work.
type Task struct {
	Ctx  context.Context
	Work func(ctx context.Context)
}

// Pool runs tasks on a fixed set of worker goroutines with an unbounded
// FIFO backlog.
type Pool struct {
	mu      sync.Mutex
	backlog []Task
	wake    chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewPool starts a pool with the given number of workers.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		wake: make(chan struct{}, workerCount),
		quit: make(chan struct{}),
	}
	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case <-p.wake:
			for {
				task, ok := p.next()
				if !ok {
					break
				}
				if task.Ctx != nil && task.Ctx.Err() != nil {
					continue
				}
				ctx := task.Ctx
				if ctx == nil {
					ctx = context.Background()
				}
				task.Work(ctx)
			}
		}
	}
}

func (p *Pool) next() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.backlog) == 0 {
		return Task{}, false
	}
	task := p.backlog[0]
	p.backlog = p.backlog[1:]
	return task, true
}

// Submit enqueues a task. Tasks whose context is already cancelled when a
// worker picks them up are skipped.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.quit:
		return
	default:
	}
	p.mu.Lock()
	p.backlog = append(p.backlog, task)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Shutdown stops the workers. Queued tasks are abandoned.
func (p *Pool) Shutdown() {
	close(p.quit)
	p.wg.Wait()
}
