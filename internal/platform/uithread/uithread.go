// Package uithread serializes all native-view and map-engine mutation onto a
// single dispatcher goroutine, the bridge's equivalent of the platform UI
// thread. Bridge methods run on script-engine threads and must cross here
// before touching any view state.
package uithread

import (
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by Call when the UI thread does not complete the
// request within the deadline.
var ErrTimeout = errors.New("uithread: synchronous call timed out")

// ErrStopped is returned when the loop has been stopped.
var ErrStopped = errors.New("uithread: loop stopped")

// Loop is the UI-thread dispatcher.
type Loop struct {
	tasks    chan func()
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLoop creates and starts a dispatcher.
func NewLoop() *Loop {
	l := &Loop{
		tasks: make(chan func(), 256),
		quit:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.quit:
			// Drain what was already queued so Stop keeps FIFO completeness
			// for posted work.
			for {
				select {
				case task := <-l.tasks:
					task()
				default:
					return
				}
			}
		case task := <-l.tasks:
			task()
		}
	}
}

// Post schedules fn on the UI thread. Posted functions execute in FIFO
// order. Posting after Stop drops the task.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.quit:
	case l.tasks <- fn:
	}
}

// Stop terminates the dispatcher after draining queued tasks.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
	l.wg.Wait()
}

// Call runs fn on the UI thread and blocks the caller until it completes or
// the timeout elapses. The zero value of T is returned with ErrTimeout when
// the deadline passes; the computation itself is not cancelled, its late
// result is discarded.
func Call[T any](l *Loop, timeout time.Duration, fn func() T) (T, error) {
	done := make(chan T, 1)
	l.Post(func() {
		done <- fn()
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case v := <-done:
		return v, nil
	case <-timer.C:
		return zero, ErrTimeout
	case <-l.quit:
		return zero, ErrStopped
	}
}
