// Package coop implements the cooperative wait adapter for execution models
// without blocking syscalls. A Scheduler owns one logical thread of control:
// tasks run one at a time, suspend only at explicit Yield points, and are
// resumed round-robin from a FIFO run queue. Readiness waits become
// poll-then-yield-then-repoll loops with a fixed short delay, bounded only
// by an outright socket error.
//
// Operations on one connection are never reordered relative to each other:
// a connection is driven by a single task, and a task's steps before and
// after a Yield stay in program order.
package coop

import (
	"runtime"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// DefaultPollInterval is the fixed delay between readiness re-polls. Long
// waits degrade into repeated short sleeps rather than blocking the host.
const DefaultPollInterval = 2 * time.Millisecond

// Task is one cooperative strand of execution. Exactly one Task runs at any
// moment; a Task gives up control only by calling Yield.
type Task struct {
	fn      func(*Task)
	resume  chan struct{}
	parked  chan struct{}
	started bool
	done    bool
}

// Yield suspends the task and hands control back to the scheduler. The task
// resumes on a later scheduler pass, after every other runnable task has
// had its turn.
func (t *Task) Yield() {
	t.parked <- struct{}{}
	<-t.resume
}

// step runs the task until its next suspension point and reports whether it
// has finished.
func (t *Task) step() bool {
	if !t.started {
		t.started = true
		go func() {
			t.fn(t)
			t.done = true
			t.parked <- struct{}{}
		}()
	} else {
		t.resume <- struct{}{}
	}
	<-t.parked
	return t.done
}

// Scheduler drives tasks over a single logical thread of control.
type Scheduler struct {
	mu   sync.Mutex
	runq *queue.Queue
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{runq: queue.New()}
}

// Spawn enqueues fn as a new task. fn does not start running until Run
// reaches it.
func (s *Scheduler) Spawn(fn func(*Task)) *Task {
	t := &Task{
		fn:     fn,
		resume: make(chan struct{}),
		parked: make(chan struct{}),
	}
	s.mu.Lock()
	s.runq.Add(t)
	s.mu.Unlock()
	return t
}

// Run executes tasks round-robin until all have finished. Control changes
// hands only at Yield points; no two tasks ever run concurrently.
func (s *Scheduler) Run() {
	for {
		s.mu.Lock()
		if s.runq.Length() == 0 {
			s.mu.Unlock()
			return
		}
		t := s.runq.Remove().(*Task)
		s.mu.Unlock()

		if !t.step() {
			s.mu.Lock()
			s.runq.Add(t)
			s.mu.Unlock()
		}
	}
}

// Pending reports how many tasks are waiting for a turn.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runq.Length()
}

// PollFunc answers whether the descriptor is ready for reading or writing
// without blocking.
type PollFunc func(fd uintptr, write bool) (ready bool, err error)

// Waiter converts "wait for readiness" into a poll-yield-repoll loop. It
// implements the transport layer's readiness-wait contract on hosts whose
// scheduler is cooperative.
type Waiter struct {
	poll     PollFunc
	yield    func()
	interval time.Duration
}

// Option tunes a Waiter.
type Option func(*Waiter)

// WithYield replaces the suspension hook, typically with (*Task).Yield so
// the wait parks the current cooperative task.
func WithYield(yield func()) Option {
	return func(w *Waiter) { w.yield = yield }
}

// WithInterval replaces the fixed re-poll delay.
func WithInterval(d time.Duration) Option {
	return func(w *Waiter) { w.interval = d }
}

// NewWaiter builds a Waiter around a non-blocking poll function. Without
// options it yields to the Go scheduler between polls.
func NewWaiter(poll PollFunc, opts ...Option) *Waiter {
	w := &Waiter{
		poll:     poll,
		yield:    runtime.Gosched,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WaitReadable suspends until the descriptor is readable.
func (w *Waiter) WaitReadable(fd uintptr) error { return w.wait(fd, false) }

// WaitWritable suspends until the descriptor is writable.
func (w *Waiter) WaitWritable(fd uintptr) error { return w.wait(fd, true) }

// wait re-polls until ready. A slow peer shows up as latency, never as an
// error; only an outright socket failure ends the loop early.
func (w *Waiter) wait(fd uintptr, write bool) error {
	for {
		ready, err := w.poll(fd, write)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		w.yield()
		if w.interval > 0 {
			time.Sleep(w.interval)
		}
	}
}
