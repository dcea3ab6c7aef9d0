// Package sched schedules fire-and-forget UI callbacks.
//
// There is no cancellation. Callbacks that touch state owned by something
// that can be torn down are wrapped with Guard, which drops the call once
// the owner reports it is gone.
package sched

import (
	"sync"
	"time"
)

// Scheduler runs fn once after d.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Timer schedules on time.AfterFunc. Wrap lets the owner run callbacks
// inside its own serialization, e.g. a session lock.
type Timer struct {
	Wrap func(fn func())
}

func (t Timer) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		if t.Wrap != nil {
			t.Wrap(fn)
			return
		}
		fn()
	})
}

// Guard returns fn gated on alive.
func Guard(alive func() bool, fn func()) func() {
	return func() {
		if alive != nil && !alive() {
			return
		}
		fn()
	}
}

// Manual queues callbacks until Flush. Tests use it to step time.
type Manual struct {
	mu      sync.Mutex
	pending []Pending
}

// Pending is a queued callback.
type Pending struct {
	Delay time.Duration
	Fn    func()
}

func (m *Manual) After(d time.Duration, fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, Pending{Delay: d, Fn: fn})
	m.mu.Unlock()
}

// Len reports queued callbacks.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush runs everything queued so far, including callbacks queued while
// flushing, in order.
func (m *Manual) Flush() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return n
		}
		p := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		p.Fn()
		n++
	}
}
