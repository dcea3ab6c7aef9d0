package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_FlushRunsNestedInOrder(t *testing.T) {
	var m Manual
	var order []int
	m.After(time.Second, func() {
		order = append(order, 1)
		m.After(0, func() { order = append(order, 3) })
	})
	m.After(0, func() { order = append(order, 2) })

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 3, m.Flush())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, m.Len())
}

func TestGuard(t *testing.T) {
	alive := true
	calls := 0
	fn := Guard(func() bool { return alive }, func() { calls++ })

	fn()
	alive = false
	fn()
	assert.Equal(t, 1, calls)

	Guard(nil, func() { calls++ })()
	assert.Equal(t, 2, calls)
}

func TestTimer_Wrap(t *testing.T) {
	var wrapped atomic.Bool
	done := make(chan struct{})
	tm := Timer{Wrap: func(fn func()) {
		wrapped.Store(true)
		fn()
	}}
	tm.After(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "timer never fired")
	}
	assert.True(t, wrapped.Load())
}
