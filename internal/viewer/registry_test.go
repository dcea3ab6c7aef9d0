package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/service"
	"github.com/joeblew999/plat-aoi/internal/testutil"
)

func TestRegistry_Open(t *testing.T) {
	r := NewRegistry(newEnv().cfg, 0)

	a := r.Open("")
	require.NotEmpty(t, a.ID)
	assert.Same(t, a, r.Open(a.ID))

	got, ok := r.Lookup(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Reap(t *testing.T) {
	e := newEnv()
	r := NewRegistry(e.cfg, time.Minute)

	idle := r.Open("idle")
	streaming := r.Open("streaming")
	streaming.Attach()
	active := r.Open("active")

	e.clock.Advance(50 * time.Second)
	active.Do(func() {})

	assert.Zero(t, r.Reap(e.clock.Now()))
	e.clock.Advance(20 * time.Second)

	assert.Equal(t, 1, r.Reap(e.clock.Now()))
	assert.False(t, idle.Alive())
	assert.True(t, streaming.Alive())
	assert.True(t, active.Alive())
	_, ok := r.Lookup("idle")
	assert.False(t, ok)

	streaming.Detach()
	e.clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, r.Reap(e.clock.Now()))
	assert.Zero(t, r.Len())
}

func TestRegistry_Broadcast(t *testing.T) {
	e := newEnv()
	r := NewRegistry(e.cfg, 0)
	a, b := r.Open("a"), r.Open("b")

	e.store.Save(aoi.New("", testutil.Square(6.9, 50.9, 0.05), t0))
	assert.Empty(t, a.Flow.AOIs())

	r.Broadcast()
	assert.Len(t, a.Flow.AOIs(), 1)
	assert.Len(t, b.Flow.AOIs(), 1)
}

func TestRegistry_RunRefreshesOnBusEvent(t *testing.T) {
	e := newEnv()
	r := NewRegistry(e.cfg, 0)
	v := r.Open("a")
	bus := service.NewEventBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, bus)
		close(done)
	}()
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, time.Millisecond)

	e.store.Save(aoi.New("", testutil.Square(6.9, 50.9, 0.05), t0))
	bus.Publish(service.Event{Resource: service.ResourceAOIs, Action: service.ActionSaved})

	require.Eventually(t, func() bool { return len(v.Snapshot().List) == 1 }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Zero(t, bus.Subscribers())
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(newEnv().cfg, 0)
	v := r.Open("a")
	r.Close()
	assert.False(t, v.Alive())
	assert.Zero(t, r.Len())
}
