package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_DrainAndCap(t *testing.T) {
	q := NewQueue(2)
	q.Notify(Info, "one")
	q.Notify(Warning, "two")
	q.Notify(Success, "three")

	items := q.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, "two", items[0].Message)
	assert.Equal(t, Success, items[1].Level)
	assert.False(t, items[1].At.IsZero())

	assert.Empty(t, q.Drain())
}

func TestRecorder_Last(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	r.Notify(Error, "boom")
	n, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, Notification{Level: Error, Message: "boom"}, n)
}
