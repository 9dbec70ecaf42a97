package modem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputQueuePushPop(t *testing.T) {
	q := NewInputQueue()
	require.True(t, q.Push(Event{Kind: EventDataOn}))

	ev, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, EventDataOn, ev.Kind)
}

func TestInputQueueDropsNewestWhenFull(t *testing.T) {
	q := NewInputQueue()
	for i := 0; i < inputQueueCapacity; i++ {
		require.True(t, q.Push(Event{Kind: EventDataOn}))
	}
	assert.False(t, q.Push(Event{Kind: EventDataOff}))

	ev, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, EventDataOn, ev.Kind, "a dropped push must not displace an already-queued event")
}

func TestInputQueueTryPopEmpty(t *testing.T) {
	q := NewInputQueue()
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestInputQueueCloseWakesPop(t *testing.T) {
	q := NewInputQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up after Close")
	}
}
