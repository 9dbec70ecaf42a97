package audiohost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackDelaysPlaybackIntoCapture(t *testing.T) {
	l := NewLoopback(4)

	require.NoError(t, l.Playback(context.Background(), []float32{1, 2, 3, 4}))

	buf := make([]float32, 4)
	require.NoError(t, l.Capture(context.Background(), buf))
	assert.Equal(t, []float32{0, 0, 0, 0}, buf, "nothing has cleared the delay yet")

	require.NoError(t, l.Playback(context.Background(), []float32{5, 6, 7, 8}))
	require.NoError(t, l.Capture(context.Background(), buf))
	assert.Equal(t, []float32{1, 2, 3, 4}, buf)
}

func TestLoopbackQueuedCaptureSamplesTracksBacklog(t *testing.T) {
	l := NewLoopback(0)
	buf := make([]float32, 8)

	assert.Equal(t, 0, l.QueuedCaptureSamples())

	require.NoError(t, l.Playback(context.Background(), buf))
	assert.Equal(t, 8, l.QueuedCaptureSamples())

	require.NoError(t, l.Capture(context.Background(), buf))
	assert.Equal(t, 0, l.QueuedCaptureSamples())

	l.InflateQueuedCaptureSamples(100)
	assert.Equal(t, 100, l.QueuedCaptureSamples())
	require.NoError(t, l.Capture(context.Background(), buf))
	assert.Equal(t, 92, l.QueuedCaptureSamples())
}

func TestLoopbackSetPausedSilencesPlayback(t *testing.T) {
	l := NewLoopback(0)
	assert.False(t, l.Paused())

	l.SetPaused(true)
	assert.True(t, l.Paused())

	require.NoError(t, l.Playback(context.Background(), []float32{1, 2, 3}))
	buf := make([]float32, 3)
	require.NoError(t, l.Capture(context.Background(), buf))
	assert.Equal(t, []float32{0, 0, 0}, buf, "paused playback writes silence into the delay line")
}

func TestLoopbackCloseRejectsFurtherIO(t *testing.T) {
	l := NewLoopback(0)
	require.NoError(t, l.Close())

	buf := make([]float32, 1)
	assert.Error(t, l.Capture(context.Background(), buf))
	assert.Error(t, l.Playback(context.Background(), buf))
}
