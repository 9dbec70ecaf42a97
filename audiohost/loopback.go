// Package audiohost implements modem.AudioDevice against real and
// in-process audio backends. Loopback needs no hardware and is the default
// for tests and for exercising the core without a sound card; the
// portaudio-tagged build adds a real device backed by
// github.com/gordonklaus/portaudio.
package audiohost

import (
	"context"
	"sync"
)

// Loopback models a fixed acoustic delay line: every sample Playback
// writes becomes available to Capture exactly Delay samples later. Unlike
// a real duplex audio stream, it never blocks — a Capture call that asks
// for samples older than anything written yet gets silence, matching the
// startup transient of a real microphone before anything has reached it.
type Loopback struct {
	mu     sync.Mutex
	ring   []float32
	pos    int // total samples written, modulo nothing (used mod len(ring) to index)
	delay  int
	queued int // samples Playback has produced that Capture hasn't drained yet
	paused bool
	closed bool
}

// NewLoopback allocates a Loopback with the given delay, in samples.
func NewLoopback(delay int) *Loopback {
	if delay < 0 {
		delay = 0
	}
	size := delay + 1<<16
	return &Loopback{
		ring:  make([]float32, size),
		delay: delay,
	}
}

// Playback appends buf to the delay line.
func (l *Loopback) Playback(ctx context.Context, buf []float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errClosed
	}
	for _, v := range buf {
		if l.paused {
			v = 0
		}
		l.ring[l.pos%len(l.ring)] = v
		l.pos++
	}
	l.queued += len(buf)
	return nil
}

// Capture returns the len(buf) samples ending Delay samples behind the
// most recent Playback call; positions older than anything written so far
// read as silence.
func (l *Loopback) Capture(ctx context.Context, buf []float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errClosed
	}
	start := l.pos - l.delay - len(buf)
	for i := range buf {
		p := start + i
		if p < 0 {
			buf[i] = 0
			continue
		}
		buf[i] = l.ring[p%len(l.ring)]
	}
	l.queued -= len(buf)
	if l.queued < 0 {
		l.queued = 0
	}
	return nil
}

// QueuedCaptureSamples reports how many produced samples Capture hasn't
// drained yet: it grows by len(buf) on every Playback and shrinks by
// len(buf) on every Capture, floored at zero. A caller that falls behind
// (calling Capture less often, or with smaller buffers, than it calls
// Playback) sees this grow without needing to inspect the ring directly.
func (l *Loopback) QueuedCaptureSamples() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queued
}

// InflateQueuedCaptureSamples adds n to the reported backlog without
// touching the ring itself, simulating a capture consumer that has fallen
// behind. Exists for tests exercising back-pressure handling.
func (l *Loopback) InflateQueuedCaptureSamples(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queued += n
}

// SetPaused mutes Playback's input without affecting Capture's cadence.
func (l *Loopback) SetPaused(paused bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = paused
}

// Paused reports the last value passed to SetPaused. Exists for tests
// observing priming behavior from outside the core.
func (l *Loopback) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Close marks the device closed; further Capture/Playback calls error.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
