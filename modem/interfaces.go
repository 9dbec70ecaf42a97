// Package modem implements the acoustic MFSK modem core: protocol profiles,
// the per-bit waveform bank, the modulator and demodulator, and the core
// loop that drives them against a blocking audio device while exchanging
// state with a UI goroutine through a bounded input queue and a triple
// buffer.
//
// The audio device, the Reed-Solomon codec, and the UI event source are
// external collaborators, consumed here only through the interfaces below.
package modem

import "context"

// AudioDevice is the blocking audio host the core drives. Capture and
// Playback each move exactly len(buf) samples; Capture blocks until that
// many samples are available. Implementations live in package audiohost.
type AudioDevice interface {
	Capture(ctx context.Context, buf []float32) error
	Playback(ctx context.Context, buf []float32) error

	// QueuedCaptureSamples reports how many capture samples are presently
	// buffered by the device and not yet returned by Capture.
	QueuedCaptureSamples() int

	// SetPaused holds playback silent (true) or resumes it (false). Used to
	// prime the sender before any audio reaches the speaker.
	SetPaused(paused bool)

	Close() error
}

// ECCCodec is the black-box Reed-Solomon collaborator: Encode turns k data
// bytes into n encoded bytes; Decode attempts to recover k data bytes from n
// received bytes, reporting whether the repair is trustworthy.
type ECCCodec interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, bool)
	N() int
	K() int
}

// Logger is the minimal structured-logging surface the core needs. See
// package corelog for the async implementation.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
