//go:build portaudio

package audiohost

import (
	"context"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice drives a real input/output stream opened against the
// system's default devices. It is only compiled in with -tags portaudio,
// since portaudio itself links against a system shared library the build
// environment may not have installed.
type PortAudioDevice struct {
	stream *portaudio.Stream
	in     []float32
	out    []float32
	paused bool
}

// OpenDefault opens the default duplex stream at sampleRate, framesPerBuffer
// samples per Read/Write call, one channel in each direction.
func OpenDefault(sampleRate float64, framesPerBuffer int) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	d := &PortAudioDevice{
		in:  make([]float32, framesPerBuffer),
		out: make([]float32, framesPerBuffer),
	}
	stream, err := portaudio.OpenDefaultStream(1, 1, sampleRate, framesPerBuffer, d.in, d.out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, err
	}
	d.stream = stream
	return d, nil
}

// Capture reads exactly len(buf) samples from the input device, blocking
// until the hardware has delivered them.
func (d *PortAudioDevice) Capture(ctx context.Context, buf []float32) error {
	for n := 0; n < len(buf); n += len(d.in) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.stream.Read(); err != nil {
			return err
		}
		copy(buf[n:], d.in)
	}
	return nil
}

// Playback writes exactly len(buf) samples to the output device, silencing
// them first if the device is paused.
func (d *PortAudioDevice) Playback(ctx context.Context, buf []float32) error {
	for n := 0; n < len(buf); n += len(d.out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		copy(d.out, buf[n:])
		if d.paused {
			for i := range d.out {
				d.out[i] = 0
			}
		}
		if err := d.stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// QueuedCaptureSamples always reports 0: portaudio's blocking Read/Write
// API does not expose the hardware's internal buffer depth.
func (d *PortAudioDevice) QueuedCaptureSamples() int { return 0 }

// SetPaused mutes Playback's output without stopping the stream.
func (d *PortAudioDevice) SetPaused(paused bool) { d.paused = paused }

// Close stops the stream and releases the portaudio library.
func (d *PortAudioDevice) Close() error {
	err := d.stream.Close()
	if tErr := portaudio.Terminate(); err == nil {
		err = tErr
	}
	return err
}
