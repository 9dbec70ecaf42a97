package modem

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doismellburning/acoustimodem/audiohost"
)

type testLogger struct{}

func (testLogger) Debugf(string, ...any) {}
func (testLogger) Infof(string, ...any)  {}
func (testLogger) Warnf(string, ...any)  {}
func (testLogger) Errorf(string, ...any) {}

// TestCoreRoundTripDataSend drives a full Core over a loopback "acoustic
// path" and checks that a short payload sent once is eventually decoded by
// the same Core's own demodulator (§4.3/§4.4's modulator and demodulator
// operating on a shared waveform bank are expected to be exact inverses of
// one another once a transmission is confirmed across ConfirmFrames
// consecutive sub-frames).
func TestCoreRoundTripDataSend(t *testing.T) {
	profile := ProfileBW11LowFreq()

	device := audiohost.NewLoopback(2 * profile.FrameSize)
	core := NewCore(device, testLogger{}, nil, nil)
	require.NoError(t, core.Init(profile))

	core.DataSend([]byte("HI"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- core.Run(ctx) }()

	deadline := time.After(9 * time.Second)
	for {
		snap := core.Snapshot()
		if bytes.Contains(snap.ReceivedData, []byte("HI")) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("payload not received within deadline; last snapshot: %q", snap.ReceivedData)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-runDone
}

func TestCoreInitRejectsInvalidProfile(t *testing.T) {
	p := ProfileBW11LowFreq()
	p.DataBitsPerTx = 0

	core := NewCore(audiohost.NewLoopback(0), testLogger{}, nil, nil)
	require.Error(t, core.Init(p))
}

func TestCoreEventsNoopBeforeInit(t *testing.T) {
	core := NewCore(audiohost.NewLoopback(0), testLogger{}, nil, nil)
	core.DataOn()
	core.DataOff()
	core.DataSend([]byte("x"))
	core.DataClear()
}

// TestCoreCapturePrimesPlaybackBehindSendID checks that a fresh
// transmission starts with SendID below primeSendID (the priming window
// §6 holds output silent across) and that playback has unpaused again by
// the time the core has run well past it.
func TestCoreCapturePrimesPlaybackBehindSendID(t *testing.T) {
	profile := ProfileBW11LowFreq()
	device := audiohost.NewLoopback(0)
	core := NewCore(device, testLogger{}, nil, nil)
	require.NoError(t, core.Init(profile))

	core.DataOn()
	require.Less(t, core.Tx.SendID, primeSendID, "a fresh DataOn transmission starts inside the priming window")

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- core.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for core.Snapshot().NIterations < 50 {
		select {
		case <-deadline:
			cancel()
			<-runDone
			t.Fatal("core never progressed past the priming window")
		case <-time.After(time.Millisecond):
		}
	}
	require.False(t, device.Paused(), "playback should have unpaused once SendID cleared primeSendID")

	cancel()
	<-runDone
}

// TestCoreCaptureOverflowFlushesAndRecovers checks the spec.md §7/§8
// boundary behavior: once the audio device reports more than
// captureOverflowFrames*FrameSize queued capture samples, Run flushes the
// backlog (recording one CaptureOverflow) rather than diverging, and
// settles back to normal operation afterward.
func TestCoreCaptureOverflowFlushesAndRecovers(t *testing.T) {
	profile := ProfileBW11LowFreq()
	device := audiohost.NewLoopback(0)
	core := NewCore(device, testLogger{}, nil, nil)
	require.NoError(t, core.Init(profile))

	device.InflateQueuedCaptureSamples(captureOverflowFrames*profile.FrameSize + 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- core.Run(ctx) }()

	deadline := time.After(4 * time.Second)
	for device.QueuedCaptureSamples() > profile.FrameSize {
		select {
		case <-deadline:
			cancel()
			<-runDone
			t.Fatal("capture backlog never drained")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	require.ErrorIs(t, <-runDone, context.Canceled)
}
