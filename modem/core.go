package modem

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Metrics is the counters surface the core reports through (§4.10). See
// package metrics for the Prometheus-backed implementation.
type Metrics interface {
	Iteration()

	// TxCompleted records one finished transmission block (the modulator
	// committed sendId past the current payload width).
	TxCompleted()

	// RxConfirmed records one payload actually appended to ReceivedData
	// after surviving ConfirmFrames consecutive matching reads.
	RxConfirmed()

	// RxChecksumFail records a non-ECC frame that failed checksum
	// validation.
	RxChecksumFail()

	// RxECCRepaired records an ECC-enabled frame whose codeword decoded
	// successfully.
	RxECCRepaired()

	// RxECCFailed records an ECC-enabled frame whose codeword failed to
	// decode.
	RxECCFailed()

	// CaptureOverflow records a capture back-pressure flush (§7 (iv)).
	CaptureOverflow()
}

type noopMetrics struct{}

func (noopMetrics) Iteration()       {}
func (noopMetrics) TxCompleted()     {}
func (noopMetrics) RxConfirmed()     {}
func (noopMetrics) RxChecksumFail()  {}
func (noopMetrics) RxECCRepaired()   {}
func (noopMetrics) RxECCFailed()     {}
func (noopMetrics) CaptureOverflow() {}

// Core ties together a Profile, its derived state, the modulator and
// demodulator, and the external collaborators (audio device, ECC codec,
// logger, metrics) into the worker loop described in §6. The zero Core is
// not usable; construct one with NewCore.
type Core struct {
	Profile Profile
	Bank    *WaveformBank
	Ring    *RingState
	Tx      *TxState
	Rx      *RxState

	Codec   ECCCodec
	Audio   AudioDevice
	Logger  Logger
	Metrics Metrics
	Queue   *InputQueue

	nIterations uint64
	initialized bool

	modulator   Modulator
	demodulator Demodulator

	mu        sync.Mutex
	published StateData

	nowFunc func() time.Time

	// flushBuf is the scratch buffer Run reads stale samples into when
	// draining a back-pressured capture queue (§6, §7 (iv)).
	flushBuf []float32
}

// primeSendID is the sendId threshold below which playback stays paused at
// the start of a transmission, priming the sender before unmuting real
// output (§6).
const primeSendID = 4

// captureOverflowFrames is the multiple of FrameSize at which a queued
// capture backlog triggers a flush-and-catch-up (§6, §8 boundary behavior).
const captureOverflowFrames = 32

// NewCore allocates an idle Core. Call Init (directly, or by pushing an
// EventInit onto Queue and running Run) before the worker loop does
// anything useful.
func NewCore(audio AudioDevice, logger Logger, codec ECCCodec, metrics Metrics) *Core {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Core{
		Audio:   audio,
		Logger:  logger,
		Codec:   codec,
		Metrics: metrics,
		Queue:   NewInputQueue(),
		nowFunc: time.Now,
	}
}

func (c *Core) now() time.Time { return c.nowFunc() }

// Init installs a profile, validating it first, then rebuilds the waveform
// bank and all ring/tx/rx state from scratch (§4.1, §4.2).
func (c *Core) Init(p Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("modem: invalid profile: %w", err)
	}

	c.Profile = p
	c.Bank = &WaveformBank{}
	c.Bank.Rebuild(p)
	c.Ring = NewRingState(p)
	c.Tx = NewTxState(p)
	c.Rx = NewRxState()
	c.flushBuf = make([]float32, p.FrameSize)
	c.nIterations = 0
	c.initialized = true

	c.mu.Lock()
	c.publishLocked()
	c.mu.Unlock()
	return nil
}

// DataOn begins continuous transmission of the profile's InitialPattern.
func (c *Core) DataOn() {
	if !c.initialized {
		return
	}
	pattern := c.Profile.InitialPattern
	if len(pattern) == 0 {
		pattern = []byte{0xAA}
	}
	payloadWidth := c.Profile.PayloadWidth()
	if payloadWidth <= 0 {
		payloadWidth = 1
	}
	c.Tx.SendData = repeatPattern(pattern, payloadWidth)
	c.Tx.SendID = 0
	c.Tx.DataID++
	c.Tx.FrameID = 0
	c.Tx.CurTxSubFrameID = 0
	c.Tx.NRampFrames = c.Profile.RampBeginSubFrames
	c.Tx.WaitForNewFrame = false
	c.Tx.SendingData = true
	c.Tx.SendingDataBuffer = true
	c.Tx.Continuous = true
}

// DataOff stops transmission the same way the end of a payload does: from
// the next Step on the modulator mixes no tones and its output is silent.
// A transmission cut off mid-Tx gets no ramp-down tail.
func (c *Core) DataOff() {
	if !c.initialized {
		return
	}
	c.Tx.SendingData = false
	c.Tx.SendingDataBuffer = false
	c.Tx.NRampFrames = c.Profile.RampEndSubFrames
}

// DataSend installs data as the payload to transmit, replacing whatever
// continuous pattern or prior payload was in flight. A trailing zero byte
// terminates the buffer per §3's "null-terminated payload buffer" note.
func (c *Core) DataSend(data []byte) {
	if !c.initialized {
		return
	}
	payloadWidth := c.Profile.PayloadWidth()
	if payloadWidth <= 0 {
		payloadWidth = 1
	}
	blocks := (len(data) + payloadWidth - 1) / payloadWidth
	buf := make([]byte, (blocks+1)*payloadWidth) // trailing all-zero block terminates transmission
	copy(buf, data)

	c.Tx.SendData = buf
	c.Tx.SendID = 0
	c.Tx.DataID++
	c.Tx.FrameID = 0
	c.Tx.CurTxSubFrameID = 0
	c.Tx.NRampFrames = c.Profile.RampBeginSubFrames
	c.Tx.WaitForNewFrame = false
	c.Tx.SendingData = true
	c.Tx.SendingDataBuffer = true
	c.Tx.Continuous = false
}

// DataClear resets the accumulated received-message buffer.
func (c *Core) DataClear() {
	if !c.initialized {
		return
	}
	c.Rx.ReceivedData = c.Rx.ReceivedData[:0]
	c.Rx.ReceivedID = 0
	c.Rx.ReceivedDataLast = nil
}

// Run drives the worker loop until ctx is cancelled or an EventTerminate is
// processed. Each iteration drains pending events, captures one sub-frame
// of audio, advances the modulator and demodulator, plays the result back,
// and republishes the state snapshot (§6).
func (c *Core) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Queue.Close()
		case <-stop:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		terminate := c.drainEvents()
		if terminate {
			return nil
		}
		if !c.initialized {
			ev, ok := c.Queue.Pop()
			if !ok {
				return nil
			}
			if c.applyEvent(ev) {
				return nil
			}
			continue
		}

		p := c.Profile
		m := p.SubFrameSamples()
		s := int(c.nIterations % kSubFrames)
		lo, hi := s*m, (s+1)*m

		if n := c.Audio.QueuedCaptureSamples(); n > captureOverflowFrames*p.FrameSize {
			c.Metrics.CaptureOverflow()
			for c.Audio.QueuedCaptureSamples() > p.FrameSize {
				if err := c.Audio.Capture(ctx, c.flushBuf); err != nil {
					c.Logger.Errorf("modem: capture flush: %v", err)
					break
				}
			}
		}

		if err := c.Audio.Capture(ctx, c.Ring.SampleAmplitude[lo:hi]); err != nil {
			c.Logger.Errorf("modem: capture: %v", err)
			continue
		}

		c.modulator.Step(c)
		c.demodulator.Step(c)

		c.Audio.SetPaused(c.Tx.SendingDataBuffer && c.Tx.SendID < primeSendID)

		if err := c.Audio.Playback(ctx, c.Ring.OutputBlock[lo:hi]); err != nil {
			c.Logger.Errorf("modem: playback: %v", err)
			continue
		}

		c.Metrics.Iteration()
		c.nIterations++

		c.mu.Lock()
		c.publishLocked()
		c.mu.Unlock()
	}
}

// drainEvents applies every event currently queued without blocking,
// reporting whether an EventTerminate was among them.
func (c *Core) drainEvents() bool {
	for {
		ev, ok := c.Queue.TryPop()
		if !ok {
			return false
		}
		if c.applyEvent(ev) {
			return true
		}
	}
}

func (c *Core) applyEvent(ev Event) (terminate bool) {
	switch ev.Kind {
	case EventInit:
		if err := c.Init(ev.Profile); err != nil {
			c.Logger.Errorf("modem: init: %v", err)
		}
	case EventDataOn:
		c.DataOn()
	case EventDataOff:
		c.DataOff()
	case EventDataSend:
		c.DataSend(ev.Data)
	case EventDataClear:
		c.DataClear()
	case EventTerminate:
		return true
	}
	return false
}

// Snapshot returns a deep copy of the most recently published state, safe
// for the UI goroutine to read without further synchronization (§6).
func (c *Core) Snapshot() StateData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published.clone()
}

// publishLocked must be called with c.mu held. It builds a fresh StateData
// from current Ring/Rx/Tx state and replaces c.published wholesale, never
// mutating the previous snapshot in place.
func (c *Core) publishLocked() {
	next := StateData{
		Spectrum:           append([]float64(nil), c.Ring.SampleSpectrum...),
		AverageSpectrum:    append([]float64(nil), c.Ring.HistorySpectrumAverage...),
		SampleAmplitude:    append([]float32(nil), c.Ring.SampleAmplitude...),
		ReceivedData:       append([]byte(nil), c.Rx.ReceivedData...),
		SendingData:        c.Tx.SendingData,
		SendingDataBuffer:  c.Tx.SendingDataBuffer,
		ReceivingData:      c.Rx.ReceivingData,
		NIterations:        c.nIterations,
		SamplesPerFrame:    c.Profile.FrameSize,
		SamplesPerSubFrame: c.Profile.SubFrameSamples(),
	}
	c.published = next
}

func repeatPattern(pattern []byte, n int) []byte {
	if n <= 0 || len(pattern) == 0 {
		return append([]byte(nil), pattern...)
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}
