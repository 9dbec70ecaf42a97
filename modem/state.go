package modem

import "time"

// RingState holds the continuously-wrapped sample and spectrum buffers.
// None of these slices are ever resized after Init (§8 invariant); the
// sub-frame index s = nIterations mod kSubFrames selects the active window
// [s*M, (s+1)*M) within the length-N buffers.
type RingState struct {
	SampleAmplitude []float32 // length N, capture buffer
	SampleSpectrum  []float64 // length N/2, power spectrum

	HistorySpectrum        [][]float64 // kMaxSpectrumHistory x N/2
	HistorySpectrumAverage []float64   // length N/2, exponential mean
	HistoryHead            int

	OutputBlock    []float32 // length N, playback buffer
	OutputBlockTmp []float32 // length N, pre-ramp mix
}

// NewRingState allocates a RingState sized for the given profile.
func NewRingState(p Profile) *RingState {
	n := p.FrameSize
	half := n / 2
	r := &RingState{
		SampleAmplitude:        make([]float32, n),
		SampleSpectrum:         make([]float64, half),
		HistorySpectrumAverage: make([]float64, half),
		OutputBlock:            make([]float32, n),
		OutputBlockTmp:         make([]float32, n),
	}
	r.HistorySpectrum = make([][]float64, kMaxSpectrumHistory)
	for i := range r.HistorySpectrum {
		r.HistorySpectrum[i] = make([]float64, half)
	}
	return r
}

// TxState is the sender-side transmission state machine (§3 Transmission
// State).
type TxState struct {
	SendData []byte // null-terminated payload buffer
	SendID   int    // byte cursor into SendData
	DataID   int    // monotone activation counter, used for parity

	FrameID         int // sub-frames elapsed in current transmission
	CurTxSubFrameID int
	NRampFrames     int
	WaitForNewFrame bool

	SendingData       bool
	SendingDataBuffer bool
	Continuous        bool // true for DataOn's repeating-pattern mode

	Interp float64 // ramp envelope scalar in [0,1]

	DataBits []byte // unpacked LSB-first bits, one byte (0/1) per slot
	Checksum int
}

// RxState is the receiver-side confirmation/dedup state (§3 Reception
// State). These fields replace the ancestor project's function-static
// locals (§9 Design Note): they belong to the demodulator, not to hidden
// globals.
type RxState struct {
	ReceivedData []byte
	ReceivedID   int

	ReceivingData bool
	NNotReceiving int // consecutive sub-frames with no carrier detected

	LastChecksum     int
	LastParity       int
	NTimesReceived   int
	ReceivedDataLast []byte
	LastAppendTime   time.Time

	CurChecksum      int
	CurParity        int
	RequiredChecksum int
}

// NewTxState allocates transmission state sized for the given profile.
func NewTxState(p Profile) *TxState {
	return &TxState{
		DataBits: make([]byte, p.DataBitsPerTx),
	}
}

// NewRxState allocates reception state with a received-data buffer of
// initial capacity kMaxDataSize.
func NewRxState() *RxState {
	return &RxState{
		ReceivedData:     make([]byte, 0, kMaxDataSize),
		ReceivedDataLast: nil,
		LastChecksum:     lastChecksumSentinel,
	}
}

// lastChecksumSentinel is a value curChecksum (masked to kMaxBitsPerChecksum
// bits) can never take, used to force a mismatch after an invalid frame.
const lastChecksumSentinel = -1

// StateData is the read-only snapshot published from the Core worker to the
// UI thread (§6). Every field here is a shallow copy or a reference to data
// that is only ever replaced wholesale (never mutated in place) once
// published, so readers never observe a torn snapshot.
type StateData struct {
	Spectrum        []float64
	AverageSpectrum []float64
	SampleAmplitude []float32
	ReceivedData    []byte

	SendingData       bool
	SendingDataBuffer bool
	ReceivingData     bool

	NIterations        uint64
	SamplesPerFrame    int
	SamplesPerSubFrame int
}

func (s StateData) clone() StateData {
	out := s
	out.Spectrum = append([]float64(nil), s.Spectrum...)
	out.AverageSpectrum = append([]float64(nil), s.AverageSpectrum...)
	out.SampleAmplitude = append([]float32(nil), s.SampleAmplitude...)
	out.ReceivedData = append([]byte(nil), s.ReceivedData...)
	return out
}
