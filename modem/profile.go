package modem

import (
	"fmt"
	"math"
)

// kSubFrames is the compile-time sub-frames-per-frame divisor. The core is
// written for the general case but every shipped profile uses 1, matching
// the ancestor project's own observation that this is "typically 1".
const kSubFrames = 1

// kMaxBitsPerChecksum is the width of the checksum tone group: bit 0 is
// always the carrier/"is sending" marker, bit 1 is the parity bit when
// EncodeIDParity is set, and the remaining bits hold the sum of
// 1<<((k%8)+2) over every zero data bit k, truncated to this width.
const kMaxBitsPerChecksum = 8

// kMaxSpectrumHistory is the depth of the exponential spectrum history used
// to compute the smoothed average spectrum (§3, §4.4).
const kMaxSpectrumHistory = 8

// kMaxDataSize is the initial capacity of the received-data buffer. Appends
// past it grow the buffer: ReceivedData and ReceivedID are not capped at
// this size.
const kMaxDataSize = 4096

// Profile is an immutable, fully-populated parameter set for one modem
// activation. Selecting a profile never mutates Core state directly; the UI
// layer installs a Profile via the Init event. DataOn carries no Profile and
// reuses the one already installed.
type Profile struct {
	Name string

	SampleRate int // Fs, Hz
	FrameSize  int // N, samples per spectral frame

	RampBeginSubFrames int
	RampBlendSubFrames int
	RampEndSubFrames   int

	ConfirmFrames  int // nConfirmFrames
	SubFramesPerTx int

	DataBitsPerTx int // multiple of 8
	ECCBytesPerTx int

	EncodeIDParity bool
	UseChecksum    bool

	SendVolume float64 // [0,1]

	FreqStartHz float64
	FreqDeltaHz float64
	FreqCheckHz float64

	// InitialPattern is the repeating byte pattern transmitted by DataOn's
	// continuous-carrier mode, before any real payload is installed.
	InitialPattern []byte
}

// SubFrameSamples returns M, the sub-frame length in samples.
func (p Profile) SubFrameSamples() int { return p.FrameSize / kSubFrames }

// HzPerFrame returns the DFT bin width.
func (p Profile) HzPerFrame() float64 { return float64(p.SampleRate) / float64(p.FrameSize) }

// PayloadWidth is the number of real data bytes carried per transmission.
func (p Profile) PayloadWidth() int { return p.DataBitsPerTx/8 - p.ECCBytesPerTx }

// ECCEnabled reports whether ECC should be active for this profile, per §3's
// invariant: 0 < nECCBytesPerTx < nDataBitsPerTx/8.
func (p Profile) ECCEnabled() bool {
	return p.ECCBytesPerTx > 0 && p.ECCBytesPerTx < p.DataBitsPerTx/8
}

// Bin returns the round-to-nearest DFT bin index for a frequency, the
// canonical rule per §9 Open Question (c).
func (p Profile) Bin(freqHz float64) int {
	return int(math.Round(freqHz / p.HzPerFrame()))
}

// roundToBin snaps a declared frequency onto its bin center.
func (p Profile) roundToBin(freqHz float64) float64 {
	return float64(p.Bin(freqHz)) * p.HzPerFrame()
}

// DataFreq returns f_k, the tone frequency for data-bit slot k.
func (p Profile) DataFreq(k int) float64 {
	return p.roundToBin(p.FreqStartHz + float64(k)*p.FreqDeltaHz)
}

// CheckFreq returns the tone frequency for checksum-bit slot k.
func (p Profile) CheckFreq(k int) float64 {
	return p.roundToBin(p.FreqCheckHz + float64(k)*p.FreqDeltaHz)
}

// Validate checks the invariants from §3: the data and checksum tone bands
// must not overlap and both must lie below Nyquist.
func (p Profile) Validate() error {
	if p.DataBitsPerTx <= 0 || p.DataBitsPerTx%8 != 0 {
		return fmt.Errorf("modem: DataBitsPerTx must be a positive multiple of 8, got %d", p.DataBitsPerTx)
	}
	if p.ECCBytesPerTx < 0 || p.ECCBytesPerTx >= p.DataBitsPerTx/8 {
		if p.ECCBytesPerTx != 0 {
			return fmt.Errorf("modem: ECCBytesPerTx (%d) must be less than payload bytes (%d)", p.ECCBytesPerTx, p.DataBitsPerTx/8)
		}
	}
	nyquist := float64(p.SampleRate) / 2

	dataLoBin := p.Bin(p.FreqStartHz)
	dataHiBin := p.Bin(p.FreqStartHz + float64(p.DataBitsPerTx-1)*p.FreqDeltaHz)
	checkLoBin := p.Bin(p.FreqCheckHz)
	checkHiBin := p.Bin(p.FreqCheckHz + float64(kMaxBitsPerChecksum-1)*p.FreqDeltaHz)

	if p.roundToBin(p.FreqStartHz+float64(p.DataBitsPerTx-1)*p.FreqDeltaHz) >= nyquist {
		return fmt.Errorf("modem: data band reaches %.1f Hz, at or above Nyquist %.1f Hz", p.roundToBin(p.FreqStartHz+float64(p.DataBitsPerTx-1)*p.FreqDeltaHz), nyquist)
	}
	if p.roundToBin(p.FreqCheckHz+float64(kMaxBitsPerChecksum-1)*p.FreqDeltaHz) >= nyquist {
		return fmt.Errorf("modem: checksum band reaches or exceeds Nyquist %.1f Hz", nyquist)
	}
	if rangesOverlap(dataLoBin, dataHiBin, checkLoBin, checkHiBin) {
		return fmt.Errorf("modem: data band bins [%d,%d] overlap checksum band bins [%d,%d]", dataLoBin, dataHiBin, checkLoBin, checkHiBin)
	}
	return nil
}

func rangesOverlap(aLo, aHi, bLo, bHi int) bool {
	if aLo > aHi {
		aLo, aHi = aHi, aLo
	}
	if bLo > bHi {
		bLo, bHi = bHi, bLo
	}
	return aLo <= bHi && bLo <= aHi
}

// ProfileBW11LowFreq is a narrow, low-frequency profile aimed at
// reliability over raw speed: roughly 11 bytes/sec, no ECC.
func ProfileBW11LowFreq() Profile {
	p := Profile{
		Name:               "BW11_LowFreq",
		SampleRate:         48000,
		FrameSize:          1024,
		RampBeginSubFrames: 2,
		RampBlendSubFrames: 1,
		RampEndSubFrames:   2,
		ConfirmFrames:      2,
		SubFramesPerTx:     17,
		DataBitsPerTx:      32,
		ECCBytesPerTx:      0,
		EncodeIDParity:     true,
		UseChecksum:        true,
		SendVolume:         0.8,
		FreqStartHz:        800,
		FreqDeltaHz:        93.75,
		FreqCheckHz:        4800,
		InitialPattern:     []byte{0xAA},
	}
	return p
}

// ProfileBW16Stable targets roughly 16 bytes/sec with checksum validation
// and no forward error correction.
func ProfileBW16Stable() Profile {
	p := Profile{
		Name:               "BW16_Stable",
		SampleRate:         48000,
		FrameSize:          1024,
		RampBeginSubFrames: 2,
		RampBlendSubFrames: 1,
		RampEndSubFrames:   2,
		ConfirmFrames:      2,
		SubFramesPerTx:     23,
		DataBitsPerTx:      64,
		ECCBytesPerTx:      0,
		EncodeIDParity:     true,
		UseChecksum:        true,
		SendVolume:         0.8,
		FreqStartHz:        1200,
		FreqDeltaHz:        93.75,
		FreqCheckHz:        8000,
		InitialPattern:     []byte{0xAA},
	}
	return p
}

// ProfileBW64Protocol1 targets roughly 64 bytes/sec using RS(12,8) forward
// error correction per Tx in place of the single-byte checksum.
func ProfileBW64Protocol1() Profile {
	p := Profile{
		Name:               "BW64_Protocol1",
		SampleRate:         48000,
		FrameSize:          1024,
		RampBeginSubFrames: 1,
		RampBlendSubFrames: 1,
		RampEndSubFrames:   1,
		ConfirmFrames:      2,
		SubFramesPerTx:     6,
		DataBitsPerTx:      96,
		ECCBytesPerTx:      4,
		EncodeIDParity:     true,
		UseChecksum:        true,
		SendVolume:         0.9,
		FreqStartHz:        1500,
		FreqDeltaHz:        93.75,
		FreqCheckHz:        12000,
		InitialPattern:     []byte{0xAA},
	}
	return p
}

// Profiles is the closed enumeration of named profiles, in presentation
// order for a profile-selection UI.
func Profiles() []Profile {
	return []Profile{
		ProfileBW11LowFreq(),
		ProfileBW16Stable(),
		ProfileBW64Protocol1(),
	}
}

// ProfileByName looks up one of the closed enumeration's profiles.
func ProfileByName(name string) (Profile, bool) {
	for _, p := range Profiles() {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
