package modem

import (
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
)

// newMessageGap is the silence after which a freshly confirmed block starts
// a new received message instead of continuing the previous one (§4.4 step
// 7).
const newMessageGap = 500 * time.Millisecond

// carrierAbsentRatio is the neighbor-to-bin ratio at or above which (for both
// neighbors) the checksum carrier tone is considered absent (§4.4 step 3).
const carrierAbsentRatio = 10

// silentSubFramesBeforeClear is how many consecutive carrier-absent
// sub-frames must elapse before the spectrum history is cleared (§4.4 step
// 2).
const silentSubFramesBeforeClear = 8 * kSubFrames

// Demodulator runs once per sub-frame, consuming Core.Ring.SampleAmplitude
// and updating Core.Rx with whatever it learns about the carrier this
// sub-frame (§4.4).
type Demodulator struct {
	fft *fourier.FFT
}

// Step implements the eight-part contract from §4.4: spectrum computation,
// history averaging, carrier detection, bit extraction, checksum read,
// validation, confirmation/append, and the reset rules.
func (d *Demodulator) Step(c *Core) {
	p := c.Profile
	ring := c.Ring
	rx := c.Rx

	if d.fft == nil || d.fft.Len() != p.FrameSize {
		d.fft = fourier.NewFFT(p.FrameSize)
	}

	wasNotReceiving := rx.NNotReceiving >= silentSubFramesBeforeClear

	// 1. Spectrum computation: fold the upper half of a real-signal power
	// spectrum into the lower half, which for a real input is exactly
	// doubling every bin strictly between DC and Nyquist.
	coeff := d.fft.Coefficients(nil, float32ToFloat64(ring.SampleAmplitude))
	half := len(ring.SampleSpectrum)
	for i := 0; i < half; i++ {
		re, im := real(coeff[i]), imag(coeff[i])
		power := re*re + im*im
		if i > 0 {
			power *= 2
		}
		ring.SampleSpectrum[i] = power
	}

	// 2. History averaging, with a hard clear after sustained silence.
	if wasNotReceiving {
		for i := range ring.HistorySpectrumAverage {
			ring.HistorySpectrumAverage[i] = 0
		}
		for h := range ring.HistorySpectrum {
			for i := range ring.HistorySpectrum[h] {
				ring.HistorySpectrum[h][i] = 0
			}
		}
	}
	head := ring.HistoryHead
	old := ring.HistorySpectrum[head]
	avg := ring.HistorySpectrumAverage
	for i := range avg {
		avg[i] += (ring.SampleSpectrum[i] - old[i]) / kMaxSpectrumHistory
	}
	copy(old, ring.SampleSpectrum)
	ring.HistoryHead = (head + 1) % kMaxSpectrumHistory

	// 3. Carrier detection: the checksum carrier tone (checksum bit 0) is
	// absent iff it sits at least carrierAbsentRatio below both of its
	// bin neighbors.
	carrierBin := p.Bin(p.CheckFreq(0))
	present := true
	if carrierBin > 0 && carrierBin+1 < len(avg) {
		v := avg[carrierBin]
		present = !(v*carrierAbsentRatio <= avg[carrierBin-1] && v*carrierAbsentRatio <= avg[carrierBin+1])
	}
	rx.ReceivingData = present
	if present {
		rx.NNotReceiving = 0
	} else {
		rx.NNotReceiving++
	}

	// 4. Bit extraction.
	n := p.DataBitsPerTx / 8
	decoded := make([]byte, n)
	rx.RequiredChecksum = 0
	for k := 0; k < p.DataBitsPerTx; k++ {
		bin := p.Bin(p.DataFreq(k))
		if bin+1 >= len(avg) {
			continue
		}
		if avg[bin] > avg[bin+1] {
			decoded[k/8] |= 1 << uint(k%8)
		} else if p.UseChecksum {
			rx.RequiredChecksum += 1 << uint((k%8)+2)
		}
	}
	rx.RequiredChecksum &= (1 << kMaxBitsPerChecksum) - 1

	// 5. Checksum read.
	rx.CurChecksum = 0
	rx.CurParity = 0
	for k := 1; k < kMaxBitsPerChecksum; k++ {
		bin := p.Bin(p.CheckFreq(k))
		if bin+1 >= len(avg) {
			continue
		}
		if avg[bin] > avg[bin+1] {
			rx.CurChecksum |= 1 << uint(k)
			if k == 1 {
				rx.CurParity = 1
			}
		}
	}

	// 6. Validation.
	var isValid, checksumMatch bool
	if p.ECCEnabled() && c.Codec != nil {
		repaired, ok := c.Codec.Decode(decoded)
		isValid = rx.ReceivingData && ok
		if ok {
			decoded = repaired
			c.Metrics.RxECCRepaired()
		} else {
			c.Metrics.RxECCFailed()
		}
		checksumMatch = true
	} else {
		if p.UseChecksum {
			isValid = rx.CurChecksum == rx.RequiredChecksum || rx.CurChecksum == (rx.RequiredChecksum^0x2)
		} else {
			isValid = rx.ReceivingData
		}
		checksumMatch = rx.CurChecksum == rx.LastChecksum
		if rx.ReceivingData && !isValid {
			c.Metrics.RxChecksumFail()
		}
	}

	switch {
	case isValid && checksumMatch:
		payloadWidth := p.PayloadWidth()
		payload := decoded
		if len(payload) > payloadWidth {
			payload = payload[:payloadWidth]
		}
		for i, b := range payload {
			if b == 0 {
				payload[i] = ' '
			}
		}

		rx.NTimesReceived++
		if rx.NTimesReceived >= p.ConfirmFrames && !bytesEqual(payload, rx.ReceivedDataLast) {
			now := c.now()
			if rx.ReceivedDataLast == nil || now.Sub(rx.LastAppendTime) > newMessageGap {
				rx.ReceivedID = 0
				rx.ReceivedData = rx.ReceivedData[:0]
			} else if p.EncodeIDParity && rx.CurParity == rx.LastParity && rx.ReceivedID > 0 {
				rx.ReceivedID -= payloadWidth
				if rx.ReceivedID < 0 {
					rx.ReceivedID = 0
				}
				if rx.ReceivedID < len(rx.ReceivedData) {
					rx.ReceivedData = rx.ReceivedData[:rx.ReceivedID]
				}
			}
			rx.ReceivedData = append(rx.ReceivedData, payload...)
			rx.ReceivedID += payloadWidth
			rx.LastParity = rx.CurParity
			rx.LastAppendTime = now
			c.Metrics.RxConfirmed()
		}
		rx.ReceivedDataLast = append(rx.ReceivedDataLast[:0], payload...)
		rx.LastChecksum = rx.CurChecksum
	case isValid:
		rx.LastChecksum = rx.CurChecksum
		rx.NTimesReceived = 0
	default:
		rx.LastChecksum = lastChecksumSentinel
		rx.NTimesReceived = 0
	}
}

func float32ToFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
