package modem

import (
	"math"
	"math/rand/v2"
)

// WaveformBank holds the precomputed per-bit-index sine tables for the
// "one" tone and the adjacent "zero" tone (one bin up), for both data bits
// and checksum bits. Rebuild is a full replacement; the core only ever
// enqueues and applies a rebuild from its own worker goroutine, so there is
// never a concurrent reader during a rebuild.
type WaveformBank struct {
	DataOne  [][]float32 // [k][N], k in [0, DataBitsPerTx)
	DataZero [][]float32

	CheckOne  [][]float32 // [k][N], k in [0, kMaxBitsPerChecksum)
	CheckZero [][]float32
}

// Rebuild regenerates every table for the given profile, drawing a fresh
// independent random phase offset per slot.
func (b *WaveformBank) Rebuild(p Profile) {
	n := p.FrameSize
	fs := float64(p.SampleRate)
	hzPerFrame := p.HzPerFrame()

	b.DataOne = make([][]float32, p.DataBitsPerTx)
	b.DataZero = make([][]float32, p.DataBitsPerTx)
	for k := 0; k < p.DataBitsPerTx; k++ {
		phi := rand.Float64() * 2 * math.Pi
		fk := p.DataFreq(k)
		b.DataOne[k] = sineTable(n, fs, fk, phi)
		b.DataZero[k] = sineTable(n, fs, fk+hzPerFrame, phi)
	}

	b.CheckOne = make([][]float32, kMaxBitsPerChecksum)
	b.CheckZero = make([][]float32, kMaxBitsPerChecksum)
	for k := 0; k < kMaxBitsPerChecksum; k++ {
		phi := rand.Float64() * 2 * math.Pi
		fk := p.CheckFreq(k)
		b.CheckOne[k] = sineTable(n, fs, fk, phi)
		b.CheckZero[k] = sineTable(n, fs, fk+hzPerFrame, phi)
	}
}

func sineTable(n int, fs, freqHz, phase float64) []float32 {
	table := make([]float32, n)
	w := 2 * math.Pi * freqHz / fs
	for i := 0; i < n; i++ {
		table[i] = float32(math.Sin(w*float64(i) + phase))
	}
	return table
}
