package rscodec

import "fmt"

// fcr is the first consecutive root used for the generator polynomial,
// expressed as an exponent of the field's primitive element. Using 1 (rather
// than 0) keeps the Forney error-magnitude formula free of an extra
// correction factor.
const fcr = 1

// Codec is a systematic Reed-Solomon encoder/decoder over GF(256). It
// implements the black-box contract described for the external Reed-Solomon
// collaborator: Encode takes k data bytes and returns n encoded bytes;
// Decode takes n possibly-corrupted bytes and returns k repaired data bytes
// plus whether the repair succeeded.
type Codec struct {
	gf        *gf256
	n, k      int
	nroots    int
	generator []byte // degree nroots, monic, highest-degree-first ([0]==1)
}

// New builds a Codec for an (n, k) Reed-Solomon code: n total bytes per
// codeword, k of them data, n-k parity bytes capable of correcting up to
// (n-k)/2 byte errors. n must be <= 255 (GF(256) symbol limit).
func New(n, k int) (*Codec, error) {
	if n <= 0 || k <= 0 || k >= n || n > 255 {
		return nil, fmt.Errorf("rscodec: invalid (n=%d, k=%d)", n, k)
	}
	gf := newGF256()
	nroots := n - k
	gen := []byte{1}
	for i := 0; i < nroots; i++ {
		gen = mulByLinear(gf, gen, gf.exp(fcr+i))
	}
	return &Codec{gf: gf, n: n, k: k, nroots: nroots, generator: gen}, nil
}

// N returns the codeword length.
func (c *Codec) N() int { return c.n }

// K returns the payload length.
func (c *Codec) K() int { return c.k }

// mulByLinear multiplies poly (array index = descending power of x, i.e.
// poly[0] is the leading/highest-degree coefficient) by the linear factor
// (x + r), returning a polynomial one degree higher in the same convention.
func mulByLinear(gf *gf256, poly []byte, r byte) []byte {
	out := make([]byte, len(poly)+1)
	for i := range out {
		var a, b byte
		if i < len(poly) {
			a = poly[i]
		}
		if i >= 1 {
			b = gf.mul(poly[i-1], r)
		}
		out[i] = a ^ b
	}
	return out
}

// Encode computes the n-byte systematic codeword for a k-byte payload.
// data[0] is the highest-order coefficient of the message polynomial (the
// first byte transmitted); the returned codeword is data followed by the
// n-k parity bytes.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	if len(data) != c.k {
		return nil, fmt.Errorf("rscodec: Encode expects %d bytes, got %d", c.k, len(data))
	}
	rem := make([]byte, c.n)
	copy(rem, data)
	for i := 0; i < c.k; i++ {
		coef := rem[i]
		if coef == 0 {
			continue
		}
		for j := 0; j <= c.nroots; j++ {
			rem[i+j] ^= c.gf.mul(coef, c.generator[j])
		}
	}
	out := make([]byte, c.n)
	copy(out, data)
	copy(out[c.k:], rem[c.k:])
	return out, nil
}

// syndromes evaluates the received polynomial at alpha^(fcr), alpha^(fcr+1),
// ..., alpha^(fcr+nroots-1) using Horner's method.
func (c *Codec) syndromes(received []byte) []byte {
	syn := make([]byte, c.nroots)
	for j := 0; j < c.nroots; j++ {
		x := c.gf.exp(fcr + j)
		var val byte
		for _, b := range received {
			val = c.gf.mul(val, x) ^ b
		}
		syn[j] = val
	}
	return syn
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// berlekampMassey finds the error-locator polynomial (low-to-high, sigma[0]==1)
// from the syndrome sequence.
func (c *Codec) berlekampMassey(syn []byte) []byte {
	gf := c.gf
	cPoly := []byte{1}
	b := []byte{1}
	l := 0
	m := 1
	bCoef := byte(1)

	for n := 0; n < len(syn); n++ {
		var delta = syn[n]
		for i := 1; i <= l; i++ {
			if i < len(cPoly) {
				delta ^= gf.mul(cPoly[i], syn[n-i])
			}
		}
		if delta == 0 {
			m++
			continue
		}
		t := make([]byte, len(cPoly))
		copy(t, cPoly)

		coef := gf.div(delta, bCoef)
		need := m + len(b)
		if need > len(cPoly) {
			grown := make([]byte, need)
			copy(grown, cPoly)
			cPoly = grown
		}
		for i := 0; i < len(b); i++ {
			cPoly[i+m] ^= gf.mul(coef, b[i])
		}

		if 2*l <= n {
			l = n + 1 - l
			b = t
			bCoef = delta
			m = 1
		} else {
			m++
		}
	}
	return cPoly
}

// polyEval evaluates a low-to-high polynomial at x via Horner's method.
func polyEval(gf *gf256, poly []byte, x byte) byte {
	var val byte
	for i := len(poly) - 1; i >= 0; i-- {
		val = gf.mul(val, x) ^ poly[i]
	}
	return val
}

// derivative returns the formal derivative of a low-to-high polynomial over
// a characteristic-2 field: only odd-indexed terms survive.
func derivative(poly []byte) []byte {
	if len(poly) <= 1 {
		return []byte{0}
	}
	out := make([]byte, len(poly)-1)
	for i := 1; i < len(poly); i += 2 {
		out[i-1] = poly[i]
	}
	return out
}

// Decode attempts to recover the k-byte payload from an n-byte received
// codeword, correcting up to (n-k)/2 byte errors. The second return value
// reports whether the correction (or the absence of any error) is certain;
// callers must discard the result when it is false.
func (c *Codec) Decode(received []byte) ([]byte, bool) {
	if len(received) != c.n {
		return nil, false
	}
	gf := c.gf
	syn := c.syndromes(received)
	if allZero(syn) {
		out := make([]byte, c.k)
		copy(out, received[:c.k])
		return out, true
	}

	sigma := c.berlekampMassey(syn)
	// Trim trailing zero high-order terms.
	deg := len(sigma) - 1
	for deg > 0 && sigma[deg] == 0 {
		deg--
	}
	sigma = sigma[:deg+1]
	if deg > c.nroots/2 {
		return nil, false
	}

	corrected := make([]byte, c.n)
	copy(corrected, received)

	errPos := make([]int, 0, deg)
	for e := 0; e < c.n; e++ {
		j := c.n - 1 - e
		xinv := gf.exp(-j)
		if polyEval(gf, sigma, xinv) == 0 {
			errPos = append(errPos, e)
		}
	}
	if len(errPos) != deg {
		return nil, false // more errors than the locator degree accounts for
	}

	// Omega(x) = S(x) * sigma(x) mod x^nroots
	omega := make([]byte, c.nroots)
	for i := 0; i < len(syn); i++ {
		if syn[i] == 0 {
			continue
		}
		for j := 0; j < len(sigma) && i+j < c.nroots; j++ {
			omega[i+j] ^= gf.mul(syn[i], sigma[j])
		}
	}
	sigmaPrime := derivative(sigma)

	for _, e := range errPos {
		j := c.n - 1 - e
		xinv := gf.exp(-j)
		num := polyEval(gf, omega, xinv)
		den := polyEval(gf, sigmaPrime, xinv)
		if den == 0 {
			return nil, false
		}
		corrected[e] ^= gf.div(num, den)
	}

	if !allZero(c.syndromes(corrected)) {
		return nil, false
	}

	out := make([]byte, c.k)
	copy(out, corrected[:c.k])
	return out, true
}
