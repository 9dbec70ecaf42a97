// Package rscodec implements a Reed-Solomon forward error correction codec
// over GF(256), used as the concrete Encode/Decode black box that the modem
// core's ECC integration is written against (see modem.ECCCodec).
//
// The field arithmetic and generator-polynomial construction follow the
// classic approach used by the ancestor project's own FX.25 layer (Phil
// Karn's rs_t, built from fx25_init's (symsize, genpoly, fcr, prim, nroots)
// parameters), reimplemented here as plain Go arithmetic instead of a cgo
// *C.struct_rs so it can be used without a C toolchain.
package rscodec

// primitivePoly is the GF(256) generator polynomial x^8+x^4+x^3+x^2+1,
// the same field used by the ancestor project's RS(255,239)/(255,223)/(255,191)
// FX.25 tags.
const primitivePoly = 0x11d

// gf256 holds the exp/log tables for GF(2^8) arithmetic with the given
// primitive polynomial.
type gf256 struct {
	expTab [510]byte // exp[i] = alpha^i, doubled up so exp[i+255] == exp[i] for convenience
	logTab [256]int  // log[alpha^i] = i; logTab[0] is unused (undefined)
}

func newGF256() *gf256 {
	g := &gf256{}
	x := 1
	for i := 0; i < 255; i++ {
		g.expTab[i] = byte(x)
		g.logTab[x] = i
		x <<= 1
		if x&0x100 != 0 {
			x ^= primitivePoly
		}
	}
	for i := 255; i < 510; i++ {
		g.expTab[i] = g.expTab[i-255]
	}
	return g
}

func (g *gf256) exp(i int) byte {
	for i < 0 {
		i += 255
	}
	return g.expTab[i%255]
}

func (g *gf256) mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return g.expTab[int(g.logTab[a])+int(g.logTab[b])]
}

func (g *gf256) div(a, b byte) byte {
	if a == 0 {
		return 0
	}
	if b == 0 {
		panic("rscodec: division by zero in GF(256)")
	}
	li := int(g.logTab[a]) - int(g.logTab[b])
	for li < 0 {
		li += 255
	}
	return g.expTab[li]
}

func (g *gf256) inv(a byte) byte {
	return g.exp(255 - int(g.logTab[a]))
}
