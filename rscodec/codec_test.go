package rscodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeDecodeNoErrors(t *testing.T) {
	c, err := New(16, 11)
	require.NoError(t, err)

	data := []byte("HELLO")
	data = append(data, 0, 0, 0, 0, 0, 0)
	encoded, err := c.Encode(data)
	require.NoError(t, err)
	require.Len(t, encoded, 16)

	decoded, ok := c.Decode(encoded)
	require.True(t, ok)
	assert.Equal(t, data, decoded)
}

func TestDecodeRepairsSingleByteFlip(t *testing.T) {
	c, err := New(16, 11)
	require.NoError(t, err)

	data := []byte("ACOUSTICX11")
	encoded, err := c.Encode(data)
	require.NoError(t, err)

	corrupted := append([]byte(nil), encoded...)
	corrupted[3] ^= 0xFF

	decoded, ok := c.Decode(corrupted)
	require.True(t, ok)
	assert.Equal(t, data, decoded)
}

func TestDecodeDetectsUncorrectableErrors(t *testing.T) {
	c, err := New(16, 11)
	require.NoError(t, err)

	data := []byte("ACOUSTICX11")
	encoded, err := c.Encode(data)
	require.NoError(t, err)

	corrupted := append([]byte(nil), encoded...)
	for i := range corrupted {
		corrupted[i] ^= 0xFF
	}

	_, ok := c.Decode(corrupted)
	assert.False(t, ok)
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(1, 200).Draw(t, "k")
		parity := rapid.IntRange(2, 54).Draw(t, "parity")
		n := k + parity
		if n > 255 {
			t.Skip("n exceeds GF(256) symbol limit")
		}

		c, err := New(n, k)
		require.NoError(t, err)

		data := rapid.SliceOfN(rapid.Byte(), k, k).Draw(t, "data")
		encoded, err := c.Encode(data)
		require.NoError(t, err)

		maxCorrectable := parity / 2
		nErrors := rapid.IntRange(0, maxCorrectable).Draw(t, "nErrors")
		corrupted := append([]byte(nil), encoded...)
		used := map[int]bool{}
		for i := 0; i < nErrors; i++ {
			pos := rapid.IntRange(0, n-1).Filter(func(p int) bool { return !used[p] }).Draw(t, "pos")
			used[pos] = true
			flip := rapid.IntRange(1, 255).Draw(t, "flip")
			corrupted[pos] ^= byte(flip)
		}

		decoded, ok := c.Decode(corrupted)
		require.True(t, ok, "expected to repair %d errors out of %d parity bytes", nErrors, parity)
		assert.Equal(t, data, decoded)
	})
}
