package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedProfilesValidate(t *testing.T) {
	for _, p := range Profiles() {
		t.Run(p.Name, func(t *testing.T) {
			require.NoError(t, p.Validate())
		})
	}
}

func TestProfileByName(t *testing.T) {
	p, ok := ProfileByName("BW16_Stable")
	require.True(t, ok)
	assert.Equal(t, "BW16_Stable", p.Name)

	_, ok = ProfileByName("nonexistent")
	assert.False(t, ok)
}

func TestProfileValidateRejectsOddDataBits(t *testing.T) {
	p := ProfileBW11LowFreq()
	p.DataBitsPerTx = 15
	assert.Error(t, p.Validate())
}

func TestProfileValidateRejectsOverlappingBands(t *testing.T) {
	p := ProfileBW11LowFreq()
	p.FreqCheckHz = p.FreqStartHz
	assert.Error(t, p.Validate())
}

func TestProfileValidateRejectsNyquistViolation(t *testing.T) {
	p := ProfileBW11LowFreq()
	p.FreqStartHz = float64(p.SampleRate)
	assert.Error(t, p.Validate())
}

func TestProfileECCEnabled(t *testing.T) {
	assert.False(t, ProfileBW11LowFreq().ECCEnabled())
	assert.True(t, ProfileBW64Protocol1().ECCEnabled())
}

func TestProfileBinRoundsToNearest(t *testing.T) {
	p := ProfileBW11LowFreq()
	hz := p.HzPerFrame()
	assert.Equal(t, 0, p.Bin(0))
	assert.Equal(t, 1, p.Bin(hz*0.6))
	assert.Equal(t, 1, p.Bin(hz*1.4))
}
