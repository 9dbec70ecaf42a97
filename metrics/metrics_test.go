package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	c := New()

	c.Iteration()
	c.Iteration()
	c.TxCompleted()
	c.RxConfirmed()
	c.RxChecksumFail()
	c.RxECCRepaired()
	c.RxECCRepaired()
	c.RxECCFailed()
	c.CaptureOverflow()

	assert.Equal(t, float64(2), c.Iterations())
	assert.Equal(t, float64(1), c.TxCount())
	assert.Equal(t, float64(1), c.RxConfirmedCount())
	assert.Equal(t, float64(1), c.RxChecksumFailCount())
	assert.Equal(t, float64(2), c.RxECCRepairedCount())
	assert.Equal(t, float64(1), c.RxECCFailedCount())
	assert.Equal(t, float64(1), c.CaptureOverflowCount())
}

func TestCountersIndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.Iteration()
	assert.Equal(t, float64(1), a.Iterations())
	assert.Equal(t, float64(0), b.Iterations())
}
