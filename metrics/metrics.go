// Package metrics exposes modem.Core's worker-loop counters as Prometheus
// metrics: transmission and reception outcomes, both cheap enough to update
// from the core's audio-rate goroutine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Counters implements modem.Metrics against a dedicated, non-default
// Prometheus registry so multiple Core instances (e.g. in tests) never
// collide on metric registration.
type Counters struct {
	registry *prometheus.Registry

	iterations      prometheus.Counter
	txCount         prometheus.Counter
	rxConfirmed     prometheus.Counter
	rxChecksumFail  prometheus.Counter
	rxECCRepaired   prometheus.Counter
	rxECCFailed     prometheus.Counter
	captureOverflow prometheus.Counter
}

// New registers and returns a fresh set of counters.
func New() *Counters {
	c := &Counters{registry: prometheus.NewRegistry()}

	c.iterations = newCounter("core_iterations_total", "Total number of completed core worker-loop iterations.")
	c.txCount = newCounter("tx_count_total", "Total number of transmission blocks the modulator completed.")
	c.rxConfirmed = newCounter("rx_confirmed_total", "Total number of received payloads appended after confirmation.")
	c.rxChecksumFail = newCounter("rx_checksum_fail_total", "Total number of frames that failed non-ECC checksum validation.")
	c.rxECCRepaired = newCounter("rx_ecc_repaired_total", "Total number of frames whose Reed-Solomon codeword decoded successfully.")
	c.rxECCFailed = newCounter("rx_ecc_failed_total", "Total number of frames whose Reed-Solomon codeword failed to decode.")
	c.captureOverflow = newCounter("capture_overflow_total", "Total number of capture back-pressure flushes.")

	c.registry.MustRegister(
		c.iterations, c.txCount, c.rxConfirmed, c.rxChecksumFail,
		c.rxECCRepaired, c.rxECCFailed, c.captureOverflow,
	)
	return c
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "acoustimodem",
		Name:      name,
		Help:      help,
	})
}

// Registry returns the Prometheus registry backing these counters, for
// mounting behind an HTTP handler.
func (c *Counters) Registry() *prometheus.Registry { return c.registry }

// Iteration records one completed core worker-loop iteration.
func (c *Counters) Iteration() { c.iterations.Inc() }

// TxCompleted records one finished transmission block.
func (c *Counters) TxCompleted() { c.txCount.Inc() }

// RxConfirmed records one payload appended after confirmation.
func (c *Counters) RxConfirmed() { c.rxConfirmed.Inc() }

// RxChecksumFail records one non-ECC checksum validation failure.
func (c *Counters) RxChecksumFail() { c.rxChecksumFail.Inc() }

// RxECCRepaired records one successfully decoded ECC codeword.
func (c *Counters) RxECCRepaired() { c.rxECCRepaired.Inc() }

// RxECCFailed records one ECC codeword that failed to decode.
func (c *Counters) RxECCFailed() { c.rxECCFailed.Inc() }

// CaptureOverflow records one capture back-pressure flush.
func (c *Counters) CaptureOverflow() { c.captureOverflow.Inc() }

// Iterations returns the total number of core worker-loop iterations.
func (c *Counters) Iterations() float64 { return counterValue(c.iterations) }

// TxCount returns the total number of completed transmission blocks.
func (c *Counters) TxCount() float64 { return counterValue(c.txCount) }

// RxConfirmedCount returns the total number of confirmed, appended payloads.
func (c *Counters) RxConfirmedCount() float64 { return counterValue(c.rxConfirmed) }

// RxChecksumFailCount returns the total number of checksum validation failures.
func (c *Counters) RxChecksumFailCount() float64 { return counterValue(c.rxChecksumFail) }

// RxECCRepairedCount returns the total number of successfully decoded ECC codewords.
func (c *Counters) RxECCRepairedCount() float64 { return counterValue(c.rxECCRepaired) }

// RxECCFailedCount returns the total number of ECC codewords that failed to decode.
func (c *Counters) RxECCFailedCount() float64 { return counterValue(c.rxECCFailed) }

// CaptureOverflowCount returns the total number of capture back-pressure flushes.
func (c *Counters) CaptureOverflowCount() float64 { return counterValue(c.captureOverflow) }

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}
