// Package corelog adapts github.com/charmbracelet/log to modem.Logger,
// running the actual formatting and I/O on a dedicated goroutine behind a
// bounded channel so a slow terminal or log file never stalls the modem
// core's audio-rate worker loop.
package corelog

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// queueCapacity bounds how many pending log lines the core's worker
// goroutine can get ahead of the writer before entries start being
// dropped rather than blocking it.
const queueCapacity = 1024

type entry struct {
	level log.Level
	msg   string
	args  []any
}

// Async is a modem.Logger backed by a single background writer goroutine.
// The zero value is not usable; construct one with New.
type Async struct {
	logger *log.Logger
	queue  chan entry

	dropOnce sync.Once
	wg       sync.WaitGroup
}

// New starts an Async logger writing to w at level (e.g. log.InfoLevel),
// with a timestamp-prefixed report format suitable for a status line
// sitting above it.
func New(w *os.File, level log.Level) *Async {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	a := &Async{
		logger: l,
		queue:  make(chan entry, queueCapacity),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) run() {
	defer a.wg.Done()
	for e := range a.queue {
		switch e.level {
		case log.DebugLevel:
			a.logger.Debugf(e.msg, e.args...)
		case log.WarnLevel:
			a.logger.Warnf(e.msg, e.args...)
		case log.ErrorLevel:
			a.logger.Errorf(e.msg, e.args...)
		default:
			a.logger.Infof(e.msg, e.args...)
		}
	}
}

func (a *Async) enqueue(level log.Level, msg string, args []any) {
	select {
	case a.queue <- entry{level: level, msg: msg, args: args}:
	default:
		a.dropOnce.Do(func() {
			a.logger.Warnf("corelog: queue full, dropping log entries")
		})
	}
}

func (a *Async) Debugf(format string, args ...any) { a.enqueue(log.DebugLevel, format, args) }
func (a *Async) Infof(format string, args ...any)  { a.enqueue(log.InfoLevel, format, args) }
func (a *Async) Warnf(format string, args ...any)  { a.enqueue(log.WarnLevel, format, args) }
func (a *Async) Errorf(format string, args ...any) { a.enqueue(log.ErrorLevel, format, args) }

// Close stops accepting new entries and waits for the writer goroutine to
// drain the queue.
func (a *Async) Close() {
	close(a.queue)
	a.wg.Wait()
}
