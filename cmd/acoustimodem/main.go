// Command acoustimodem runs the modem core headless against a loopback
// audio device, driven by command-line flags
// and an optional YAML profile-override file, and prints a periodic status
// line describing what the receiver currently sees.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/charmbracelet/log"

	"github.com/doismellburning/acoustimodem/audiohost"
	"github.com/doismellburning/acoustimodem/corelog"
	"github.com/doismellburning/acoustimodem/metrics"
	"github.com/doismellburning/acoustimodem/modem"
	"github.com/doismellburning/acoustimodem/rscodec"
)

// profileOverride is the shape of an optional YAML file that tweaks a named
// built-in profile without requiring a recompile, e.g. for bench-testing a
// different send volume or confirm-frame count.
type profileOverride struct {
	SendVolume    *float64 `yaml:"send_volume"`
	ConfirmFrames *int     `yaml:"confirm_frames"`
}

func main() {
	var (
		profileName     = pflag.StringP("profile", "P", "BW16_Stable", "Named modem profile to run (see --list-profiles).")
		listProfiles    = pflag.Bool("list-profiles", false, "List the available profile names and exit.")
		configPath      = pflag.StringP("config", "c", "", "Optional YAML file overriding tunable fields of the selected profile.")
		sendText        = pflag.StringP("send", "s", "", "Transmit this text once, then keep receiving.")
		loopbackMs      = pflag.IntP("loopback-delay-ms", "d", 50, "Acoustic path delay simulated by the loopback device, in milliseconds.")
		statusEvery     = pflag.DurationP("status-interval", "i", time.Second, "How often to print a status line.")
		audioStatsEvery = pflag.Duration("audio-stats-interval", 10*time.Second, "How often to log capture queue depth and back-pressure counters. 0 disables.")
		timestampFmt    = pflag.StringP("timestamp-format", "T", "%H:%M:%S", "strftime format for the status line's timestamp.")
		verbose         = pflag.BoolP("verbose", "v", false, "Enable debug-level logging.")
		logFile         = pflag.String("log-file", "", "Write log output to this path instead of stderr.")
		metricsAddr     = pflag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090). Disabled if empty.")
		help            = pflag.Bool("help", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: acoustimodem [options]")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	if *listProfiles {
		for _, p := range modem.Profiles() {
			fmt.Println(p.Name)
		}
		return
	}

	level := log.InfoLevel
	if *verbose {
		level = log.DebugLevel
	}

	logWriter := os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "acoustimodem: opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logWriter = f
	}
	logger := corelog.New(logWriter, level)
	defer logger.Close()

	profile, ok := modem.ProfileByName(*profileName)
	if !ok {
		logger.Errorf("acoustimodem: unknown profile %q", *profileName)
		os.Exit(1)
	}

	if *configPath != "" {
		var err error
		profile, err = applyOverride(profile, *configPath)
		if err != nil {
			logger.Errorf("acoustimodem: %v", err)
			os.Exit(1)
		}
	}

	var codec modem.ECCCodec
	if profile.ECCEnabled() {
		n := profile.DataBitsPerTx / 8
		c, err := rscodec.New(n, profile.PayloadWidth())
		if err != nil {
			logger.Errorf("acoustimodem: building ECC codec: %v", err)
			os.Exit(1)
		}
		codec = c
	}

	delaySamples := profile.SampleRate * *loopbackMs / 1000
	device := audiohost.NewLoopback(delaySamples)
	defer device.Close()

	counters := metrics.New()
	core := modem.NewCore(device, logger, codec, counters)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(counters.Registry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("acoustimodem: metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	core.Queue.Push(modem.Event{Kind: modem.EventInit, Profile: profile})
	if *sendText != "" {
		core.Queue.Push(modem.Event{Kind: modem.EventDataSend, Data: []byte(*sendText)})
	} else {
		core.Queue.Push(modem.Event{Kind: modem.EventDataOn})
	}

	done := make(chan error, 1)
	go func() { done <- core.Run(ctx) }()

	ticker := time.NewTicker(*statusEvery)
	defer ticker.Stop()

	var audioStatsC <-chan time.Time
	if *audioStatsEvery > 0 {
		audioStatsTicker := time.NewTicker(*audioStatsEvery)
		defer audioStatsTicker.Stop()
		audioStatsC = audioStatsTicker.C
	}

	for {
		select {
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				logger.Errorf("acoustimodem: core exited: %v", err)
				os.Exit(1)
			}
			return
		case <-ticker.C:
			printStatus(core, counters, *timestampFmt)
		case <-audioStatsC:
			printAudioStats(core, counters)
		case <-ctx.Done():
			core.Queue.Push(modem.Event{Kind: modem.EventTerminate})
		}
	}
}

func printStatus(core *modem.Core, counters *metrics.Counters, timestampFmt string) {
	ts, err := strftime.Format(timestampFmt, time.Now())
	if err != nil {
		ts = time.Now().Format(time.Kitchen)
	}
	snap := core.Snapshot()
	fmt.Printf("[%s] iter=%d carrier=%v received=%dB confirmed=%.0f checksumFail=%.0f\n",
		ts, snap.NIterations, snap.ReceivingData, len(snap.ReceivedData),
		counters.RxConfirmedCount(), counters.RxChecksumFailCount())
}

// printAudioStats logs the capture queue depth and back-pressure counters,
// the same kind of "nothing received yet but here's what the input looks
// like" troubleshooting line the ancestor project prints from its own
// audio_stats.go.
func printAudioStats(core *modem.Core, counters *metrics.Counters) {
	core.Logger.Infof("acoustimodem: audio stats: queued capture samples %d, overflow flushes %.0f, ecc repaired %.0f, ecc failed %.0f",
		core.Audio.QueuedCaptureSamples(), counters.CaptureOverflowCount(),
		counters.RxECCRepairedCount(), counters.RxECCFailedCount())
}

func applyOverride(p modem.Profile, path string) (modem.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading config: %w", err)
	}
	var override profileOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("parsing config: %w", err)
	}
	if override.SendVolume != nil {
		p.SendVolume = *override.SendVolume
	}
	if override.ConfirmFrames != nil {
		p.ConfirmFrames = *override.ConfirmFrames
	}
	return p, nil
}
