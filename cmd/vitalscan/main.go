package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/vitalscan/internal/capture"
	"codeberg.org/mutker/vitalscan/internal/config"
	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/history"
	"codeberg.org/mutker/vitalscan/internal/logger"
	"codeberg.org/mutker/vitalscan/internal/pid"
	"codeberg.org/mutker/vitalscan/internal/quality"
	"codeberg.org/mutker/vitalscan/internal/scan"
	"codeberg.org/mutker/vitalscan/internal/server"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	source, err := capture.New(cfg.Capture)
	if err != nil {
		fatal(err, "failed to initialize capture")
	}

	recorder, err := history.NewService(cfg.History, logger.With("history"))
	if err != nil {
		fatal(err, "failed to initialize scan history")
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close scan history")
		}
	}()

	if cfg.Serve {
		err = serve(ctx, source, recorder)
	} else {
		err = runScan(ctx, source, recorder)
	}

	if err != nil {
		logger.Error().Err(err).Msg("exiting with error")
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close scan history")
		}
		os.Exit(1)
	}
	logger.Info().Msg("Exiting...")
}

func fatal(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.FatalWithCode(coded).Msg(msg)
	}
	logger.Fatal().Err(err).Msg(msg)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// newController builds a controller from the loaded config. Each controller
// gets its own random sources.
func newController(source capture.Source) server.ControllerFactory {
	return func(user wellness.UserDetails, opts ...scan.Option) *scan.Controller {
		base := []scan.Option{
			scan.WithLogger(logger.With("scan")),
			scan.WithAnalyzer(quality.NewAnalyzer(cfg.Quality, newRand())),
			scan.WithEstimator(wellness.NewEstimator(cfg.Estimator, newRand())),
		}
		return scan.New(cfg.Scan, user, source, append(base, opts...)...)
	}
}

func serve(ctx context.Context, source capture.Source, recorder history.Recorder) error {
	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	srv := server.New(cfg.Server, newController(source), recorder, logger.With("server"))
	return srv.Run(ctx, cfg.Listen)
}

// runScan performs one scan in the terminal, starting it as soon as the
// subject is positioned and printing the estimate when it completes.
func runScan(ctx context.Context, source capture.Source, recorder history.Recorder) error {
	user := cfg.User.Details()
	if err := user.Validate(); err != nil {
		return err
	}

	log := logger.With("runner")
	ctrl := newController(source)(user)
	history.Attach(ctrl, user, recorder, logger.With("history"))

	failed := make(chan error, 1)
	lastStep := -1

	ctrl.Subscribe(func(ev scan.Event) {
		switch ev.Type {
		case scan.EventReady:
			start(ctrl, log)
		case scan.EventQuality:
			if ev.State == scan.StateReady && ev.Quality != nil && ev.Quality.Usable() {
				start(ctrl, log)
			}
			if ev.Paused {
				log.Info().Str("message", string(ev.Message)).Msg("Scan paused")
			}
		case scan.EventScanStarted:
			log.Info().Str("tip", ev.Tip).Msg("Scanning, hold still")
		case scan.EventTip:
			log.Info().Str("tip", ev.Tip).Msg("Tip")
		case scan.EventProgress:
			if step := int(ev.Progress) / 10; step > lastStep && !ev.Paused {
				lastStep = step
				log.Info().Float64("progress", ev.Progress).Msg("Scan progress")
			}
		case scan.EventCompleted:
			if ev.Metrics != nil {
				printMetrics(*ev.Metrics)
			}
		case scan.EventError:
			if ev.Recoverable {
				select {
				case failed <- ctrl.Err():
				default:
				}
			}
		}
	})

	if err := ctrl.Open(ctx); err != nil {
		_ = ctrl.Close()
		return err
	}

	select {
	case <-ctx.Done():
		if err := ctrl.Cancel(); err != nil && !errors.HasCode(err, errors.ErrInvalidState) {
			return err
		}
		<-ctrl.Done()
		return nil
	case err := <-failed:
		_ = ctrl.Close()
		return err
	case <-ctrl.Done():
	}

	return ctrl.Err()
}

func start(ctrl *scan.Controller, log logger.Logger) {
	err := ctrl.StartScan()
	switch {
	case err == nil:
	case errors.HasCode(err, errors.ErrPreconditionFailed), errors.HasCode(err, errors.ErrInvalidState):
		log.Debug().Err(err).Msg("Not starting scan yet")
	default:
		log.Warn().Err(err).Msg("Failed to start scan")
	}
}

func printMetrics(m wellness.Metrics) {
	var b strings.Builder

	fmt.Fprintln(&b, "Wellness estimate (not a medical measurement)")
	fmt.Fprintf(&b, "  Blood pressure    %d-%d / %d-%d mmHg  %s\n",
		m.BloodPressure.Systolic.Min, m.BloodPressure.Systolic.Max,
		m.BloodPressure.Diastolic.Min, m.BloodPressure.Diastolic.Max,
		m.BloodPressure.Status)
	fmt.Fprintf(&b, "  Heart rate        %d-%d bpm  %s\n", m.HeartRate.Range.Min, m.HeartRate.Range.Max, m.HeartRate.Status)
	fmt.Fprintf(&b, "  Stress            %d  %s\n", m.Stress.Value, m.Stress.Status)
	fmt.Fprintf(&b, "  Oxygen saturation %d-%d %%  %s\n", m.OxygenSaturation.Range.Min, m.OxygenSaturation.Range.Max, m.OxygenSaturation.Status)
	fmt.Fprintf(&b, "  BMI               %.1f  %s\n", m.BMI.Value, m.BMI.Status)
	fmt.Fprintf(&b, "  Respiratory rate  %d-%d /min  %s\n", m.RespiratoryRate.Range.Min, m.RespiratoryRate.Range.Max, m.RespiratoryRate.Status)

	fmt.Print(b.String())
}
