package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sigflow-go/internal/config"
	"sigflow-go/internal/execution"
	"sigflow-go/internal/feed"
	"sigflow-go/internal/journal"
	"sigflow-go/internal/metrics"
	sig "sigflow-go/internal/signal"
	"sigflow-go/internal/strategy"
	"sigflow-go/internal/util"
)

func main() {
	_ = godotenv.Load()

	path := os.Getenv("SIGFLOW_CONFIG")
	if path == "" {
		path = "configs/config.yaml"
	}

	log := util.NewLogger(os.Getenv("SIGFLOW_LOG_LEVEL"))

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng, err := strategy.New(engineConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	src := feed.New(cfg.Feed.Provider, cfg.Feed.Instruments, log,
		feed.WithTickInterval(time.Duration(cfg.Feed.TickIntervalMs)*time.Millisecond))
	ticks := make(chan sig.Tick, 1024)
	go func() {
		if err := src.Run(ctx, ticks); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	exec := execution.NewExecutor(log)
	var recorder *journal.JSONLRecorder
	if cfg.Journal.SignalsPath != "" {
		recorder, err = journal.NewJSONLRecorder(cfg.Journal.SignalsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open signal journal")
		}
		defer recorder.Close()
	}

	// Emission is consumed asynchronously; the engine never waits on the
	// executor or the journal.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-eng.Signals():
				if err := exec.Submit(s); err != nil {
					log.Error().Err(err).Str("id", s.ID).Msg("submit signal")
				}
				if recorder != nil {
					recorder.Record(s)
				}
			}
		}
	}()

	flushTicker := time.NewTicker(time.Duration(cfg.Engine.BarIntervalMs) * time.Millisecond)
	defer flushTicker.Stop()
	evictTicker := time.NewTicker(time.Minute)
	defer evictTicker.Stop()
	idleTTL := time.Duration(cfg.Engine.IdleTTLMs) * time.Millisecond

	log.Info().Str("provider", cfg.Feed.Provider).Strs("instruments", cfg.Feed.Instruments).Msg("engine started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case tk := <-ticks:
			eng.ProcessTick(tk)
		case <-flushTicker.C:
			eng.Poll()
		case <-evictTicker.C:
			if n := eng.EvictIdle(idleTTL); n > 0 {
				log.Info().Int("evicted", n).Msg("dropped idle instruments")
			}
		}
	}
}

// engineConfig maps the YAML configuration onto the engine's tuning.
func engineConfig(cfg *config.Config) strategy.Config {
	ec := strategy.DefaultConfig(strategy.InstrumentSpec{
		TickSize:  cfg.DefaultInstrument.TickSize,
		TickValue: cfg.DefaultInstrument.TickValue,
	})
	ec.BarInterval = time.Duration(cfg.Engine.BarIntervalMs) * time.Millisecond
	ec.ZScoreWindow = cfg.Engine.ZScoreWindow
	ec.ZScoreExitThreshold = cfg.Engine.ZScoreExitThreshold
	ec.VPINWindow = cfg.Engine.VPINWindow
	ec.OFILookback = cfg.Engine.OFILookback
	ec.ATRPeriod = cfg.Engine.ATRPeriod
	ec.KalmanProcessNoise = cfg.Engine.KalmanProcessNoise
	ec.KalmanMeasurementNoise = cfg.Engine.KalmanMeasurementNoise
	ec.Fusion.VPINToxicThreshold = cfg.Engine.VPINToxicThreshold
	ec.Fusion.ConfidenceFloor = cfg.Engine.ConfidenceFloor
	ec.Risk.BaseStopTicks = cfg.Risk.BaseStopTicks
	ec.Risk.BaseTargetTicks = cfg.Risk.BaseTargetTicks
	ec.Risk.BreakevenTicks = cfg.Risk.BreakevenTicks
	ec.Risk.ProfitLockPct = cfg.Risk.ProfitLockPct
	if len(cfg.Instruments) > 0 {
		ec.Specs = make(map[string]strategy.InstrumentSpec, len(cfg.Instruments))
		for id, inst := range cfg.Instruments {
			ec.Specs[id] = strategy.InstrumentSpec{TickSize: inst.TickSize, TickValue: inst.TickValue}
		}
	}
	return ec
}
