package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andreivlad/ecohub/internal/analytics"
	"github.com/andreivlad/ecohub/internal/broadcast"
	"github.com/andreivlad/ecohub/internal/config"
	"github.com/andreivlad/ecohub/internal/device"
	"github.com/andreivlad/ecohub/internal/fleet"
	"github.com/andreivlad/ecohub/internal/metrics"
	"github.com/andreivlad/ecohub/internal/storage"
	"github.com/andreivlad/ecohub/pkg/mqtt"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	logger, err := cfg.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger
}

// demoFleet mirrors the default household used when no device file is
// supplied.
func demoFleet(rng device.Rand) []device.Device {
	b1 := device.NewBulb("bulb_01", "Mysterious Smart Bulb", "Living Room", rng)
	b1.SetBrightness(100)

	b2 := device.NewBulb("bulb_02", "Ambient Smart Bulb", "Bedroom", rng)
	b2.SetBrightness(50)
	b2.SetOn(true)

	t1 := device.NewThermostat("thermo_01", "Famous Smart Thermostat", "Living Room", rng)
	t1.SetTargetTemp(24)
	t1.SetCurrentTemp(23)
	t1.SetHumidity(45)

	t2 := device.NewThermostat("thermo_02", "Cozy Smart Thermostat", "Bedroom", rng)
	t2.SetTargetTemp(22)
	t2.SetCurrentTemp(28)
	t2.SetHumidity(78)

	c1 := device.NewCamera("cam_01", "Gorgeous Smart Camera", "Front Door", rng)
	c1.SetBatteryLevel(25)

	c2 := device.NewCamera("cam_02", "Vigilant Smart Camera", "Backyard", rng)
	c2.SetBatteryLevel(85)

	w1 := device.NewWaterMeter("water_01", "Main Water Meter", "Utility Room", rng)

	return []device.Device{b1, b2, t1, t2, c1, c2, w1}
}

func buildDevices(cfg *config.Config, logger *zap.Logger) ([]device.Device, error) {
	rng := device.NewRand(time.Now().UnixNano())
	if cfg.DevicesFile == "" {
		return demoFleet(rng), nil
	}

	entries, err := config.LoadDevices(cfg.DevicesFile)
	if err != nil {
		return nil, err
	}
	devs := make([]device.Device, 0, len(entries))
	for _, e := range entries {
		d, err := device.New(e.Type, e.ID, e.Name, e.Location, e.Properties, rng)
		if err != nil {
			return nil, err
		}
		devs = append(devs, d)
	}
	logger.Info("devices loaded", zap.String("file", cfg.DevicesFile), zap.Int("count", len(devs)))
	return devs, nil
}

func main() {
	duration := flag.Duration("duration", 30*time.Second, "how long to run the simulation")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		logger.Info("metrics exposed", zap.String("addr", cfg.MetricsAddr))
	}

	sink := storage.NewWorker(storage.Config{
		Path:       cfg.LogFile,
		FlushEvery: cfg.FlushInterval,
		QueueSize:  cfg.QueueSize,
	}, logger, m)
	sink.Start()

	ctrl := fleet.NewController(fleet.Config{
		UpdateIntervalMin: cfg.UpdateIntervalMin,
		UpdateIntervalMax: cfg.UpdateIntervalMax,
		MonitorInterval:   cfg.MonitorInterval,
		Cooldown:          cfg.Cooldown,
		TimeMultiplier:    cfg.TimeMultiplier,
		BufferCap:         cfg.BufferCap,
	}, logger, sink, m)

	devs, err := buildDevices(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build devices", zap.Error(err))
	}
	for _, d := range devs {
		ctrl.AddDevice(d)
		logger.Info("device registered",
			zap.String("device_id", d.ID()),
			zap.String("type", string(d.Type())),
			zap.String("location", d.Location()))
	}

	if cfg.MQTTEnabled {
		client, err := mqtt.NewConn(ctx, &mqtt.Config{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPassword,
			ClientID: cfg.MQTTClientID,
		}, logger)
		if err != nil {
			logger.Fatal("mqtt broker unreachable", zap.Error(err))
		}
		bc := broadcast.New(mqtt.NewPublisher(client, cfg.MQTTTopic), logger)
		ctrl.OnUpdate(bc.Publish)
	}

	logger.Info("connecting devices", zap.Int("count", len(devs)))
	ctrl.ConnectAll(ctx)

	logger.Info("simulation started",
		zap.Duration("duration", *duration),
		zap.Int("time_multiplier", cfg.TimeMultiplier))
	ctrl.Start(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-time.After(*duration):
	case s := <-sig:
		logger.Info("signal received", zap.String("signal", s.String()))
	}

	ctrl.Stop()

	report(logger, ctrl, sink)

	sink.Stop(5 * time.Second)
}

// report logs the end-of-session summary: fleet analytics, issue
// counters and storage throughput.
func report(logger *zap.Logger, ctrl *fleet.Controller, sink *storage.Worker) {
	readings := ctrl.Readings()
	rep := analytics.Process(readings)
	summary := ctrl.IssueSummary()
	stats := sink.Stats()

	detected, resolved := 0, 0
	for _, n := range summary.Detected {
		detected += n
	}
	for _, n := range summary.Resolved {
		resolved += n
	}

	logger.Info("session report",
		zap.Int("total_readings", rep.TotalReadings),
		zap.Int("critical_events", len(rep.Critical)),
		zap.Int("issues_in_buffer", rep.IssueCount),
		zap.Int("issues_detected", detected),
		zap.Int("issues_resolved", resolved),
		zap.Int("issues_active", len(summary.Active)),
		zap.Float64("avg_temperature", rep.AvgTemperature.Value),
		zap.Float64("total_energy_w", rep.TotalEnergy.Value),
		zap.Float64("avg_battery", rep.AvgBattery.Value),
		zap.Float64("avg_signal", rep.AvgSignal.Value),
		zap.Float64("health_score", rep.HealthScore.Value),
		zap.Int64("records_written", stats.RecordsWritten),
		zap.Float64("write_rate", stats.Rate),
		zap.Duration("elapsed", stats.Elapsed))
}
