// Package fleet orchestrates per-device update loops and the issue
// monitor over a single device registry.
package fleet

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andreivlad/ecohub/internal/device"
	"github.com/andreivlad/ecohub/internal/metrics"
	"github.com/andreivlad/ecohub/internal/remedy"
	"github.com/andreivlad/ecohub/internal/storage"
)

// Config tunes the controller loops. Zero values fall back to defaults.
type Config struct {
	UpdateIntervalMin time.Duration // default 1s
	UpdateIntervalMax time.Duration // default 3s
	MonitorInterval   time.Duration // default 2s
	Cooldown          time.Duration // default 5s
	TimeMultiplier    int           // default 1 (real-time)
	BufferCap         int           // default 1000 readings
}

func (c *Config) applyDefaults() {
	if c.UpdateIntervalMin <= 0 {
		c.UpdateIntervalMin = time.Second
	}
	if c.UpdateIntervalMax < c.UpdateIntervalMin {
		c.UpdateIntervalMax = 3 * time.Second
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 2 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Second
	}
	if c.TimeMultiplier < 1 {
		c.TimeMultiplier = 1
	}
	if c.BufferCap <= 0 {
		c.BufferCap = 1000
	}
}

// Controller owns the device registry. Devices are reached by id lookup
// from the loops; the shared readings buffer, tracker and cooldown map
// are guarded by one mutex.
type Controller struct {
	cfg     Config
	log     *zap.Logger
	sink    *storage.Worker
	metrics *metrics.Set

	mu        sync.Mutex
	devices   []device.Device
	readings  []*device.Reading
	callbacks []func(*device.Reading)
	handled   map[string]time.Time
	updates   int64
	running   bool
	cancel    context.CancelFunc

	tracker *IssueTracker
	wg      sync.WaitGroup
}

func NewController(cfg Config, logger *zap.Logger, sink *storage.Worker, m *metrics.Set) *Controller {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:     cfg,
		log:     logger,
		sink:    sink,
		metrics: m,
		handled: make(map[string]time.Time),
		tracker: NewIssueTracker(),
	}
}

func (c *Controller) AddDevice(d device.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = append(c.devices, d)
}

func (c *Controller) RemoveDevice(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.devices {
		if d.ID() == id {
			c.devices = append(c.devices[:i], c.devices[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Controller) Device(id string) (device.Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.devices {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}

func (c *Controller) Devices() []device.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]device.Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// OnUpdate registers a subscriber invoked once per produced reading.
func (c *Controller) OnUpdate(cb func(*device.Reading)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// ConnectAll brings every registered device online concurrently.
func (c *Controller) ConnectAll(ctx context.Context) {
	devs := c.Devices()
	var wg sync.WaitGroup
	for _, d := range devs {
		wg.Add(1)
		go func(d device.Device) {
			defer wg.Done()
			if d.Connect(ctx) {
				c.log.Info("device connected",
					zap.String("device_id", d.ID()),
					zap.String("name", d.Name()))
			}
		}(d)
	}
	wg.Wait()
}

// Start launches one update loop per connected device plus the monitor
// loop, then returns. Devices added afterwards are not picked up until
// the next Start.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	ctx, c.cancel = context.WithCancel(ctx)
	devs := make([]device.Device, len(c.devices))
	copy(devs, c.devices)
	c.mu.Unlock()

	for _, d := range devs {
		if !d.Connected() {
			continue
		}
		c.wg.Add(1)
		go func(d device.Device) {
			defer c.wg.Done()
			c.updateLoop(ctx, d)
		}(d)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.monitorLoop(ctx)
	}()
}

// Stop cancels all loops and waits for them to observe the cancellation.
// Calling Stop twice is harmless.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.log.Info("monitoring stopped", zap.Int64("updates", c.UpdateCount()))
}

// tickInterval draws the next randomized inter-tick delay, compressed by
// the time multiplier but never below 100ms.
func (c *Controller) tickInterval() time.Duration {
	span := c.cfg.UpdateIntervalMax - c.cfg.UpdateIntervalMin
	base := c.cfg.UpdateIntervalMin
	if span > 0 {
		base += time.Duration(rand.Float64() * float64(span))
	}
	div := c.cfg.TimeMultiplier / 10
	if div < 1 {
		div = 1
	}
	scaled := base / time.Duration(div)
	if scaled < 100*time.Millisecond {
		scaled = 100 * time.Millisecond
	}
	return scaled
}

func (c *Controller) updateLoop(ctx context.Context, d device.Device) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.tickInterval()):
		}

		r, ok := d.Tick()
		if !ok {
			continue
		}

		c.mu.Lock()
		c.updates++
		c.readings = append(c.readings, r)
		if len(c.readings) > c.cfg.BufferCap {
			// Evict the oldest half to amortize the copy.
			keep := c.cfg.BufferCap / 2
			trimmed := make([]*device.Reading, keep)
			copy(trimmed, c.readings[len(c.readings)-keep:])
			c.readings = trimmed
		}
		cbs := make([]func(*device.Reading), len(c.callbacks))
		copy(cbs, c.callbacks)
		c.mu.Unlock()

		c.metrics.IncUpdates()
		if c.sink != nil {
			c.sink.Enqueue(r)
		}
		for _, cb := range cbs {
			cb(r)
		}
	}
}

func (c *Controller) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.scanRecent(ctx)
	}
}

// scanRecent samples a fixed window of the newest readings and
// remediates unresolved issues outside their cooldown. An issue that
// appears and clears between two passes can be missed entirely; the
// window sampling is intentionally inexact.
func (c *Controller) scanRecent(ctx context.Context) {
	c.mu.Lock()
	window := len(c.devices) * 2
	if window > len(c.readings) {
		window = len(c.readings)
	}
	recent := make([]*device.Reading, window)
	copy(recent, c.readings[len(c.readings)-window:])
	c.mu.Unlock()

	for _, r := range recent {
		if r.Issue == device.IssueNone {
			continue
		}

		now := time.Now()
		c.mu.Lock()
		last, seen := c.handled[r.DeviceID]
		c.mu.Unlock()
		if seen && now.Sub(last) < c.cfg.Cooldown {
			continue
		}

		d, ok := c.Device(r.DeviceID)
		if !ok {
			continue
		}

		// Skip records carrying an issue kind this build does not know;
		// that signals version skew, not user error.
		issue, known := device.ParseIssue(string(r.Issue))
		if !known {
			continue
		}

		if issue != device.IssueMotionAlert {
			c.mu.Lock()
			c.handled[r.DeviceID] = now
			c.mu.Unlock()
			c.tracker.RecordIssue(r.DeviceID, issue)
			c.metrics.IncDetected(string(issue))
		}

		out := remedy.Remediate(ctx, d, issue, r)
		if out.Label != "" {
			c.log.Info("issue handled",
				zap.String("device_id", r.DeviceID),
				zap.String("issue", string(issue)),
				zap.String("context", out.Context),
				zap.String("action", out.Action),
				zap.String("result", out.Result),
				zap.Bool("resolved", out.Resolved))
		}
		if out.Resolved {
			c.tracker.RecordResolution(r.DeviceID, issue)
			c.metrics.IncResolved(string(issue))
		}
		c.metrics.SetActiveIssues(c.tracker.ActiveCount())

		// Advisory motion events take no corrective command and do not
		// pace the scan.
		if issue == device.IssueMotionAlert {
			continue
		}

		// Brief pause between fixes; remediation within one pass is
		// deliberately serialized.
		select {
		case <-ctx.Done():
			return
		case <-time.After(300 * time.Millisecond):
		}
	}
}

// ExecuteCommand routes a command to a device by id. Unknown commands
// come back as the device's "unrecognized" outcome; only a missing
// device is an error.
func (c *Controller) ExecuteCommand(deviceID, cmd string, args map[string]any) (string, error) {
	d, ok := c.Device(deviceID)
	if !ok {
		return "", fmt.Errorf("device not found: %s", deviceID)
	}
	return d.Execute(cmd, args), nil
}

// Readings returns a copy of the current buffer, oldest first.
func (c *Controller) Readings() []*device.Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*device.Reading, len(c.readings))
	copy(out, c.readings)
	return out
}

func (c *Controller) ClearReadings() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readings = nil
}

func (c *Controller) IssueSummary() Summary {
	return c.tracker.Summary()
}

func (c *Controller) UpdateCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

// Reset clears accumulated readings, counters and per-meter usage
// totals. Device identity and connection state are preserved.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.readings = nil
	c.updates = 0
	c.handled = make(map[string]time.Time)
	devs := make([]device.Device, len(c.devices))
	copy(devs, c.devices)
	c.mu.Unlock()

	c.tracker.Reset()
	c.metrics.SetActiveIssues(0)

	for _, d := range devs {
		if wm, ok := d.(*device.WaterMeter); ok {
			wm.ResetDaily()
			wm.ResetMonthly()
		}
	}
}
