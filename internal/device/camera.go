package device

import (
	"fmt"
	"math"
	"time"
)

// Camera is a battery-powered security camera with local storage.
// Motion triggers a snapshot and a recording, both of which eat into
// battery and storage.
type Camera struct {
	link

	motionDetected  bool
	batteryLevel    float64
	lastSnapshot    time.Time
	storageUsedMB   float64
	storageCapMB    float64
	nightVision     bool
	recording       bool
	charging        bool
}

func NewCamera(id, name, location string, rng Rand) *Camera {
	c := &Camera{
		link:         newLink(TypeCamera, id, name, location, rng),
		batteryLevel: 100,
		storageCapMB: 32000, // 32GB
		nightVision:  true,
		lastSnapshot: time.Now(),
	}
	c.storageUsedMB = uniform(c.rng, 5000, 20000)
	return c
}

func (c *Camera) MotionDetected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.motionDetected
}

func (c *Camera) BatteryLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batteryLevel
}

func (c *Camera) StoragePercent() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storagePercent()
}

func (c *Camera) SetMotionDetected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.motionDetected = v
}

// SetBatteryLevel clamps to [0,100].
func (c *Camera) SetBatteryLevel(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batteryLevel = clampFloat(v, 0, 100)
}

func (c *Camera) storagePercent() float64 {
	return c.storageUsedMB / c.storageCapMB * 100
}

func (c *Camera) takeSnapshot() {
	c.lastSnapshot = time.Now()
	c.batteryLevel = math.Max(0, c.batteryLevel-0.5)
	c.storageUsedMB += uniform(c.rng, 1, 5)
}

func (c *Camera) Tick() (*Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick(c.variantIssue, c.payload)
}

func (c *Camera) variantIssue() Issue {
	if c.batteryLevel < 5 {
		c.issue = IssueCriticalBattery
		c.status = StatusError
		return IssueCriticalBattery
	}

	if c.batteryLevel < 20 {
		c.issue = IssueLowBattery
		c.status = StatusWarning
		return IssueLowBattery
	}

	if c.storagePercent() > 90 {
		c.issue = IssueStorageFull
		c.status = StatusWarning
		return IssueStorageFull
	}

	// Important but not an error.
	if c.motionDetected {
		c.issue = IssueMotionAlert
		return IssueMotionAlert
	}

	return IssueNone
}

func (c *Camera) payload() map[string]any {
	c.motionDetected = c.rng.Float64() < 0.3

	if c.charging {
		c.batteryLevel = math.Min(100, c.batteryLevel+uniform(c.rng, 0.5, 1.0))
	} else {
		c.batteryLevel = math.Max(0, c.batteryLevel-uniform(c.rng, 0.1, 0.5))
	}

	if c.motionDetected {
		c.takeSnapshot()
		c.recording = true
		c.storageUsedMB += uniform(c.rng, 10, 50)
	} else {
		c.recording = false
	}

	return map[string]any{
		"motion_detected": c.motionDetected,
		"last_snapshot":   c.lastSnapshot.Unix(),
		"battery_level":   c.batteryLevel,
		"storage_percent": math.Round(c.storagePercent()*10) / 10,
		"night_vision":    c.nightVision,
		"recording":       c.recording,
		"charging":        c.charging,
	}
}

func (c *Camera) startCharging() {
	c.charging = true
	c.issue = IssueNone
	c.status = StatusOnline
}

// clearStorage deletes old recordings, keeping 30% of capacity used.
func (c *Camera) clearStorage() float64 {
	c.storageUsedMB = c.storageCapMB * 0.3
	if c.storagePercent() <= 90 {
		c.issue = IssueNone
		c.status = StatusOnline
	}
	return math.Round(c.storagePercent()*10) / 10
}

func (c *Camera) Execute(cmd string, args map[string]any) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd {
	case "snapshot":
		c.takeSnapshot()
		return "snap"
	case "arm":
		return "armed"
	case "disarm":
		c.motionDetected = false
		return "disarmed"
	case "charge":
		c.startCharging()
		return "charging"
	case "clear_storage":
		return fmt.Sprintf("storage at %.1f%%", c.clearStorage())
	}
	return "?"
}

func (c *Camera) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshotBase()
	s["motion_detected"] = c.motionDetected
	s["battery_level"] = c.batteryLevel
	s["storage_percent"] = math.Round(c.storagePercent()*10) / 10
	s["night_vision"] = c.nightVision
	s["recording"] = c.recording
	s["charging"] = c.charging
	return s
}

// IsCharging reports whether the battery is charging.
func (c *Camera) IsCharging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.charging
}
