package device

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Type identifies one of the supported device variants.
type Type string

const (
	TypeBulb       Type = "BULB"
	TypeThermostat Type = "THERMOSTAT"
	TypeCamera     Type = "CAMERA"
	TypeWaterMeter Type = "WATER_METER"
)

// Status is the coarse device health reported with every reading.
type Status string

const (
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
	StatusWarning  Status = "warning"
	StatusError    Status = "error"
	StatusUpdating Status = "updating"
)

// Issue is an enumerated anomalous condition a device can report.
type Issue string

const (
	IssueNone              Issue = "none"
	IssueHighTemp          Issue = "high_temp"
	IssueLowTemp           Issue = "low_temp"
	IssueHighHumidity      Issue = "high_humidity"
	IssueLowBattery        Issue = "low_battery"
	IssueCriticalBattery   Issue = "critical_battery"
	IssueConnectionLost    Issue = "connection_lost"
	IssueWeakSignal        Issue = "weak_signal"
	IssueFirmwareUpdate    Issue = "firmware_update"
	IssueSensorMalfunction Issue = "sensor_malfunction"
	IssueStorageFull       Issue = "storage_full"
	IssueMotionAlert       Issue = "motion_alert"
	IssueBulbFlickering    Issue = "bulb_flickering"
	IssueUnresponsive      Issue = "unresponsive"
	IssueOverload          Issue = "overload"
	IssueLeakDetected      Issue = "leak_detected"
	IssueHighFlow          Issue = "high_flow"
	IssueAbnormalUsage     Issue = "abnormal_usage"
)

var knownIssues = map[Issue]struct{}{
	IssueNone: {}, IssueHighTemp: {}, IssueLowTemp: {}, IssueHighHumidity: {},
	IssueLowBattery: {}, IssueCriticalBattery: {}, IssueConnectionLost: {},
	IssueWeakSignal: {}, IssueFirmwareUpdate: {}, IssueSensorMalfunction: {},
	IssueStorageFull: {}, IssueMotionAlert: {}, IssueBulbFlickering: {},
	IssueUnresponsive: {}, IssueOverload: {}, IssueLeakDetected: {},
	IssueHighFlow: {}, IssueAbnormalUsage: {},
}

// ParseIssue maps a wire string back to an Issue. Unknown strings are
// rejected so the monitor can skip records produced by a newer fleet.
func ParseIssue(s string) (Issue, bool) {
	i := Issue(s)
	_, ok := knownIssues[i]
	return i, ok
}

// Reading is one immutable telemetry snapshot produced per tick.
type Reading struct {
	DeviceID       string         `json:"device_id"`
	DeviceType     Type           `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	Payload        map[string]any `json:"payload"`
	SignalStrength int            `json:"signal_strength"`
	Status         Status         `json:"status"`
	Issue          Issue          `json:"issue"`
	ResponseTimeMS int            `json:"response_time_ms"`
}

// Rand is the randomness source every simulation path draws from.
// Tests inject scripted implementations to force exact transitions.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded pseudo-random source.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// Device is the capability surface shared by all variants. The set of
// variants is closed: bulb, thermostat, camera and water meter.
type Device interface {
	ID() string
	Name() string
	Location() string
	Type() Type
	Connected() bool
	Status() Status
	Issue() Issue
	SignalStrength() int
	FirmwareVersion() string

	Connect(ctx context.Context) bool
	Disconnect()
	Reconnect(ctx context.Context) bool

	// Tick advances the simulation one step and returns the produced
	// reading. ok is false while the device is disconnected.
	Tick() (r *Reading, ok bool)

	Execute(cmd string, args map[string]any) string

	BoostSignal() int
	UpdateFirmware() string

	Snapshot() map[string]any
}

// link holds the connection state common to every variant. One mutex
// guards both link and variant-specific fields; ticks and commands can
// arrive from different goroutines.
type link struct {
	mu       sync.Mutex
	id       string
	name     string
	location string
	typ      Type
	rng      Rand

	connected   bool
	signal      int
	firmware    string
	needsUpdate bool
	status      Status
	issue       Issue
	responseMS  int
}

func newLink(typ Type, id, name, location string, rng Rand) link {
	if rng == nil {
		rng = NewRand(time.Now().UnixNano())
	}
	return link{
		id:         id,
		name:       name,
		location:   location,
		typ:        typ,
		rng:        rng,
		signal:     100,
		firmware:   "1.0.0",
		status:     StatusOffline,
		issue:      IssueNone,
		responseMS: 50,
	}
}

func (l *link) ID() string       { return l.id }
func (l *link) Name() string     { return l.name }
func (l *link) Location() string { return l.location }
func (l *link) Type() Type       { return l.typ }

func (l *link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *link) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *link) Issue() Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issue
}

func (l *link) SignalStrength() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.signal
}

func (l *link) FirmwareVersion() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.firmware
}

// Connect simulates the handshake latency, then brings the device online.
// Returns false when the context is cancelled before completion.
func (l *link) Connect(ctx context.Context) bool {
	l.mu.Lock()
	delay := uniformDuration(l.rng, 500*time.Millisecond, 2*time.Second)
	l.mu.Unlock()

	if !sleep(ctx, delay) {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = true
	l.status = StatusOnline
	l.signal = randint(l.rng, 60, 100)
	l.needsUpdate = l.rng.Float64() < 0.15
	return true
}

func (l *link) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	l.status = StatusOffline
}

// Reconnect drops the link and re-establishes it, clearing the current
// issue on success.
func (l *link) Reconnect(ctx context.Context) bool {
	l.mu.Lock()
	l.connected = false
	l.status = StatusOffline
	delay := uniformDuration(l.rng, 500*time.Millisecond, 1500*time.Millisecond)
	l.mu.Unlock()

	if !sleep(ctx, delay) {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = true
	l.status = StatusOnline
	l.signal = randint(l.rng, 70, 100)
	l.issue = IssueNone
	return true
}

func (l *link) UpdateFirmware() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.firmware = "1.1.0"
	l.needsUpdate = false
	l.issue = IssueNone
	return l.firmware
}

// BoostSignal simulates moving the device closer to the access point.
func (l *link) BoostSignal() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signal = min(100, l.signal+40)
	l.issue = IssueNone
	l.status = StatusOnline
	return l.signal
}

// simulateLink runs the generic degradation rule. Side effects on
// signal/status/connection stick even when a device-specific issue later
// takes precedence in the reading; that asymmetry is deliberate.
// Caller must hold the mutex.
func (l *link) simulateLink() Issue {
	if l.rng.Float64() < 0.15 {
		l.signal += randint(l.rng, -8, 5)
		l.signal = clampInt(l.signal, 20, 100)
	}

	// Occasional recovery, simulates network optimization.
	if l.signal < 60 && l.rng.Float64() < 0.1 {
		l.signal = min(100, l.signal+randint(l.rng, 5, 15))
	}

	if l.rng.Float64() < 0.01 && l.signal < 25 {
		l.connected = false
		l.status = StatusOffline
		l.issue = IssueConnectionLost
		return IssueConnectionLost
	}

	if l.signal < 30 {
		l.issue = IssueWeakSignal
		l.status = StatusWarning
		return IssueWeakSignal
	}

	if l.needsUpdate && l.rng.Float64() < 0.02 {
		l.issue = IssueFirmwareUpdate
		l.status = StatusWarning
		return IssueFirmwareUpdate
	}

	if l.rng.Float64() < 0.01 {
		l.responseMS = randint(l.rng, 2000, 5000)
		l.issue = IssueUnresponsive
		l.status = StatusError
		return IssueUnresponsive
	}

	if l.issue == IssueWeakSignal || l.issue == IssueUnresponsive {
		l.issue = IssueNone
		l.status = StatusOnline
	}
	l.responseMS = randint(l.rng, 20, 150)
	return IssueNone
}

// tick is the shared reading pipeline: generic link rule first, then the
// variant rule, then payload generation. The variant issue wins in the
// reported reading. Caller must hold the mutex.
func (l *link) tick(variantIssue func() Issue, payload func() map[string]any) (*Reading, bool) {
	if !l.connected {
		return nil, false
	}

	linkIssue := l.simulateLink()
	devIssue := variantIssue()
	p := payload()

	issue := devIssue
	if issue == IssueNone {
		issue = linkIssue
	}

	return &Reading{
		DeviceID:       l.id,
		DeviceType:     l.typ,
		Timestamp:      time.Now(),
		Payload:        p,
		SignalStrength: l.signal,
		Status:         l.status,
		Issue:          issue,
		ResponseTimeMS: l.responseMS,
	}, true
}

func (l *link) snapshotBase() map[string]any {
	return map[string]any{
		"device_id":       l.id,
		"name":            l.name,
		"location":        l.location,
		"type":            string(l.typ),
		"connected":       l.connected,
		"signal_strength": l.signal,
		"firmware":        l.firmware,
		"status":          string(l.status),
		"issue":           string(l.issue),
	}
}

// ===== helpers =====

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func uniformDuration(r Rand, lo, hi time.Duration) time.Duration {
	return lo + time.Duration(r.Float64()*float64(hi-lo))
}

// randint returns an int in [lo, hi], both bounds inclusive.
func randint(r Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func argFloat(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func argBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
