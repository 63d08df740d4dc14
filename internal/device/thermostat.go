package device

import (
	"fmt"
	"math"
)

// Thermostat reports temperature and humidity and drives a simulated
// HVAC. The sensor accumulates drift over time; the reported temperature
// is always current + drift.
type Thermostat struct {
	link

	currentTemp float64
	targetTemp  float64
	humidity    float64
	hvacMode    string // auto, heat, cool, off
	sensorDrift float64
	calibration bool // recalibration pending
}

func NewThermostat(id, name, location string, rng Rand) *Thermostat {
	return &Thermostat{
		link:        newLink(TypeThermostat, id, name, location, rng),
		currentTemp: 22.0,
		targetTemp:  24.0,
		humidity:    50.0,
		hvacMode:    "auto",
	}
}

func (t *Thermostat) CurrentTemp() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentTemp
}

func (t *Thermostat) TargetTemp() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.targetTemp
}

func (t *Thermostat) Humidity() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.humidity
}

func (t *Thermostat) HVACMode() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hvacMode
}

func (t *Thermostat) SetCurrentTemp(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentTemp = v
}

// SetTargetTemp clamps to [-10,50]; out-of-range setpoints are not an error.
func (t *Thermostat) SetTargetTemp(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.targetTemp = clampFloat(v, -10, 50)
}

func (t *Thermostat) SetHumidity(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.humidity = clampFloat(v, 0, 100)
}

func (t *Thermostat) Tick() (*Reading, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tick(t.variantIssue, t.payload)
}

func (t *Thermostat) variantIssue() Issue {
	reported := t.currentTemp + t.sensorDrift

	if reported > 30 {
		t.issue = IssueHighTemp
		t.status = StatusWarning
		return IssueHighTemp
	}

	if reported < 15 {
		t.issue = IssueLowTemp
		t.status = StatusWarning
		return IssueLowTemp
	}

	// Mold risk.
	if t.humidity > 75 {
		t.issue = IssueHighHumidity
		t.status = StatusWarning
		return IssueHighHumidity
	}

	if math.Abs(t.sensorDrift) > 3 {
		t.calibration = true
		t.issue = IssueSensorMalfunction
		t.status = StatusError
		return IssueSensorMalfunction
	}

	return IssueNone
}

func (t *Thermostat) payload() map[string]any {
	// Wiggle the values a bit to simulate a real sensor.
	t.currentTemp += uniform(t.rng, -2, 2)
	t.humidity = clampFloat(t.humidity+uniform(t.rng, -5, 5), 0, 100)

	if t.rng.Float64() < 0.03 {
		t.sensorDrift += uniform(t.rng, -0.5, 0.5)
	}

	return map[string]any{
		"current_temp": t.currentTemp + t.sensorDrift,
		"target_temp":  t.targetTemp,
		"humidity":     t.humidity,
		"hvac_mode":    t.hvacMode,
		"sensor_drift": math.Abs(t.sensorDrift),
	}
}

func (t *Thermostat) calibrateSensor() {
	t.sensorDrift = 0
	t.calibration = false
	t.issue = IssueNone
	t.status = StatusOnline
}

// dehumidify sheds 15 points of humidity, floored at 40.
func (t *Thermostat) dehumidify() float64 {
	t.humidity = math.Max(40, t.humidity-15)
	if t.humidity <= 75 {
		t.issue = IssueNone
		t.status = StatusOnline
	}
	return t.humidity
}

func (t *Thermostat) Execute(cmd string, args map[string]any) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch cmd {
	case "set_target":
		t.targetTemp = clampFloat(argFloat(args, "temp", 24), -10, 50)
		return fmt.Sprintf("target=%.1f", t.targetTemp)
	case "cool":
		t.currentTemp -= 2
		t.hvacMode = "cool"
		return "cooling"
	case "heat":
		t.currentTemp += 2
		t.hvacMode = "heat"
		return "heating"
	case "calibrate":
		t.calibrateSensor()
		return "calibrated"
	case "dehumidify":
		return fmt.Sprintf("humidity now %.1f%%", t.dehumidify())
	}
	return "unknown cmd"
}

func (t *Thermostat) Snapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.snapshotBase()
	s["current_temp"] = t.currentTemp + t.sensorDrift
	s["target_temp"] = t.targetTemp
	s["humidity"] = t.humidity
	s["hvac_mode"] = t.hvacMode
	s["sensor_drift"] = math.Abs(t.sensorDrift)
	return s
}
