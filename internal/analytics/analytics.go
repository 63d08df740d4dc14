// Package analytics derives fleet-wide metrics from a reading snapshot.
// Everything here is a pure function: no hidden state, safe to call
// repeatedly and concurrently on the same slice.
package analytics

import (
	"math"

	"github.com/andreivlad/ecohub/internal/device"
)

// Result is one computed metric. Valid is false when the input contained
// no readings the metric applies to; Value is zero in that case.
type Result struct {
	Metric  string
	Value   float64
	Valid   bool
	Devices int
}

// Report is the full analytics output for one snapshot.
type Report struct {
	AvgTemperature Result
	TotalEnergy    Result
	AvgBattery     Result
	ActiveDevices  Result
	AvgSignal      Result
	AvgResponseMS  Result
	HealthScore    Result

	Critical       []*device.Reading
	IssueBreakdown map[device.Issue]int
	TotalReadings  int
	IssueCount     int
}

func payloadFloat(r *device.Reading, key string) (float64, bool) {
	if r.Payload == nil {
		return 0, false
	}
	switch v := r.Payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func payloadBool(r *device.Reading, key string) bool {
	v, _ := r.Payload[key].(bool)
	return v
}

// IsHighTemp reports a thermostat reading above the critical threshold.
func IsHighTemp(r *device.Reading) bool {
	if r.DeviceType != device.TypeThermostat {
		return false
	}
	t, _ := payloadFloat(r, "current_temp")
	return t > 30
}

// IsLowBattery reports a camera reading below 10% battery.
func IsLowBattery(r *device.Reading) bool {
	if r.DeviceType != device.TypeCamera {
		return false
	}
	b, ok := payloadFloat(r, "battery_level")
	return ok && b < 10
}

// HasMotion reports a camera reading with motion detected.
func HasMotion(r *device.Reading) bool {
	return r.DeviceType == device.TypeCamera && payloadBool(r, "motion_detected")
}

// Critical filters the readings that demand attention.
func Critical(readings []*device.Reading) []*device.Reading {
	out := make([]*device.Reading, 0)
	for _, r := range readings {
		if IsHighTemp(r) || IsLowBattery(r) || HasMotion(r) {
			out = append(out, r)
		}
	}
	return out
}

// AvgTemperature averages reported thermostat temperatures.
func AvgTemperature(readings []*device.Reading) Result {
	res := Result{Metric: "average_temperature"}
	var sum float64
	for _, r := range readings {
		if r.DeviceType != device.TypeThermostat {
			continue
		}
		t, _ := payloadFloat(r, "current_temp")
		sum += t
		res.Devices++
	}
	if res.Devices == 0 {
		return res
	}
	res.Value = round2(sum / float64(res.Devices))
	res.Valid = true
	return res
}

// TotalEnergy sums the wattage of bulbs currently lit, 10W max each
// scaled by brightness.
func TotalEnergy(readings []*device.Reading) Result {
	res := Result{Metric: "total_energy", Valid: true}
	for _, r := range readings {
		if r.DeviceType != device.TypeBulb || !payloadBool(r, "is_on") {
			continue
		}
		b, _ := payloadFloat(r, "brightness")
		res.Value += b / 100 * 10
		res.Devices++
	}
	res.Value = round2(res.Value)
	return res
}

// AvgBattery averages camera battery levels.
func AvgBattery(readings []*device.Reading) Result {
	res := Result{Metric: "average_battery"}
	var sum float64
	for _, r := range readings {
		if r.DeviceType != device.TypeCamera {
			continue
		}
		b, _ := payloadFloat(r, "battery_level")
		sum += b
		res.Devices++
	}
	if res.Devices == 0 {
		return res
	}
	res.Value = round2(sum / float64(res.Devices))
	res.Valid = true
	return res
}

// ActiveDevices counts unique device ids in the snapshot.
func ActiveDevices(readings []*device.Reading) Result {
	seen := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		seen[r.DeviceID] = struct{}{}
	}
	n := len(seen)
	return Result{Metric: "active_devices", Value: float64(n), Valid: true, Devices: n}
}

// AvgSignal averages signal strength across all readings.
func AvgSignal(readings []*device.Reading) Result {
	res := Result{Metric: "average_signal"}
	if len(readings) == 0 {
		return res
	}
	var sum float64
	for _, r := range readings {
		sum += float64(r.SignalStrength)
	}
	res.Value = round1(sum / float64(len(readings)))
	res.Valid = true
	res.Devices = len(readings)
	return res
}

// AvgResponseTime averages reported latency in milliseconds.
func AvgResponseTime(readings []*device.Reading) Result {
	res := Result{Metric: "average_response_ms"}
	if len(readings) == 0 {
		return res
	}
	var sum float64
	for _, r := range readings {
		sum += float64(r.ResponseTimeMS)
	}
	res.Value = round1(sum / float64(len(readings)))
	res.Valid = true
	res.Devices = len(readings)
	return res
}

// HealthScore combines signal, issue and latency penalties into a 0-100
// fleet score.
func HealthScore(readings []*device.Reading) Result {
	res := Result{Metric: "health_score"}
	if len(readings) == 0 {
		return res
	}
	var sum float64
	for _, r := range readings {
		score := 100.0
		if r.SignalStrength < 50 {
			score -= float64(50 - r.SignalStrength)
		}
		if r.Issue != device.IssueNone {
			score -= 20
		}
		if r.ResponseTimeMS > 500 {
			score -= math.Min(30, float64((r.ResponseTimeMS-500)/100))
		}
		sum += math.Max(0, score)
	}
	res.Value = round1(sum / float64(len(readings)))
	res.Valid = true
	res.Devices = len(readings)
	return res
}

// IssueBreakdown histograms non-NONE issues by kind.
func IssueBreakdown(readings []*device.Reading) map[device.Issue]int {
	out := make(map[device.Issue]int)
	for _, r := range readings {
		if r.Issue != device.IssueNone {
			out[r.Issue]++
		}
	}
	return out
}

// Process runs the full pipeline over one frozen snapshot. An empty or
// nil slice yields a well-defined zero report.
func Process(readings []*device.Reading) Report {
	breakdown := IssueBreakdown(readings)
	issueCount := 0
	for _, n := range breakdown {
		issueCount += n
	}
	return Report{
		AvgTemperature: AvgTemperature(readings),
		TotalEnergy:    TotalEnergy(readings),
		AvgBattery:     AvgBattery(readings),
		ActiveDevices:  ActiveDevices(readings),
		AvgSignal:      AvgSignal(readings),
		AvgResponseMS:  AvgResponseTime(readings),
		HealthScore:    HealthScore(readings),
		Critical:       Critical(readings),
		IssueBreakdown: breakdown,
		TotalReadings:  len(readings),
		IssueCount:     issueCount,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
