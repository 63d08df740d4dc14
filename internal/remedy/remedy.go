// Package remedy maps detected device issues to corrective actions.
package remedy

import (
	"context"
	"fmt"

	"github.com/andreivlad/ecohub/internal/device"
)

// Action describes how an issue is presented and what the fix does.
type Action struct {
	Label string
	Verb  string
}

// Catalogue covers every remediable issue. Issues missing from the map
// (including NONE) are ignored by Remediate.
var Catalogue = map[device.Issue]Action{
	device.IssueHighTemp:          {"High Temperature", "Activating cooling"},
	device.IssueLowTemp:           {"Low Temperature", "Activating heating"},
	device.IssueHighHumidity:      {"High Humidity", "Running dehumidifier"},
	device.IssueLowBattery:        {"Low Battery", "Warning"},
	device.IssueCriticalBattery:   {"Critical Battery", "Starting charge"},
	device.IssueConnectionLost:    {"Connection Lost", "Reconnecting"},
	device.IssueWeakSignal:        {"Weak Signal", "Boosting signal"},
	device.IssueFirmwareUpdate:    {"Firmware Update", "Installing update"},
	device.IssueSensorMalfunction: {"Sensor Drift", "Recalibrating"},
	device.IssueStorageFull:       {"Storage Full", "Clearing old files"},
	device.IssueMotionAlert:       {"Motion Detected", "Recording"},
	device.IssueBulbFlickering:    {"Bulb Flickering", "Resetting bulb"},
	device.IssueUnresponsive:      {"Unresponsive", "Restarting device"},
	device.IssueOverload:          {"Overload Warning", "Reducing load"},
}

// Outcome reports what the policy did for one issue.
type Outcome struct {
	Issue    device.Issue
	Label    string
	Action   string
	Context  string
	Result   string
	Resolved bool
}

func payloadFloat(r *device.Reading, key string) float64 {
	if r == nil || r.Payload == nil {
		return 0
	}
	switch v := r.Payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Remediate attempts an automatic fix for the given issue. Advisory
// issues (LOW_BATTERY, MOTION_ALERT) are reported without a corrective
// command and never count as resolved. A reconnect-style fix suspends on
// the device's simulated link latency; the caller's context bounds it.
func Remediate(ctx context.Context, d device.Device, issue device.Issue, r *device.Reading) Outcome {
	info, ok := Catalogue[issue]
	if !ok {
		return Outcome{Issue: issue}
	}

	out := Outcome{Issue: issue, Label: info.Label, Action: info.Verb}

	switch issue {
	case device.IssueHighTemp:
		out.Context = fmt.Sprintf("%.1fC", payloadFloat(r, "current_temp"))
		out.Result = d.Execute("cool", nil)
		out.Resolved = true

	case device.IssueLowTemp:
		out.Context = fmt.Sprintf("%.1fC", payloadFloat(r, "current_temp"))
		out.Result = d.Execute("heat", nil)
		out.Resolved = true

	case device.IssueHighHumidity:
		out.Context = fmt.Sprintf("%.1f%%", payloadFloat(r, "humidity"))
		out.Result = d.Execute("dehumidify", nil)
		out.Resolved = true

	case device.IssueSensorMalfunction:
		out.Context = fmt.Sprintf("drift %.1fC", payloadFloat(r, "sensor_drift"))
		out.Result = d.Execute("calibrate", nil)
		out.Resolved = true

	case device.IssueLowBattery:
		// Warn only; charging is left to the owner.
		out.Context = fmt.Sprintf("%.1f%%", payloadFloat(r, "battery_level"))

	case device.IssueCriticalBattery:
		out.Context = fmt.Sprintf("%.1f%%", payloadFloat(r, "battery_level"))
		out.Result = d.Execute("charge", nil)
		out.Resolved = true

	case device.IssueStorageFull:
		out.Context = fmt.Sprintf("%.1f%%", payloadFloat(r, "storage_percent"))
		out.Result = d.Execute("clear_storage", nil)
		out.Resolved = true

	case device.IssueConnectionLost:
		out.Context = "signal lost"
		if d.Reconnect(ctx) {
			out.Result = fmt.Sprintf("reconnected (%d%%)", d.SignalStrength())
			out.Resolved = true
		}

	case device.IssueWeakSignal:
		if r != nil {
			out.Context = fmt.Sprintf("%d%%", r.SignalStrength)
		}
		out.Result = fmt.Sprintf("boosted to %d%%", d.BoostSignal())
		out.Resolved = true

	case device.IssueFirmwareUpdate:
		out.Context = "v" + d.FirmwareVersion()
		out.Result = "updated to v" + d.UpdateFirmware()
		out.Resolved = true

	case device.IssueBulbFlickering:
		out.Context = fmt.Sprintf("%.0f%% brightness", payloadFloat(r, "brightness"))
		out.Result = d.Execute("fix_flicker", nil)
		out.Resolved = true

	case device.IssueOverload:
		out.Context = fmt.Sprintf("%.1fW", payloadFloat(r, "power_draw"))
		out.Result = d.Execute("reduce_load", nil)
		out.Resolved = true

	case device.IssueUnresponsive:
		if r != nil {
			out.Context = fmt.Sprintf("%dms latency", r.ResponseTimeMS)
		}
		if d.Reconnect(ctx) {
			out.Result = "restarted"
			out.Resolved = true
		}

	case device.IssueMotionAlert:
		// Advisory: the camera is already recording.
	}

	return out
}
