package remedy_test

import (
	"context"
	"testing"

	"github.com/andreivlad/ecohub/internal/device"
	"github.com/andreivlad/ecohub/internal/remedy"
)

type fixedRand struct{}

func (fixedRand) Float64() float64 { return 0.5 }
func (fixedRand) Intn(n int) int   { return n / 2 }

func TestRemediateHighTemp(t *testing.T) {
	th := device.NewThermostat("thermo-1", "Thermo", "Hall", fixedRand{})
	th.SetCurrentTemp(32)

	before := th.CurrentTemp()
	out := remedy.Remediate(context.Background(), th, device.IssueHighTemp, &device.Reading{
		Payload: map[string]any{"current_temp": 32.0},
	})

	if !out.Resolved {
		t.Fatal("cooling should resolve a high temperature")
	}
	if out.Result != "cooling" {
		t.Fatalf("unexpected result %q", out.Result)
	}
	if out.Context != "32.0C" {
		t.Fatalf("unexpected context %q", out.Context)
	}
	if th.CurrentTemp() != before-2 {
		t.Fatalf("expected temp drop of 2, got %.1f -> %.1f", before, th.CurrentTemp())
	}
}

func TestRemediateAdvisoryIssues(t *testing.T) {
	t.Run("low battery warns only", func(t *testing.T) {
		cam := device.NewCamera("cam-1", "Cam", "Door", fixedRand{})
		cam.SetBatteryLevel(15)

		out := remedy.Remediate(context.Background(), cam, device.IssueLowBattery, nil)
		if out.Resolved {
			t.Fatal("low battery must stay advisory")
		}
		if cam.IsCharging() {
			t.Fatal("advisory must not start charging")
		}
	})

	t.Run("motion alert warns only", func(t *testing.T) {
		cam := device.NewCamera("cam-1", "Cam", "Door", fixedRand{})

		out := remedy.Remediate(context.Background(), cam, device.IssueMotionAlert, nil)
		if out.Resolved {
			t.Fatal("motion must stay advisory")
		}
		if out.Label == "" {
			t.Fatal("advisory outcomes still carry the catalogue label")
		}
	})
}

func TestRemediateCriticalBattery(t *testing.T) {
	cam := device.NewCamera("cam-1", "Cam", "Door", fixedRand{})
	cam.SetBatteryLevel(3)

	out := remedy.Remediate(context.Background(), cam, device.IssueCriticalBattery, &device.Reading{
		Payload: map[string]any{"battery_level": 3.0},
	})
	if !out.Resolved {
		t.Fatal("critical battery should be resolved by charging")
	}
	if !cam.IsCharging() {
		t.Fatal("expected the camera to start charging")
	}
}

func TestRemediateWeakSignal(t *testing.T) {
	b := device.NewBulb("bulb-1", "Bulb", "Hall", fixedRand{})

	out := remedy.Remediate(context.Background(), b, device.IssueWeakSignal, &device.Reading{SignalStrength: 25})
	if !out.Resolved {
		t.Fatal("boosting should resolve a weak signal")
	}
	if out.Context != "25%" {
		t.Fatalf("unexpected context %q", out.Context)
	}
}

func TestRemediateUnknownIssue(t *testing.T) {
	b := device.NewBulb("bulb-1", "Bulb", "Hall", fixedRand{})

	out := remedy.Remediate(context.Background(), b, device.Issue("quantum_flux"), nil)
	if out.Resolved || out.Label != "" || out.Result != "" {
		t.Fatalf("unknown issues must be ignored, got %+v", out)
	}
}

func TestRemediateNilReading(t *testing.T) {
	// A missing reading is fine; the context string just defaults.
	th := device.NewThermostat("thermo-1", "Thermo", "Hall", fixedRand{})

	out := remedy.Remediate(context.Background(), th, device.IssueHighTemp, nil)
	if !out.Resolved {
		t.Fatal("remediation must not depend on the reading")
	}
	if out.Context != "0.0C" {
		t.Fatalf("unexpected context %q", out.Context)
	}
}

func TestCatalogueCoversReportableIssues(t *testing.T) {
	reportable := []device.Issue{
		device.IssueHighTemp, device.IssueLowTemp, device.IssueHighHumidity,
		device.IssueLowBattery, device.IssueCriticalBattery, device.IssueConnectionLost,
		device.IssueWeakSignal, device.IssueFirmwareUpdate, device.IssueSensorMalfunction,
		device.IssueStorageFull, device.IssueMotionAlert, device.IssueBulbFlickering,
		device.IssueUnresponsive, device.IssueOverload,
	}
	for _, issue := range reportable {
		if _, ok := remedy.Catalogue[issue]; !ok {
			t.Errorf("catalogue is missing %q", issue)
		}
	}
	if _, ok := remedy.Catalogue[device.IssueNone]; ok {
		t.Error("NONE must not be remediable")
	}
}
