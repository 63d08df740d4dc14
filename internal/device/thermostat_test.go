package device

import (
	"math"
	"testing"
)

func TestThermostatHighTempAndCooling(t *testing.T) {
	// Frozen randomness: no wiggle, no drift, no link events.
	th := NewThermostat("thermo-1", "Thermo", "Living Room", stubRand{0.5})
	forceOnline(&th.link)
	th.SetCurrentTemp(32)
	th.SetTargetTemp(24)

	r, ok := th.Tick()
	if !ok {
		t.Fatal("expected a reading")
	}
	if r.Issue != IssueHighTemp {
		t.Fatalf("expected high_temp at 32C, got %q", r.Issue)
	}
	if r.Status != StatusWarning {
		t.Fatalf("expected warning status, got %q", r.Status)
	}

	before := th.CurrentTemp()
	if res := th.Execute("cool", nil); res != "cooling" {
		t.Fatalf("unexpected cool result %q", res)
	}
	if got := th.CurrentTemp(); math.Abs(before-2-got) > 1e-9 {
		t.Fatalf("cool must drop current temp by exactly 2, got %.2f -> %.2f", before, got)
	}
	if th.HVACMode() != "cool" {
		t.Fatalf("expected hvac mode cool, got %q", th.HVACMode())
	}
}

func TestThermostatLowTempAndHumidity(t *testing.T) {
	t.Run("low temp", func(t *testing.T) {
		th := NewThermostat("thermo-1", "Thermo", "Cellar", stubRand{0.5})
		forceOnline(&th.link)
		th.SetCurrentTemp(10)

		r, _ := th.Tick()
		if r.Issue != IssueLowTemp {
			t.Fatalf("expected low_temp at 10C, got %q", r.Issue)
		}
	})

	t.Run("high humidity", func(t *testing.T) {
		th := NewThermostat("thermo-1", "Thermo", "Bathroom", stubRand{0.5})
		forceOnline(&th.link)
		th.SetHumidity(80)

		r, _ := th.Tick()
		if r.Issue != IssueHighHumidity {
			t.Fatalf("expected high_humidity at 80%%, got %q", r.Issue)
		}

		if res := th.Execute("dehumidify", nil); res == "" {
			t.Fatal("expected dehumidify result")
		}
		if th.Humidity() > 75 {
			t.Fatalf("dehumidify should bring humidity down, got %.1f", th.Humidity())
		}
	})

	t.Run("sensor drift", func(t *testing.T) {
		th := NewThermostat("thermo-1", "Thermo", "Hall", stubRand{0.5})
		forceOnline(&th.link)
		th.sensorDrift = 3.5
		th.SetCurrentTemp(22)

		r, _ := th.Tick()
		if r.Issue != IssueSensorMalfunction {
			t.Fatalf("expected sensor_malfunction at drift 3.5, got %q", r.Issue)
		}

		th.Execute("calibrate", nil)
		if th.sensorDrift != 0 {
			t.Fatal("calibrate must zero the drift")
		}
	})
}

func TestThermostatTargetClamp(t *testing.T) {
	th := NewThermostat("thermo-1", "Thermo", "Hall", stubRand{0.5})

	th.SetTargetTemp(99)
	if th.TargetTemp() != 50 {
		t.Fatalf("expected clamp to 50, got %.1f", th.TargetTemp())
	}

	th.SetTargetTemp(-40)
	if th.TargetTemp() != -10 {
		t.Fatalf("expected clamp to -10, got %.1f", th.TargetTemp())
	}

	// Out-of-range command parameters are clamped, not rejected.
	if res := th.Execute("set_target", map[string]any{"temp": 200.0}); res != "target=50.0" {
		t.Fatalf("unexpected set_target result %q", res)
	}
}

func TestThermostatUnknownCommand(t *testing.T) {
	th := NewThermostat("thermo-1", "Thermo", "Hall", stubRand{0.5})
	if res := th.Execute("make_coffee", nil); res != "unknown cmd" {
		t.Fatalf("expected unknown cmd, got %q", res)
	}
}
