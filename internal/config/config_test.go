package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogFile != "history.log" {
		t.Fatalf("unexpected default log file %q", cfg.LogFile)
	}
	if cfg.TimeMultiplier != 1 {
		t.Fatalf("unexpected default multiplier %d", cfg.TimeMultiplier)
	}
	if cfg.Cooldown != 5*time.Second {
		t.Fatalf("unexpected default cooldown %s", cfg.Cooldown)
	}
	if cfg.MQTTEnabled {
		t.Fatal("mqtt must be opt-in")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	os.Setenv("ECOHUB_LOG_FILE", "/tmp/fleet.log")
	os.Setenv("ECOHUB_TIME_MULTIPLIER", "60")
	os.Setenv("ECOHUB_COOLDOWN", "10s")
	os.Setenv("ECOHUB_BUFFER_CAP", "250")
	os.Setenv("ECOHUB_MQTT_ENABLED", "true")
	defer func() {
		os.Unsetenv("ECOHUB_LOG_FILE")
		os.Unsetenv("ECOHUB_TIME_MULTIPLIER")
		os.Unsetenv("ECOHUB_COOLDOWN")
		os.Unsetenv("ECOHUB_BUFFER_CAP")
		os.Unsetenv("ECOHUB_MQTT_ENABLED")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogFile != "/tmp/fleet.log" {
		t.Fatalf("log file override ignored: %q", cfg.LogFile)
	}
	if cfg.TimeMultiplier != 60 {
		t.Fatalf("multiplier override ignored: %d", cfg.TimeMultiplier)
	}
	if cfg.Cooldown != 10*time.Second {
		t.Fatalf("cooldown override ignored: %s", cfg.Cooldown)
	}
	if cfg.BufferCap != 250 {
		t.Fatalf("buffer cap override ignored: %d", cfg.BufferCap)
	}
	if !cfg.MQTTEnabled {
		t.Fatal("mqtt enable flag ignored")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("multiplier outside the closed set", func(t *testing.T) {
		os.Setenv("ECOHUB_TIME_MULTIPLIER", "7")
		defer os.Unsetenv("ECOHUB_TIME_MULTIPLIER")

		if _, err := Load(); err == nil {
			t.Fatal("expected an error for multiplier 7")
		}
	})

	t.Run("inverted update interval", func(t *testing.T) {
		os.Setenv("ECOHUB_UPDATE_INTERVAL_MIN", "5s")
		os.Setenv("ECOHUB_UPDATE_INTERVAL_MAX", "1s")
		defer func() {
			os.Unsetenv("ECOHUB_UPDATE_INTERVAL_MIN")
			os.Unsetenv("ECOHUB_UPDATE_INTERVAL_MAX")
		}()

		if _, err := Load(); err == nil {
			t.Fatal("expected an error for max < min")
		}
	})

	t.Run("unparseable values fall back", func(t *testing.T) {
		os.Setenv("ECOHUB_QUEUE_SIZE", "not-a-number")
		defer os.Unsetenv("ECOHUB_QUEUE_SIZE")

		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.QueueSize != 4096 {
			t.Fatalf("expected the default queue size, got %d", cfg.QueueSize)
		}
	})
}

func TestLoadDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	data := `[
		{"id": "bulb_01", "type": "bulb", "name": "Porch Light", "location": "Porch",
		 "properties": {"brightness": 80, "is_on": true}},
		{"id": "water_01", "type": "water_meter", "name": "Main Meter", "location": "Utility"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	devs, err := LoadDevices(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(devs))
	}
	if devs[0].ID != "bulb_01" || devs[0].Type != "bulb" {
		t.Fatalf("unexpected first entry: %+v", devs[0])
	}
	if b, ok := devs[0].Properties["brightness"].(float64); !ok || b != 80 {
		t.Fatalf("properties not decoded: %+v", devs[0].Properties)
	}
	if devs[1].Properties != nil {
		t.Fatal("missing properties must decode as nil")
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadDevices(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Fatal("expected an error for a missing file")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadDevices(bad); err == nil {
			t.Fatal("expected a parse error")
		}
	})
}
