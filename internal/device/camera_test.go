package device

import "testing"

func TestCameraBatteryIssues(t *testing.T) {
	t.Run("critical battery wins over low battery", func(t *testing.T) {
		c := NewCamera("cam-1", "Cam", "Door", stubRand{0.5})
		forceOnline(&c.link)
		c.SetBatteryLevel(3)

		r, ok := c.Tick()
		if !ok {
			t.Fatal("expected a reading")
		}
		if r.Issue != IssueCriticalBattery {
			t.Fatalf("expected critical_battery at 3%%, got %q", r.Issue)
		}
		if r.Status != StatusError {
			t.Fatalf("critical battery must report error status, got %q", r.Status)
		}

		if res := c.Execute("charge", nil); res != "charging" {
			t.Fatalf("unexpected charge result %q", res)
		}
		if !c.IsCharging() {
			t.Fatal("charge must flip the charging flag")
		}
		if c.Issue() != IssueNone {
			t.Fatal("charge must clear the battery issue")
		}
	})

	t.Run("low battery below 20", func(t *testing.T) {
		c := NewCamera("cam-1", "Cam", "Door", stubRand{0.5})
		forceOnline(&c.link)
		c.SetBatteryLevel(15)

		r, _ := c.Tick()
		if r.Issue != IssueLowBattery {
			t.Fatalf("expected low_battery at 15%%, got %q", r.Issue)
		}
	})

	t.Run("charging raises the level", func(t *testing.T) {
		c := NewCamera("cam-1", "Cam", "Door", stubRand{0.5})
		forceOnline(&c.link)
		c.SetBatteryLevel(50)
		c.Execute("charge", nil)

		c.Tick()
		if c.BatteryLevel() <= 50 {
			t.Fatalf("battery should climb while charging, got %.2f", c.BatteryLevel())
		}
	})
}

func TestCameraStorageFull(t *testing.T) {
	c := NewCamera("cam-1", "Cam", "Door", stubRand{0.5})
	forceOnline(&c.link)
	c.mu.Lock()
	c.storageUsedMB = c.storageCapMB * 0.95
	c.mu.Unlock()

	r, _ := c.Tick()
	if r.Issue != IssueStorageFull {
		t.Fatalf("expected storage_full above 90%%, got %q", r.Issue)
	}

	c.Execute("clear_storage", nil)
	if got := c.StoragePercent(); got < 29 || got > 32 {
		t.Fatalf("clear_storage should land near 30%%, got %.1f", got)
	}
	if c.Issue() != IssueNone {
		t.Fatal("clear_storage must resolve the issue")
	}
}

func TestCameraMotionAlert(t *testing.T) {
	// 0.2 triggers the 30% motion roll but none of the link events.
	c := NewCamera("cam-1", "Cam", "Door", stubRand{0.2})
	forceOnline(&c.link)

	used := c.StoragePercent()
	c.Tick() // payload detects motion, snapshot + recording start

	r, _ := c.Tick() // the alert is reported on the next pass
	if r.Issue != IssueMotionAlert {
		t.Fatalf("expected motion_alert, got %q", r.Issue)
	}
	if r.Status != StatusOnline {
		t.Fatalf("motion must not degrade status, got %q", r.Status)
	}
	if c.StoragePercent() <= used {
		t.Fatal("recording must consume storage")
	}
}
