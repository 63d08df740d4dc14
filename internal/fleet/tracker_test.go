package fleet

import (
	"testing"

	"github.com/andreivlad/ecohub/internal/device"
)

func TestTrackerActiveSet(t *testing.T) {
	tr := NewIssueTracker()

	tr.RecordIssue("thermo_01", device.IssueHighTemp)
	tr.RecordIssue("cam_01", device.IssueLowBattery)
	if got := tr.ActiveCount(); got != 2 {
		t.Fatalf("expected 2 active issues, got %d", got)
	}

	// A device stays active until its issue is resolved.
	tr.RecordIssue("thermo_01", device.IssueHighHumidity)
	if got := tr.ActiveCount(); got != 2 {
		t.Fatalf("re-detection must not duplicate active entries, got %d", got)
	}

	tr.RecordResolution("thermo_01", device.IssueHighHumidity)
	if got := tr.ActiveCount(); got != 1 {
		t.Fatalf("expected 1 active issue after resolution, got %d", got)
	}

	s := tr.Summary()
	if s.Detected[device.IssueHighTemp] != 1 || s.Detected[device.IssueHighHumidity] != 1 {
		t.Fatalf("unexpected detection counts: %v", s.Detected)
	}
	if s.Resolved[device.IssueHighHumidity] != 1 {
		t.Fatalf("unexpected resolution counts: %v", s.Resolved)
	}
	if _, ok := s.Active["cam_01"]; !ok {
		t.Fatal("cam_01 should still be active")
	}
}

func TestTrackerSummaryIsACopy(t *testing.T) {
	tr := NewIssueTracker()
	tr.RecordIssue("bulb_01", device.IssueBulbFlickering)

	s := tr.Summary()
	s.Detected[device.IssueBulbFlickering] = 99
	delete(s.Active, "bulb_01")

	fresh := tr.Summary()
	if fresh.Detected[device.IssueBulbFlickering] != 1 {
		t.Fatal("mutating a summary must not affect the tracker")
	}
	if tr.ActiveCount() != 1 {
		t.Fatal("active set leaked through the summary copy")
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewIssueTracker()
	tr.RecordIssue("bulb_01", device.IssueOverload)
	tr.Reset()

	if tr.ActiveCount() != 0 {
		t.Fatal("reset must clear the active set")
	}
	if len(tr.Summary().Detected) != 0 {
		t.Fatal("reset must clear the counters")
	}
}
