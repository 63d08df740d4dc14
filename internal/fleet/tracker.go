package fleet

import (
	"sync"

	"github.com/andreivlad/ecohub/internal/device"
)

// IssueTracker keeps per-kind detection/resolution counters and the map
// of devices with an unresolved issue. A device id is present in the
// active map iff its last recorded issue has not been resolved.
type IssueTracker struct {
	mu       sync.Mutex
	detected map[device.Issue]int
	resolved map[device.Issue]int
	active   map[string]device.Issue
}

func NewIssueTracker() *IssueTracker {
	return &IssueTracker{
		detected: make(map[device.Issue]int),
		resolved: make(map[device.Issue]int),
		active:   make(map[string]device.Issue),
	}
}

func (t *IssueTracker) RecordIssue(deviceID string, issue device.Issue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detected[issue]++
	t.active[deviceID] = issue
}

func (t *IssueTracker) RecordResolution(deviceID string, issue device.Issue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolved[issue]++
	delete(t.active, deviceID)
}

func (t *IssueTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Summary is a copied view of the tracker state.
type Summary struct {
	Detected map[device.Issue]int
	Resolved map[device.Issue]int
	Active   map[string]device.Issue
}

func (t *IssueTracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		Detected: make(map[device.Issue]int, len(t.detected)),
		Resolved: make(map[device.Issue]int, len(t.resolved)),
		Active:   make(map[string]device.Issue, len(t.active)),
	}
	for k, v := range t.detected {
		s.Detected[k] = v
	}
	for k, v := range t.resolved {
		s.Resolved[k] = v
	}
	for k, v := range t.active {
		s.Active[k] = v
	}
	return s
}

// Reset drops all counters; used by the explicit simulation reset.
func (t *IssueTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detected = make(map[device.Issue]int)
	t.resolved = make(map[device.Issue]int)
	t.active = make(map[string]device.Issue)
}
