package broadcast_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andreivlad/ecohub/internal/broadcast"
	"github.com/andreivlad/ecohub/internal/device"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
}

func (f *fakePublisher) PublishMessage(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker gone")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func testReading() *device.Reading {
	return &device.Reading{
		DeviceID:       "bulb_01",
		DeviceType:     device.TypeBulb,
		Timestamp:      time.Now(),
		Payload:        map[string]any{"is_on": true},
		SignalStrength: 90,
		Status:         device.StatusOnline,
		Issue:          device.IssueNone,
		ResponseTimeMS: 40,
	}
}

func TestBroadcasterPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	b := broadcast.New(pub, nil)

	b.Publish(testReading())

	if pub.count() != 1 {
		t.Fatalf("expected 1 publish, got %d", pub.count())
	}

	var decoded device.Reading
	if err := json.Unmarshal(pub.payloads[0], &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.DeviceID != "bulb_01" || decoded.SignalStrength != 90 {
		t.Fatalf("round-trip mismatch: %+v", decoded)
	}
}

func TestBroadcasterAbsorbsBrokerFailures(t *testing.T) {
	pub := &fakePublisher{fail: true}
	b := broadcast.New(pub, nil)

	// The breaker opens after 5 consecutive failures; every call must
	// return without panicking either way.
	for i := 0; i < 10; i++ {
		b.Publish(testReading())
	}
	if pub.count() != 0 {
		t.Fatalf("failing publisher should deliver nothing, got %d", pub.count())
	}

	// An open breaker keeps rejecting even after the broker recovers,
	// until its timeout elapses.
	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()
	b.Publish(testReading())
	if pub.count() != 0 {
		t.Fatal("breaker should still be open")
	}
}

func TestBroadcasterClose(t *testing.T) {
	pub := &fakePublisher{}
	b := broadcast.New(pub, nil)
	b.Close()

	if !pub.closed {
		t.Fatal("close must propagate to the publisher")
	}
}
