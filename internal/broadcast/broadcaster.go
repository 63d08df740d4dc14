// Package broadcast pushes produced readings to an MQTT topic for live
// consumers (dashboards and the like).
package broadcast

import (
	"encoding/json"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/andreivlad/ecohub/internal/device"
	"github.com/andreivlad/ecohub/pkg/mqtt"
)

// Broadcaster serializes readings to JSON and publishes them behind a
// circuit breaker, so a flapping broker sheds load instead of stalling
// the subscriber fan-out.
type Broadcaster struct {
	pub mqtt.IPublisher
	cb  *gobreaker.CircuitBreaker
	log *zap.Logger
}

func New(pub mqtt.IPublisher, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "reading-broadcast",
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
	return &Broadcaster{pub: pub, cb: cb, log: logger}
}

// Publish is shaped to hang off Controller.OnUpdate. Failures are logged
// and absorbed; broadcasting is best-effort by design.
func (b *Broadcaster) Publish(r *device.Reading) {
	payload, err := json.Marshal(r)
	if err != nil {
		b.log.Error("marshal reading", zap.Error(err))
		return
	}
	if _, err := b.cb.Execute(func() (any, error) {
		return nil, b.pub.PublishMessage(payload)
	}); err != nil {
		b.log.Warn("broadcast dropped", zap.String("device_id", r.DeviceID), zap.Error(err))
	}
}

func (b *Broadcaster) Close() {
	b.pub.Close()
}
