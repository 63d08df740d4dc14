package device

import (
	"math"
	"time"
)

// WaterMeter tracks water consumption for one source. Usage is driven by
// probability-based events sized so that daily totals land in a realistic
// household range for the configured source.
type WaterMeter struct {
	link

	flowRate      float64 // liters per minute
	totalLiters   float64
	dailyLiters   float64
	monthlyLiters float64
	flowing       bool
	leakDetected  bool
	valveOpen     bool
	source        string // main, bathroom, kitchen, garden
	pressureBar   float64
	temperatureC  float64
	lastUsage     time.Time
}

func NewWaterMeter(id, name, location string, rng Rand) *WaterMeter {
	w := &WaterMeter{
		link:         newLink(TypeWaterMeter, id, name, location, rng),
		valveOpen:    true,
		source:       "main",
		pressureBar:  3.0,
		temperatureC: 18.0,
		lastUsage:    time.Now(),
	}
	// Seed with plausible history: ~150L/day per person household.
	w.monthlyLiters = uniform(w.rng, 3000, 8000)
	w.dailyLiters = uniform(w.rng, 50, 200)
	w.totalLiters = w.monthlyLiters + uniform(w.rng, 10000, 50000)
	return w
}

func (w *WaterMeter) FlowRate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flowRate
}

func (w *WaterMeter) DailyUsage() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dailyLiters
}

func (w *WaterMeter) MonthlyUsage() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.monthlyLiters
}

func (w *WaterMeter) TotalUsage() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalLiters
}

func (w *WaterMeter) Source() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

func (w *WaterMeter) SetSource(src string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.source = src
}

// simulateUsage draws at most one consumption event per tick. The event
// probabilities assume on the order of a thousand ticks per simulated day.
func (w *WaterMeter) simulateUsage() {
	if !w.valveOpen {
		w.flowing = false
		w.flowRate = 0
		return
	}

	var usage float64

	switch w.source {
	case "bathroom":
		// Showers, toilet, sink: ~80-120 L/day.
		if w.rng.Float64() < 0.015 {
			w.flowing = true
			switch roll := w.rng.Float64(); {
			case roll < 0.15: // shower
				w.flowRate = uniform(w.rng, 8, 12)
				usage = uniform(w.rng, 40, 80)
			case roll < 0.65: // toilet flush
				w.flowRate = uniform(w.rng, 6, 9)
				usage = uniform(w.rng, 4, 9)
			default: // tap
				w.flowRate = uniform(w.rng, 4, 8)
				usage = uniform(w.rng, 1, 5)
			}
		} else {
			w.flowing = false
			w.flowRate = 0
		}
	case "kitchen":
		// Cooking, dishes, drinking: ~50-80 L/day.
		if w.rng.Float64() < 0.012 {
			w.flowing = true
			w.flowRate = uniform(w.rng, 3, 8)
			usage = uniform(w.rng, 2, 15)
		} else {
			w.flowing = false
			w.flowRate = 0
		}
	case "garden":
		// Seasonal watering, not daily.
		if w.rng.Float64() < 0.005 {
			w.flowing = true
			w.flowRate = uniform(w.rng, 10, 20)
			usage = uniform(w.rng, 20, 100)
		} else {
			w.flowing = false
			w.flowRate = 0
		}
	default: // main meter aggregates all sources
		if w.rng.Float64() < 0.02 {
			w.flowing = true
			w.flowRate = uniform(w.rng, 5, 12)
			usage = uniform(w.rng, 5, 30)
		} else {
			w.flowing = false
			w.flowRate = 0
		}
	}

	if usage > 0 {
		w.dailyLiters += usage
		w.monthlyLiters += usage
		w.totalLiters += usage
		w.lastUsage = time.Now()
	}

	w.pressureBar = clampFloat(w.pressureBar+uniform(w.rng, -0.1, 0.1), 1.5, 5.0)
	w.temperatureC = clampFloat(w.temperatureC+uniform(w.rng, -1, 1), 8, 25)
}

func (w *WaterMeter) Tick() (*Reading, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick(w.variantIssue, w.payload)
}

func (w *WaterMeter) variantIssue() Issue {
	if w.rng.Float64() < 0.02 {
		w.leakDetected = true
		w.issue = IssueLeakDetected
		w.status = StatusError
		return IssueLeakDetected
	}

	// Potential burst pipe or tap left open.
	if w.flowRate > 18 {
		w.issue = IssueHighFlow
		w.status = StatusWarning
		return IssueHighFlow
	}

	if w.dailyLiters > 500 {
		w.issue = IssueAbnormalUsage
		w.status = StatusWarning
		return IssueAbnormalUsage
	}

	// A detected leak may turn out to be a false alarm.
	if w.leakDetected && w.rng.Float64() < 0.3 {
		w.leakDetected = false
		w.issue = IssueNone
		w.status = StatusOnline
	}

	return IssueNone
}

func (w *WaterMeter) payload() map[string]any {
	w.simulateUsage()

	return map[string]any{
		"flow_rate":     math.Round(w.flowRate*100) / 100,
		"is_flowing":    w.flowing,
		"daily_usage":   math.Round(w.dailyLiters*10) / 10,
		"monthly_usage": math.Round(w.monthlyLiters*10) / 10,
		"total_usage":   math.Round(w.totalLiters*10) / 10,
		"pressure_bar":  math.Round(w.pressureBar*100) / 100,
		"temperature_c": math.Round(w.temperatureC*10) / 10,
		"valve_open":    w.valveOpen,
		"water_source":  w.source,
		"leak_detected": w.leakDetected,
	}
}

// closeValve is the emergency shutoff.
func (w *WaterMeter) closeValve() {
	w.valveOpen = false
	w.flowRate = 0
	w.flowing = false
}

// ResetDaily zeroes the daily usage counter.
func (w *WaterMeter) ResetDaily() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dailyLiters = 0
}

// ResetMonthly zeroes the monthly usage counter.
func (w *WaterMeter) ResetMonthly() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.monthlyLiters = 0
}

func (w *WaterMeter) acknowledgeLeak() {
	w.leakDetected = false
	w.issue = IssueNone
	w.status = StatusOnline
}

func (w *WaterMeter) Execute(cmd string, args map[string]any) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch cmd {
	case "close_valve":
		w.closeValve()
		return "closed"
	case "open_valve":
		w.valveOpen = true
		return "opened"
	case "reset_daily":
		w.dailyLiters = 0
		return "daily reset"
	case "reset_monthly":
		w.monthlyLiters = 0
		return "monthly reset"
	case "ack_leak":
		w.acknowledgeLeak()
		return "acknowledged"
	}
	return "?"
}

func (w *WaterMeter) Snapshot() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.snapshotBase()
	s["flow_rate"] = w.flowRate
	s["daily_usage"] = w.dailyLiters
	s["monthly_usage"] = w.monthlyLiters
	s["total_usage"] = w.totalLiters
	s["valve_open"] = w.valveOpen
	s["water_source"] = w.source
	s["leak_detected"] = w.leakDetected
	return s
}
