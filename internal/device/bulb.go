package device

import "fmt"

// Bulb is a dimmable smart light. Power draw scales linearly with
// brightness up to 10W; standby draws 0.1W.
type Bulb struct {
	link

	on         bool
	brightness int
	powerDraw  float64
	flickering bool
	colorTemp  int // Kelvin
}

func NewBulb(id, name, location string, rng Rand) *Bulb {
	return &Bulb{
		link:       newLink(TypeBulb, id, name, location, rng),
		brightness: 100,
		colorTemp:  4000,
	}
}

func (b *Bulb) IsOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}

func (b *Bulb) Brightness() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.brightness
}

func (b *Bulb) SetOn(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.on = on
}

// SetBrightness clamps to [0,100] rather than rejecting.
func (b *Bulb) SetBrightness(level int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.brightness = clampInt(level, 0, 100)
}

func (b *Bulb) Tick() (*Reading, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tick(b.variantIssue, b.payload)
}

func (b *Bulb) variantIssue() Issue {
	// Flickering is more likely while the bulb is driven.
	if b.on && b.rng.Float64() < 0.04 {
		b.flickering = true
		b.issue = IssueBulbFlickering
		b.status = StatusWarning
		return IssueBulbFlickering
	}

	if b.on && b.brightness == 100 && b.rng.Float64() < 0.02 {
		b.issue = IssueOverload
		b.status = StatusWarning
		return IssueOverload
	}

	b.flickering = false
	return IssueNone
}

func (b *Bulb) payload() map[string]any {
	if b.on {
		b.powerDraw = float64(b.brightness) / 100 * 10
	} else {
		b.powerDraw = 0.1 // standby
	}
	return map[string]any{
		"is_on":      b.on,
		"brightness": b.brightness,
		"power_draw": b.powerDraw,
		"color_temp": b.colorTemp,
		"flickering": b.flickering,
	}
}

// fixFlicker resets the bulb and backs brightness off slightly.
func (b *Bulb) fixFlicker() {
	b.flickering = false
	b.brightness = max(80, b.brightness-10)
	b.issue = IssueNone
	b.status = StatusOnline
}

// reduceLoad caps brightness to head off an overload.
func (b *Bulb) reduceLoad() int {
	b.brightness = min(75, b.brightness)
	b.issue = IssueNone
	b.status = StatusOnline
	return b.brightness
}

func (b *Bulb) Execute(cmd string, args map[string]any) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch cmd {
	case "turn_on":
		b.on = true
		return "ok"
	case "turn_off":
		b.on = false
		return "ok"
	case "set_brightness":
		b.brightness = clampInt(int(argFloat(args, "level", 100)), 0, 100)
		return fmt.Sprintf("brightness=%d", b.brightness)
	case "toggle":
		b.on = !b.on
		return "toggled"
	case "fix_flicker":
		b.fixFlicker()
		return "fixed"
	case "reduce_load":
		return fmt.Sprintf("reduced to %d%%", b.reduceLoad())
	}
	return "?"
}

func (b *Bulb) Snapshot() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.snapshotBase()
	s["is_on"] = b.on
	s["brightness"] = b.brightness
	s["power_draw"] = b.powerDraw
	s["color_temp"] = b.colorTemp
	s["flickering"] = b.flickering
	return s
}
