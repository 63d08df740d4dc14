package device

import (
	"fmt"
	"strings"
)

// New builds a device from a configuration entry. Properties seed the
// type-specific state through the clamped setters; unknown properties are
// ignored. An unrecognized type is the only construction error.
func New(typ, id, name, location string, props map[string]any, rng Rand) (Device, error) {
	switch Type(strings.ToUpper(typ)) {
	case TypeBulb:
		b := NewBulb(id, name, location, rng)
		if _, ok := props["brightness"]; ok {
			b.SetBrightness(int(argFloat(props, "brightness", 100)))
		}
		if _, ok := props["is_on"]; ok {
			b.SetOn(argBool(props, "is_on", false))
		}
		return b, nil

	case TypeThermostat:
		t := NewThermostat(id, name, location, rng)
		if _, ok := props["target_temp"]; ok {
			t.SetTargetTemp(argFloat(props, "target_temp", 24))
		}
		if _, ok := props["current_temp"]; ok {
			t.SetCurrentTemp(argFloat(props, "current_temp", 22))
		}
		if _, ok := props["humidity"]; ok {
			t.SetHumidity(argFloat(props, "humidity", 50))
		}
		return t, nil

	case TypeCamera:
		c := NewCamera(id, name, location, rng)
		if _, ok := props["battery_level"]; ok {
			c.SetBatteryLevel(argFloat(props, "battery_level", 100))
		}
		return c, nil

	case TypeWaterMeter:
		w := NewWaterMeter(id, name, location, rng)
		if v, ok := props["water_source"].(string); ok {
			w.SetSource(v)
		}
		return w, nil
	}

	return nil, fmt.Errorf("unknown device type: %s", typ)
}
