package player

import (
	"fmt"
	"strings"
)

// EqualizerPreset selects one of the module-side EQ curves.
type EqualizerPreset uint8

const (
	EqNormal EqualizerPreset = iota
	EqPop
	EqRock
	EqJazz
	EqClassic
	EqBass
)

var eqNames = [...]string{"NORMAL", "POP", "ROCK", "JAZZ", "CLASSIC", "BASS"}

// Valid reports whether p is one of the six known presets.
func (p EqualizerPreset) Valid() bool { return int(p) < len(eqNames) }

func (p EqualizerPreset) String() string {
	if !p.Valid() {
		return "UNKNOWN"
	}
	return eqNames[p]
}

// ParseEqualizerPreset accepts a preset name (case-insensitive) or its
// numeric code.
func ParseEqualizerPreset(s string) (EqualizerPreset, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range eqNames {
		if n == name || fmt.Sprint(i) == name {
			return EqualizerPreset(i), nil
		}
	}
	return EqNormal, fmt.Errorf("unknown equalizer preset %q (want one of %s)", s, strings.Join(eqNames[:], ", "))
}
