package models

import "time"

// Disguise enumerates the fake-app presentations available in duress mode.
type Disguise string

const (
	DisguiseCalculator Disguise = "calculator"
	DisguiseWeather    Disguise = "weather"
	DisguiseNotes      Disguise = "notes"
)

// Disguises lists every selectable disguise. Selection is uniform random,
// exactly once per activation.
var Disguises = []Disguise{DisguiseCalculator, DisguiseWeather, DisguiseNotes}

// DuressSession tracks an active disguise period. ActivatedAt is sticky:
// repeated activation triggers must not reset it.
type DuressSession struct {
	Active           bool
	ActivatedAt      *time.Time
	SelectedDisguise Disguise
}
