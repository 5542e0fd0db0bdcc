package player

import "time"

// Volume range understood by every supported module.
const (
	MinVolume     = 0
	MaxVolume     = 30
	DefaultVolume = 15
)

// Fade timing
const (
	// MinFadeDuration is the floor applied to every requested fade duration.
	MinFadeDuration = 1400 * time.Millisecond

	minFadeInterval = 10 * time.Millisecond
	maxFadeInterval = 500 * time.Millisecond
	fadeStep        = 1
)

// Track addressing
const (
	// TracksPerFolder is the number of tracks a folder-addressed module can hold.
	TracksPerFolder = 255

	minTrack = 1
	maxTrack = 0xFFFF
)

// Initialization defaults
const (
	defaultInitAttempts = 3
	defaultInitBackoff  = 500 * time.Millisecond
)
