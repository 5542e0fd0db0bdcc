package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01

	KEY_MUTE       = 113
	KEY_VOLUMEDOWN = 114
	KEY_VOLUMEUP   = 115
	KEY_PLAYPAUSE  = 164
	KEY_STOPCD     = 166
	KEY_PLAYCD     = 200
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Daemon defaults
const (
	defaultUpdateHz   = 50 // controller Update cadence
	defaultSocketPath = "/tmp/playerd.sock"
	defaultVolumeStep = 1
	callQueueSize     = 64
	inputQueueSize    = 64
)
