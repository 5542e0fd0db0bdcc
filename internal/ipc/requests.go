// Package ipc implements the daemon's control protocol: line-delimited JSON
// requests over a Unix domain socket.
//
// Client sends:    {"type": "set_volume", "data": {"volume": 20}}
// Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
//
// A status request is answered with {"status": "ok", "data": {...snapshot}}.
package ipc

import (
	"encoding/json"
	"fmt"
	"time"
)

// Request is a marker interface for every control request.
type Request interface {
	requestType() string
}

// Play starts a track. DurationMs <= 0 plays until stopped.
type Play struct {
	Track      int    `json:"track"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Name       string `json:"name,omitempty"`
}

type Stop struct{}

type SetVolume struct {
	Volume int `json:"volume"`
}

// VolumeStep adjusts the volume relative to its current value.
type VolumeStep struct {
	Delta int `json:"delta"`
}

type SetLoop struct {
	Enabled bool `json:"enabled"`
}

// SetEqualizer carries a preset name (ROCK) or number (2).
type SetEqualizer struct {
	Preset string `json:"preset"`
}

type FadeIn struct {
	DurationMs      int64  `json:"duration_ms"`
	Target          int    `json:"target"`
	Track           int    `json:"track"`
	TrackDurationMs int64  `json:"track_duration_ms,omitempty"`
	Name            string `json:"name,omitempty"`
}

type FadeOut struct {
	DurationMs int64 `json:"duration_ms"`
	Target     int   `json:"target"`
	Stop       bool  `json:"stop,omitempty"`
}

type FadeTo struct {
	DurationMs int64 `json:"duration_ms"`
	Target     int   `json:"target"`
}

type CancelFade struct {
	StopIfFadingOut bool `json:"stop_if_fading_out,omitempty"`
}

// Status asks for a controller snapshot.
type Status struct{}

func (Play) requestType() string         { return "play" }
func (Stop) requestType() string         { return "stop" }
func (SetVolume) requestType() string    { return "set_volume" }
func (VolumeStep) requestType() string   { return "volume_step" }
func (SetLoop) requestType() string      { return "set_loop" }
func (SetEqualizer) requestType() string { return "set_eq" }
func (FadeIn) requestType() string       { return "fade_in" }
func (FadeOut) requestType() string      { return "fade_out" }
func (FadeTo) requestType() string       { return "fade_to" }
func (CancelFade) requestType() string   { return "cancel_fade" }
func (Status) requestType() string       { return "status" }

// Millis converts a millisecond count from the wire.
func Millis(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// Envelope wraps a request with a type discriminator.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Marshal encodes req as an envelope.
func Marshal(req Request) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	env := Envelope{Type: req.requestType()}
	switch req.(type) {
	case Stop, Status:
	default:
		data, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Unmarshal decodes an envelope into its concrete request.
func Unmarshal(data []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "play":
		return decode[Play](env)
	case "stop":
		return Stop{}, nil
	case "set_volume":
		return decode[SetVolume](env)
	case "volume_step":
		return decode[VolumeStep](env)
	case "set_loop":
		return decode[SetLoop](env)
	case "set_eq":
		return decode[SetEqualizer](env)
	case "fade_in":
		return decode[FadeIn](env)
	case "fade_out":
		return decode[FadeOut](env)
	case "fade_to":
		return decode[FadeTo](env)
	case "cancel_fade":
		if len(env.Data) == 0 {
			return CancelFade{}, nil
		}
		return decode[CancelFade](env)
	case "status":
		return Status{}, nil
	case "":
		return nil, fmt.Errorf("missing request type")
	default:
		return nil, fmt.Errorf("unknown request type: %s", env.Type)
	}
}

func decode[T Request](env Envelope) (Request, error) {
	var r T
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return r, nil
}
