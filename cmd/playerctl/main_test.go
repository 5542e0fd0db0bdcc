package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"serialplayer/internal/ipc"
	"serialplayer/player"
)

type recorder struct {
	socket string
	reqs   []ipc.Request
	resp   ipc.Response
	err    error
}

func (r *recorder) send(socketPath string, req ipc.Request) (ipc.Response, error) {
	r.socket = socketPath
	r.reqs = append(r.reqs, req)
	return r.resp, r.err
}

func execute(t *testing.T, r *recorder, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(r.send)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsBuildRequests(t *testing.T) {
	tests := []struct {
		args []string
		want ipc.Request
	}{
		{[]string{"play", "12", "--duration", "1500ms", "--name", "bell"}, ipc.Play{Track: 12, DurationMs: 1500, Name: "bell"}},
		{[]string{"play"}, ipc.Play{}},
		{[]string{"stop"}, ipc.Stop{}},
		{[]string{"volume", "20"}, ipc.SetVolume{Volume: 20}},
		{[]string{"step", "up"}, ipc.VolumeStep{Delta: 1}},
		{[]string{"step", "down", "3"}, ipc.VolumeStep{Delta: -3}},
		{[]string{"loop", "on"}, ipc.SetLoop{Enabled: true}},
		{[]string{"loop", "OFF"}, ipc.SetLoop{Enabled: false}},
		{[]string{"eq", "rock"}, ipc.SetEqualizer{Preset: "rock"}},
		{[]string{"fade-in", "4", "-d", "1s", "-t", "25"}, ipc.FadeIn{DurationMs: 1000, Target: 25, Track: 4}},
		{[]string{"fade-out", "--stop"}, ipc.FadeOut{DurationMs: 2000, Target: 0, Stop: true}},
		{[]string{"fade-to", "10", "-d", "500ms"}, ipc.FadeTo{DurationMs: 500, Target: 10}},
		{[]string{"cancel-fade", "--stop"}, ipc.CancelFade{StopIfFadingOut: true}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			r := &recorder{}
			out, err := execute(t, r, tt.args...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if len(r.reqs) != 1 || !reflect.DeepEqual(r.reqs[0], tt.want) {
				t.Fatalf("requests = %#v, want %#v", r.reqs, tt.want)
			}
			if r.socket != defaultSocketPath {
				t.Fatalf("socket = %q", r.socket)
			}
			if strings.TrimSpace(out) != "ok" {
				t.Fatalf("output = %q", out)
			}
		})
	}
}

func TestSocketFlag(t *testing.T) {
	r := &recorder{}
	if _, err := execute(t, r, "--socket", "/run/p.sock", "stop"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if r.socket != "/run/p.sock" {
		t.Fatalf("socket = %q", r.socket)
	}
}

func TestInvalidArgumentsSendNothing(t *testing.T) {
	for _, args := range [][]string{
		{"volume", "loud"},
		{"step", "sideways"},
		{"loop", "maybe"},
		{"eq", "disco"},
		{"play", "x"},
		{"fade-in"},
	} {
		r := &recorder{}
		if _, err := execute(t, r, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
		if len(r.reqs) != 0 {
			t.Fatalf("%v: sent %v", args, r.reqs)
		}
	}
}

func TestSendErrorIsReturned(t *testing.T) {
	r := &recorder{err: errors.New("connection refused")}
	if _, err := execute(t, r, "stop"); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("err = %v", err)
	}
}

func TestStatusTable(t *testing.T) {
	snap := player.Snapshot{
		Player:      "DFPlayer Mini",
		Status:      player.Playing,
		Track:       7,
		TrackName:   "chime",
		Volume:      12,
		Fade:        player.FadeIn,
		FadeTarget:  20,
		Equalizer:   player.EqRock,
		Looping:     true,
		DurationMS:  10000,
		ElapsedMS:   2500,
		RemainingMS: 7500,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	r := &recorder{resp: ipc.Response{Status: "ok", Data: data}}

	out, err := execute(t, r, "status")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"DFPlayer Mini", "7 (chime)", "12/30", "2.5s / 10s, 7.5s left", "on"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, ok := r.reqs[0].(ipc.Status); !ok {
		t.Fatalf("request = %#v", r.reqs[0])
	}
}

func TestStatusJSON(t *testing.T) {
	r := &recorder{resp: ipc.Response{Status: "ok", Data: json.RawMessage(`{"volume":3}`)}}
	out, err := execute(t, r, "status", "--json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != `{"volume":3}` {
		t.Fatalf("output = %q", out)
	}
}
