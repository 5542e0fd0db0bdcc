package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"serialplayer/player"
)

type fakeDYDevice struct {
	calls []string
	err   error
}

func (d *fakeDYDevice) record(format string, args ...any) error {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
	return d.err
}

func (d *fakeDYDevice) SetPlayingDevice(s DYStorage) error { return d.record("device %d", s) }
func (d *fakeDYDevice) PlaySpecifiedDevicePath(s DYStorage, path string) error {
	return d.record("play %d %s", s, path)
}
func (d *fakeDYDevice) Stop() error                     { return d.record("stop") }
func (d *fakeDYDevice) SetCycleMode(m DYPlayMode) error { return d.record("cycle %d", m) }
func (d *fakeDYDevice) SetVolume(v uint8) error         { return d.record("volume %d", v) }
func (d *fakeDYDevice) SetEq(eq uint8) error            { return d.record("eq %d", eq) }

func TestDY_BeginSequence(t *testing.T) {
	dev := &fakeDYDevice{}
	if err := NewDY(dev, nil).Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	want := []string{"device 1", "cycle 2", "eq 0"}
	if !reflect.DeepEqual(dev.calls, want) {
		t.Fatalf("calls = %v, want %v", dev.calls, want)
	}
}

func TestDY_BeginStopsOnFirstError(t *testing.T) {
	boom := errors.New("no ack")
	dev := &fakeDYDevice{err: boom}
	err := NewDY(dev, nil).Begin(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if len(dev.calls) != 1 {
		t.Fatalf("calls = %v, want only the first step", dev.calls)
	}
}

func TestDY_CommandsMapToVendorCalls(t *testing.T) {
	dev := &fakeDYDevice{}
	dy := NewDY(dev, nil)

	intents := []player.Intent{
		{Kind: player.IntentPlay, Value: 42},
		{Kind: player.IntentVolume, Value: 12},
		{Kind: player.IntentLoop, Value: 1},
		{Kind: player.IntentLoop, Value: 0},
		{Kind: player.IntentEqualizer, Preset: player.EqBass},
		{Kind: player.IntentStop},
	}
	for _, in := range intents {
		cmd, ok := dy.Translate(in)
		if !ok {
			t.Fatalf("%s not translated", in.Kind)
		}
		if err := dy.SendCommand(cmd); err != nil {
			t.Fatalf("%s: %v", in.Kind, err)
		}
	}
	want := []string{
		"play 1 /00042.mp3",
		"volume 12",
		"cycle 1",
		"cycle 2",
		"eq 0",
		"stop",
	}
	if !reflect.DeepEqual(dev.calls, want) {
		t.Fatalf("calls = %v, want %v", dev.calls, want)
	}
}

func TestDY_PlayIsPlayCommand(t *testing.T) {
	dy := NewDY(&fakeDYDevice{}, nil)
	cmd, _ := dy.Translate(player.Intent{Kind: player.IntentPlay, Value: 1})
	if !dy.IsPlayCommand(cmd.Op) {
		t.Fatalf("play opcode not reported as play command")
	}
	stop, _ := dy.Translate(player.Intent{Kind: player.IntentStop})
	if dy.IsPlayCommand(stop.Op) {
		t.Fatalf("stop opcode reported as play command")
	}
}

func TestDY_UnknownOpcode(t *testing.T) {
	dev := &fakeDYDevice{}
	err := NewDY(dev, nil).SendCommand(player.Command{Op: 0x7F})
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("err = %v", err)
	}
	if len(dev.calls) != 0 {
		t.Fatalf("unknown opcode reached device: %v", dev.calls)
	}
}

func TestDYSerial_PlayPathFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDYSerial(&buf).PlaySpecifiedDevicePath(DYStorageSD, "/00001.mp3"); err != nil {
		t.Fatalf("PlaySpecifiedDevicePath: %v", err)
	}
	data := append([]byte{byte(DYStorageSD)}, "/00001*MP3"...)
	want := encodeChecksumFrame(dyWirePlayDevicePath, data...)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("wire = % X, want % X", buf.Bytes(), want)
	}
	if buf.Bytes()[2] != 11 {
		t.Fatalf("length byte = %d, want 11", buf.Bytes()[2])
	}
}

func TestDYSerial_Volume(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDYSerial(&buf).SetVolume(20); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	want := []byte{0xAA, 0x13, 0x01, 0x14, 0xD2}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("wire = % X, want % X", buf.Bytes(), want)
	}
}
