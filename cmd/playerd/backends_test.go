package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

type bufferPort struct {
	bytes.Buffer
	closed bool
}

func (p *bufferPort) Close() error { p.closed = true; return nil }

func TestOpenBackend_SerialKinds(t *testing.T) {
	port := &bufferPort{}
	orig := openPort
	openPort = func(string, int) (io.ReadWriteCloser, error) { return port, nil }
	t.Cleanup(func() { openPort = orig })

	want := map[string]string{
		"dfplayer": "DFPlayer",
		"md":       "MD Player",
		"xy":       "XY Player",
		"dy":       "DY Player",
	}
	for kind, name := range want {
		cfg := DefaultConfig()
		cfg.Player.Backend = kind
		b, closer, err := openBackend(cfg, slog.New(slog.DiscardHandler))
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if b.Name() != name {
			t.Errorf("%s: name = %q, want %q", kind, b.Name(), name)
		}
		if closer != port {
			t.Errorf("%s: closer is not the serial port", kind)
		}
	}
}

func TestOpenBackend_StreamAndNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Player.Backend = "ak"
	cfg.Stream.Dir = t.TempDir()
	cfg.Stream.Output = filepath.Join(t.TempDir(), "out.pcm")

	b, closer, err := openBackend(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("ak: %v", err)
	}
	if b.Name() != "AK Player" {
		t.Fatalf("name = %q", b.Name())
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close output: %v", err)
	}

	cfg.Player.Backend = "noop"
	if b, _, err = openBackend(cfg, slog.New(slog.DiscardHandler)); err != nil || b.Name() != "No Player" {
		t.Fatalf("noop = %v, %v", b, err)
	}

	cfg.Player.Backend = "tape"
	if _, _, err := openBackend(cfg, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatalf("unknown backend accepted")
	}
}
