package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"serialplayer/internal/serial"
	"serialplayer/player"
)

// Config is the top-level YAML configuration for playerd.
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Serial  SerialConfig  `yaml:"serial"`
	Stream  StreamConfig  `yaml:"stream"`
	Input   InputConfig   `yaml:"input"`
	IPC     IPCConfig     `yaml:"ipc"`
	Logging LoggingConfig `yaml:"logging"`
}

type PlayerConfig struct {
	// Backend is one of dfplayer, md, xy, dy, ak, noop.
	Backend       string `yaml:"backend"`
	UpdateHz      int    `yaml:"update_hz"`
	// InitialVolume is applied after init; 0 selects player.DefaultVolume.
	InitialVolume int    `yaml:"initial_volume"`
	Equalizer     string `yaml:"equalizer"`
	InitAttempts  int    `yaml:"init_attempts"`
	InitBackoffMS int    `yaml:"init_backoff_ms"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// StreamConfig configures the ak backend. Output "-" writes PCM to stdout;
// any other value is opened for writing (typically a FIFO read by aplay).
type StreamConfig struct {
	Dir         string `yaml:"dir"`
	Output      string `yaml:"output"`
	ChunkFrames int    `yaml:"chunk_frames"`
}

type InputConfig struct {
	Devices      []string `yaml:"devices,omitempty"`
	VolumeStep   int      `yaml:"volume_step"`
	DefaultTrack int      `yaml:"default_track"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

var backendNames = []string{"dfplayer", "md", "xy", "dy", "ak", "noop"}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Player: PlayerConfig{
			Backend:       "dfplayer",
			UpdateHz:      defaultUpdateHz,
			InitialVolume: player.DefaultVolume,
			Equalizer:     player.EqNormal.String(),
			InitAttempts:  3,
			InitBackoffMS: 500,
		},
		Serial: SerialConfig{
			Device: "/dev/ttyS0",
			Baud:   serial.DefaultBaud,
		},
		Stream: StreamConfig{
			Dir:    "/var/lib/playerd/tracks",
			Output: "-",
		},
		Input: InputConfig{
			VolumeStep:   defaultVolumeStep,
			DefaultTrack: 1,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads a YAML config file on top of DefaultConfig. Unknown
// fields and trailing documents are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// ============================================================================
// Environment overrides
// ============================================================================

// loadDotEnv loads path (or ./.env when path is empty) into the process
// environment. A missing default file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(ExpandPath(path)); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv applies PLAYERD_* variables found through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PLAYERD_BACKEND":       &cfg.Player.Backend,
		"PLAYERD_EQUALIZER":     &cfg.Player.Equalizer,
		"PLAYERD_SERIAL_DEVICE": &cfg.Serial.Device,
		"PLAYERD_STREAM_DIR":    &cfg.Stream.Dir,
		"PLAYERD_STREAM_OUTPUT": &cfg.Stream.Output,
		"PLAYERD_IPC_SOCKET":    &cfg.IPC.SocketPath,
		"PLAYERD_LOG_LEVEL":     &cfg.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PLAYERD_UPDATE_HZ":      &cfg.Player.UpdateHz,
		"PLAYERD_INITIAL_VOLUME": &cfg.Player.InitialVolume,
		"PLAYERD_SERIAL_BAUD":    &cfg.Serial.Baud,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := lookup("PLAYERD_INPUT_DEVICE"); ok {
		cfg.Input.Devices = []string{v}
	}
	return nil
}

// ============================================================================
// Flag overrides
// ============================================================================

// FlagOverrides holds flag values; nil pointers were not set on the command
// line.
type FlagOverrides struct {
	Backend      *string
	SerialDevice *string
	SerialBaud   *int
	StreamDir    *string
	InputDevice  *string
	SocketPath   *string
	UpdateHz     *int
	LogLevel     *string
}

// Apply merges the overrides into cfg. A non-nil pointer is applied even
// when it holds a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Backend != nil {
		cfg.Player.Backend = *o.Backend
	}
	if o.SerialDevice != nil {
		cfg.Serial.Device = *o.SerialDevice
	}
	if o.SerialBaud != nil {
		cfg.Serial.Baud = *o.SerialBaud
	}
	if o.StreamDir != nil {
		cfg.Stream.Dir = *o.StreamDir
	}
	if o.InputDevice != nil {
		cfg.Input.Devices = []string{*o.InputDevice}
	}
	if o.SocketPath != nil {
		cfg.IPC.SocketPath = *o.SocketPath
	}
	if o.UpdateHz != nil {
		cfg.Player.UpdateHz = *o.UpdateHz
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants after defaults, file, environment and
// flags have been applied.
func (c *Config) Validate() error {
	if !slices.Contains(backendNames, c.Player.Backend) {
		return fmt.Errorf("player.backend must be one of %v, got %q", backendNames, c.Player.Backend)
	}
	if c.Player.UpdateHz <= 0 || c.Player.UpdateHz > 1000 {
		return errors.New("player.update_hz must be between 1 and 1000")
	}
	if c.Player.InitialVolume < player.MinVolume || c.Player.InitialVolume > player.MaxVolume {
		return fmt.Errorf("player.initial_volume must be between %d and %d", player.MinVolume, player.MaxVolume)
	}
	if _, err := player.ParseEqualizerPreset(c.Player.Equalizer); err != nil {
		return fmt.Errorf("player.equalizer: %w", err)
	}
	if c.Player.InitAttempts < 1 {
		return errors.New("player.init_attempts must be >= 1")
	}
	if c.Player.InitBackoffMS < 0 {
		return errors.New("player.init_backoff_ms must be >= 0")
	}

	switch c.Player.Backend {
	case "dfplayer", "md", "xy", "dy":
		if c.Serial.Device == "" {
			return fmt.Errorf("serial.device must not be empty for backend %s", c.Player.Backend)
		}
		if c.Serial.Baud <= 0 {
			return errors.New("serial.baud must be > 0")
		}
	case "ak":
		if c.Stream.Dir == "" {
			return errors.New("stream.dir must not be empty for backend ak")
		}
		if c.Stream.Output == "" {
			return errors.New("stream.output must not be empty for backend ak")
		}
		if c.Stream.ChunkFrames < 0 {
			return errors.New("stream.chunk_frames must be >= 0")
		}
	}

	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.VolumeStep < 1 || c.Input.VolumeStep > player.MaxVolume {
		return fmt.Errorf("input.volume_step must be between 1 and %d", player.MaxVolume)
	}
	if c.Input.DefaultTrack < 1 || c.Input.DefaultTrack > 0xFFFF {
		return errors.New("input.default_track must be between 1 and 65535")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// ControllerConfig converts the file config into the controller's tunables.
func (c *Config) ControllerConfig() player.Config {
	return player.Config{
		InitialVolume: c.Player.InitialVolume,
		InitAttempts:  c.Player.InitAttempts,
		InitBackoff:   time.Duration(c.Player.InitBackoffMS) * time.Millisecond,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
