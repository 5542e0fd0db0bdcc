package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"serialplayer/internal/ipc"
	"serialplayer/player"
)

// ============================================================================
// playerctl - Command-line IPC Client
// ============================================================================
// Sends requests to playerd over its Unix domain socket.
//
// Usage:
//   playerctl play 12 --duration 30s --name doorbell
//   playerctl volume 20
//   playerctl fade-out --duration 3s --stop
//   playerctl status
// ============================================================================

const defaultSocketPath = "/tmp/playerd.sock"

type sendFunc func(socketPath string, req ipc.Request) (ipc.Response, error)

func main() {
	if err := newRootCmd(ipc.Send).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(send sendFunc) *cobra.Command {
	var socketPath string

	root := &cobra.Command{
		Use:          "playerctl",
		Short:        "Control a running playerd",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&socketPath, "socket", "s", defaultSocketPath, "Unix domain socket path of playerd")

	do := func(cmd *cobra.Command, req ipc.Request) error {
		if _, err := send(socketPath, req); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}

	root.AddCommand(
		playCmd(do),
		simpleCmd("stop", "Stop playback", ipc.Stop{}, do),
		volumeCmd(do),
		stepCmd(do),
		loopCmd(do),
		eqCmd(do),
		fadeInCmd(do),
		fadeOutCmd(do),
		fadeToCmd(do),
		cancelFadeCmd(do),
		statusCmd(func(req ipc.Request) (ipc.Response, error) { return send(socketPath, req) }),
	)
	return root
}

type doFunc func(cmd *cobra.Command, req ipc.Request) error

func simpleCmd(use, short string, req ipc.Request, do doFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return do(cmd, req) },
	}
}

func parseInt(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return n, nil
}

func playCmd(do doFunc) *cobra.Command {
	var duration time.Duration
	var name string
	cmd := &cobra.Command{
		Use:   "play [TRACK]",
		Short: "Play a track (no track replays the last one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.Play{DurationMs: duration.Milliseconds(), Name: name}
			if len(args) == 1 {
				track, err := parseInt(args[0], "track")
				if err != nil {
					return err
				}
				req.Track = track
			}
			return do(cmd, req)
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop automatically after this long (0 plays until stopped)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Track name shown in status")
	return cmd
}

func volumeCmd(do doFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "volume LEVEL",
		Short: fmt.Sprintf("Set the volume (%d-%d)", player.MinVolume, player.MaxVolume),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInt(args[0], "volume")
			if err != nil {
				return err
			}
			return do(cmd, ipc.SetVolume{Volume: v})
		},
	}
}

func stepCmd(do doFunc) *cobra.Command {
	return &cobra.Command{
		Use:       "step up|down [N]",
		Short:     "Step the volume up or down",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 2 {
				var err error
				if n, err = parseInt(args[1], "step"); err != nil {
					return err
				}
			}
			switch args[0] {
			case "up":
			case "down":
				n = -n
			default:
				return fmt.Errorf("direction must be up or down, got %q", args[0])
			}
			return do(cmd, ipc.VolumeStep{Delta: n})
		},
	}
}

func loopCmd(do doFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "loop on|off",
		Short: "Enable or disable looping of the current track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(args[0]) {
			case "on":
				return do(cmd, ipc.SetLoop{Enabled: true})
			case "off":
				return do(cmd, ipc.SetLoop{Enabled: false})
			}
			return fmt.Errorf("expected on or off, got %q", args[0])
		},
	}
}

func eqCmd(do doFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "eq PRESET",
		Short: "Select an equalizer preset (NORMAL, POP, ROCK, JAZZ, CLASSIC, BASS)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := player.ParseEqualizerPreset(args[0]); err != nil {
				return err
			}
			return do(cmd, ipc.SetEqualizer{Preset: args[0]})
		},
	}
}

func fadeInCmd(do doFunc) *cobra.Command {
	var duration, trackDuration time.Duration
	var target int
	var name string
	cmd := &cobra.Command{
		Use:   "fade-in TRACK",
		Short: "Start a track at volume 0 and fade up to the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := parseInt(args[0], "track")
			if err != nil {
				return err
			}
			return do(cmd, ipc.FadeIn{
				DurationMs:      duration.Milliseconds(),
				Target:          target,
				Track:           track,
				TrackDurationMs: trackDuration.Milliseconds(),
				Name:            name,
			})
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 2*time.Second, "Fade duration")
	cmd.Flags().IntVarP(&target, "target", "t", player.DefaultVolume, "Target volume")
	cmd.Flags().DurationVar(&trackDuration, "track-duration", 0, "Stop automatically after this long")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Track name shown in status")
	return cmd
}

func fadeOutCmd(do doFunc) *cobra.Command {
	var duration time.Duration
	var target int
	var stop bool
	cmd := &cobra.Command{
		Use:   "fade-out",
		Short: "Fade the volume down, optionally stopping at the end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return do(cmd, ipc.FadeOut{DurationMs: duration.Milliseconds(), Target: target, Stop: stop})
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 2*time.Second, "Fade duration")
	cmd.Flags().IntVarP(&target, "target", "t", player.MinVolume, "Target volume")
	cmd.Flags().BoolVar(&stop, "stop", false, "Stop playback once the target is reached")
	return cmd
}

func fadeToCmd(do doFunc) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "fade-to TARGET",
		Short: "Fade the volume toward a target in either direction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseInt(args[0], "target")
			if err != nil {
				return err
			}
			return do(cmd, ipc.FadeTo{DurationMs: duration.Milliseconds(), Target: target})
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 2*time.Second, "Fade duration")
	return cmd
}

func cancelFadeCmd(do doFunc) *cobra.Command {
	var stop bool
	cmd := &cobra.Command{
		Use:   "cancel-fade",
		Short: "Abandon a running fade at the current volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return do(cmd, ipc.CancelFade{StopIfFadingOut: stop})
		},
	}
	cmd.Flags().BoolVar(&stop, "stop", false, "Stop playback if a fade-out was running")
	return cmd
}

func statusCmd(send func(ipc.Request) (ipc.Response, error)) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the player state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := send(ipc.Status{})
			if err != nil {
				return err
			}
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), string(resp.Data))
				return nil
			}
			var snap player.Snapshot
			if err := json.Unmarshal(resp.Data, &snap); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
			renderStatus(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON snapshot")
	return cmd
}

func renderStatus(w io.Writer, s player.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(s.Player)

	track := "-"
	if s.Track != 0 {
		track = strconv.Itoa(int(s.Track))
		if s.TrackName != "" {
			track += " (" + s.TrackName + ")"
		}
	}
	timing := "until stopped"
	if s.DurationMS > 0 {
		timing = fmt.Sprintf("%s / %s, %s left",
			msString(s.ElapsedMS), msString(s.DurationMS), msString(s.RemainingMS))
	}
	fade := s.Fade.String()
	if s.Fade != player.FadeNone {
		fade = fmt.Sprintf("%s -> %d", fade, s.FadeTarget)
	}

	t.AppendRows([]table.Row{
		{"Status", s.Status},
		{"Track", track},
		{"Time", timing},
		{"Volume", fmt.Sprintf("%d/%d", s.Volume, player.MaxVolume)},
		{"Fade", fade},
		{"Equalizer", s.Equalizer},
		{"Loop", onOff(s.Looping)},
		{"Pending", dash(s.Pending)},
		{"Last command", dash(s.LastCommand)},
	})
	if s.Degraded {
		t.AppendRow(table.Row{"Hardware", "not ready"})
	}
	t.Render()
}

func msString(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
