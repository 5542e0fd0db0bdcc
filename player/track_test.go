package player

import "testing"

func TestDecodeFolderAndTrack(t *testing.T) {
	cases := []struct {
		n             uint16
		folder, track uint8
	}{
		{1, 1, 1},
		{255, 1, 255},
		{257, 2, 1},
		{511, 2, 255},
		{513, 3, 1},
		{256, 2, 0},
		{0xFF01, 0, 1},
	}
	for _, tc := range cases {
		f, tr := DecodeFolderAndTrack(tc.n)
		if f != tc.folder || tr != tc.track {
			t.Errorf("DecodeFolderAndTrack(%d) = (%d, %d), want (%d, %d)", tc.n, f, tr, tc.folder, tc.track)
		}
	}
}

func TestTrackPath(t *testing.T) {
	if got := TrackPath(42); got != "/00042.mp3" {
		t.Fatalf("TrackPath(42) = %q", got)
	}
}

func TestParseEqualizerPreset(t *testing.T) {
	if p, err := ParseEqualizerPreset("bass"); err != nil || p != EqBass {
		t.Fatalf("bass -> %v, %v", p, err)
	}
	if p, err := ParseEqualizerPreset("3"); err != nil || p != EqJazz {
		t.Fatalf("3 -> %v, %v", p, err)
	}
	if _, err := ParseEqualizerPreset("loudness"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}
