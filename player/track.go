package player

import (
	"fmt"

	"github.com/samber/lo"
)

// DecodeFolderAndTrack maps a flat track number onto a 1-based folder and a
// 1-based track inside it. The high byte selects the folder and the low byte
// the track, so every folder holds tracks 1..255:
//
//	DecodeFolderAndTrack(1)   == (1, 1)
//	DecodeFolderAndTrack(255) == (1, 255)
//	DecodeFolderAndTrack(257) == (2, 1)
//
// Numbers whose low byte is zero (256, 512, ...) address no track and
// decode to track 0. The top 256 numbers overflow the 8-bit folder and
// decode to folder 0. Folder-addressed backends refuse both.
func DecodeFolderAndTrack(n uint16) (folder, track uint8) {
	return uint8(n>>8) + 1, uint8(n)
}

// TrackPath is the file name convention used by path-addressed modules and
// the file streaming backend: "/00042.mp3".
func TrackPath(n uint16) string {
	return fmt.Sprintf("/%05d.mp3", n)
}

func clampTrack(track int) uint16 {
	return uint16(lo.Clamp(track, minTrack, maxTrack))
}

func clampVolume(v int) int {
	return lo.Clamp(v, MinVolume, MaxVolume)
}
