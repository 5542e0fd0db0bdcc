// Package pcmstream decodes MP3 tracks from a directory and writes them as
// raw PCM for the file-streaming backend.
package pcmstream

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Dir serves track files from a directory. Names are rooted at the
// directory: "/00001.mp3" opens <dir>/00001.mp3. Paths escaping the
// directory are rejected.
type Dir string

func (d Dir) Open(name string) (io.ReadSeekCloser, error) {
	rel := strings.TrimLeft(name, "/")
	if rel == "" {
		return nil, fmt.Errorf("open %q: empty name", name)
	}
	f, err := os.OpenInRoot(string(d), rel)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}
