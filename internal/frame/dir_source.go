package frame

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var stillExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
}

// DirSource streams pre-rendered still images from a directory in lexical
// filename order. Files are read lazily, one per Next call.
type DirSource struct {
	paths []string
	next  int
}

// NewDirSource lists the supported still images under dir. The zero-padded
// filename convention of renderers (000001.jpg, frame_0001.png, ...) makes
// lexical order the frame order.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := stillExtensions[ext]; !ok {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no still images found in %s", dir)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths}, nil
}

// Len returns the total number of frames the source will produce, usable as
// the session's total-frame hint.
func (s *DirSource) Len() int {
	return len(s.paths)
}

// Next reads the next still image. Returns io.EOF after the final frame.
func (s *DirSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}

	path := s.paths[s.next]
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame %d (%s): %w", s.next, filepath.Base(path), err)
	}

	f := &Frame{
		Index:    s.next,
		Encoding: stillExtensions[strings.ToLower(filepath.Ext(path))],
		Data:     data,
	}
	s.next++
	return f, nil
}
