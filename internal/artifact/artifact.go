// Package artifact packages finished encode results for calling code. It
// never transforms artifact bytes.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"framecast/internal/wire"
)

// Artifact is the final encoded media: container plus codec bytes and the
// declared media type. Immutable once produced; ownership transfers to the
// caller that requested the encode.
type Artifact struct {
	MediaType string
	Data      []byte
}

// Size returns the artifact payload size in bytes.
func (a *Artifact) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// Assemble converts a successful wire result into an Artifact. Failure
// results surface as their taxonomy error; a truncated or empty success
// never produces an artifact.
func Assemble(res *wire.Result) (*Artifact, error) {
	if res == nil {
		return nil, errors.New("artifact: nil result")
	}
	if res.Failure != nil {
		return nil, res.Failure.Err()
	}
	if len(res.Artifact) == 0 {
		return nil, errors.New("artifact: empty payload in success result")
	}
	return &Artifact{MediaType: res.MediaType, Data: res.Artifact}, nil
}

// WriteFile stores the exact artifact bytes at path, creating parent
// directories as needed.
func (a *Artifact) WriteFile(path string) error {
	if a == nil || len(a.Data) == 0 {
		return errors.New("artifact: nothing to write")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
