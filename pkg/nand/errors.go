// pkg/nand/errors.go

package nand

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrUnsupportedChunks = errors.New("number of chunks per page not supported")

// ConfigError reports a page geometry or codec configuration that cannot be
// used. It is always returned before any page is read.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UncorrectableChunkError reports a chunk with more bit errors than the code
// can correct.
type UncorrectableChunkError struct {
	Page  int
	Chunk int
}

func (e *UncorrectableChunkError) Error() string {
	return fmt.Sprintf("page %d chunk %d uncorrectable", e.Page, e.Chunk)
}
