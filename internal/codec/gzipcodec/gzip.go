// Package gzipcodec provides a gzip codec for pages and seed files.
package gzipcodec

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/discochess/lrusim/internal/codec"
)

var _ codec.Codec = (*Codec)(nil)

// Codec compresses with gzip at a fixed level.
type Codec struct {
	level int
}

// New returns a gzip codec using the default compression level.
func New() *Codec {
	return &Codec{level: gzip.DefaultCompression}
}

// NewWithLevel returns a gzip codec using level, one of the compress/gzip
// level constants.
func NewWithLevel(level int) (*Codec, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzipcodec: invalid level %d", level)
	}
	return &Codec{level: level}, nil
}

// Reader wraps r to decompress gzip data.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzipcodec: %w", err)
	}
	return zr, nil
}

// Writer wraps w to compress data with gzip.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, c.level)
}

func (c *Codec) Extension() string {
	return "gz"
}
