// Package noopcodec stores pages uncompressed.
package noopcodec

import (
	"io"

	"github.com/discochess/lrusim/internal/codec"
)

var _ codec.Codec = (*Codec)(nil)

// Codec passes data through unchanged. Closing the returned reader or
// writer never closes the underlying stream; the caller owns it.
type Codec struct{}

func New() *Codec {
	return &Codec{}
}

func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

// Extension returns "" since uncompressed files carry no suffix.
func (c *Codec) Extension() string {
	return ""
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
