// Package seed preloads a backing store from a JSON-lines page file.
//
// Each line holds one page:
//
//	{"key": 12, "content": "plain text"}
//	{"key": 13, "hex": "deadbeef"}
//
// Files ending in .gz or .zst are decompressed on the fly.
package seed

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/discochess/lrusim/internal/codec"
	"github.com/discochess/lrusim/internal/codec/gzipcodec"
	"github.com/discochess/lrusim/internal/codec/noopcodec"
	"github.com/discochess/lrusim/internal/codec/zstdcodec"
	"github.com/discochess/lrusim/internal/store"
)

// ErrInvalidRecord is returned for a line that is not a valid page record.
var ErrInvalidRecord = errors.New("seed: invalid record")

// Record is one line of a seed file.
type Record struct {
	Key     int64  `json:"key"`
	Content string `json:"content,omitempty"`
	Hex     string `json:"hex,omitempty"`
}

// Page returns the record content, decoded from hex if set.
func (r Record) Page() ([]byte, error) {
	if r.Hex != "" {
		if r.Content != "" {
			return nil, fmt.Errorf("%w: key %d has both content and hex", ErrInvalidRecord, r.Key)
		}
		b, err := hex.DecodeString(r.Hex)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %w", ErrInvalidRecord, r.Key, err)
		}
		return b, nil
	}
	return []byte(r.Content), nil
}

// Result summarizes a load.
type Result struct {
	Pages int
	Bytes int64
}

// CodecFor picks a codec from the file extension.
func CodecFor(path string) codec.Codec {
	switch filepath.Ext(path) {
	case ".gz":
		return gzipcodec.New()
	case ".zst":
		return zstdcodec.New()
	default:
		return noopcodec.New()
	}
}

// LoadFile writes every page in the seed file at path to st.
func LoadFile(ctx context.Context, path string, st store.Store, pageSize int, logger *zap.Logger) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening seed file: %w", err)
	}
	defer file.Close()

	rc, err := CodecFor(path).Reader(file)
	if err != nil {
		return Result{}, fmt.Errorf("creating decompressor: %w", err)
	}
	defer rc.Close()

	res, err := Load(ctx, rc, st, pageSize)
	if err != nil {
		return res, fmt.Errorf("loading %s: %w", path, err)
	}
	if logger != nil {
		logger.Info("seeded backing store",
			zap.String("path", path),
			zap.Int("pages", res.Pages),
			zap.Int64("bytes", res.Bytes),
		)
	}
	return res, nil
}

// Load writes every page read from r to st, zero-padded to pageSize.
// Blank lines are skipped; a later record for the same key overwrites an
// earlier one.
func Load(ctx context.Context, r io.Reader, st store.Store, pageSize int) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), max(1024*1024, 8*pageSize))

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return res, err
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return res, fmt.Errorf("%w: line %d: %w", ErrInvalidRecord, line, err)
		}
		if rec.Key < 0 {
			return res, fmt.Errorf("%w: line %d: negative key %d", ErrInvalidRecord, line, rec.Key)
		}
		data, err := rec.Page()
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if len(data) > pageSize {
			return res, fmt.Errorf("%w: line %d: %d bytes exceed page size %d", ErrInvalidRecord, line, len(data), pageSize)
		}

		if err := st.WritePage(ctx, rec.Key, store.PagePad(data, pageSize)); err != nil {
			return res, fmt.Errorf("writing page %d: %w", rec.Key, err)
		}
		res.Pages++
		res.Bytes += int64(len(data))
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading seed: %w", err)
	}
	return res, nil
}
