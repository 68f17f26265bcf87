package gcsstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"cloud.google.com/go/storage"

	"github.com/discochess/lrusim/internal/codec/gzipcodec"
	"github.com/discochess/lrusim/internal/codec/zstdcodec"
	"github.com/discochess/lrusim/internal/store"
)

// fakeBucket keeps objects in memory.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	failErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (b *fakeBucket) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return nil, b.failErr
	}
	data, ok := b.objects[name]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) NewWriter(ctx context.Context, name string) io.WriteCloser {
	return &fakeWriter{bucket: b, name: name}
}

type fakeWriter struct {
	bucket *fakeBucket
	name   string
	buf    bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	w.bucket.mu.Lock()
	defer w.bucket.mu.Unlock()
	w.bucket.objects[w.name] = w.buf.Bytes()
	return nil
}

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := &Store{}
			WithPrefix(tt.input)(s)
			if s.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", s.prefix, tt.want)
			}
		})
	}
}

func TestStore_pageKey(t *testing.T) {
	s := &Store{codec: gzipcodec.New(), prefix: "runs/"}
	if got, want := s.pageKey(12), "runs/pages/0000000012.gz"; got != want {
		t.Errorf("pageKey(12) = %q, want %q", got, want)
	}
}

func TestStore_WriteRead(t *testing.T) {
	b := newFakeBucket()
	s := &Store{bucket: b, codec: zstdcodec.New(), pageSize: 16}
	ctx := context.Background()

	if err := s.WritePage(ctx, 2, []byte("gcs page")); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}

	got, err := s.ReadPage(ctx, 2)
	if err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if want := store.PagePad([]byte("gcs page"), 16); !bytes.Equal(got, want) {
		t.Errorf("ReadPage() = %q, want %q", got, want)
	}
}

func TestStore_ReadMissing(t *testing.T) {
	s := &Store{bucket: newFakeBucket(), codec: zstdcodec.New(), pageSize: 4}

	got, err := s.ReadPage(context.Background(), 100)
	if err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if !bytes.Equal(got, make([]byte, 4)) {
		t.Errorf("ReadPage() = %v, want zero page", got)
	}
}

func TestStore_ReadFailure(t *testing.T) {
	b := newFakeBucket()
	b.failErr = errors.New("permission denied")
	s := &Store{bucket: b, codec: zstdcodec.New(), pageSize: 4}

	_, err := s.ReadPage(context.Background(), 1)
	if !errors.Is(err, store.ErrBackingStore) {
		t.Errorf("ReadPage() error = %v, want ErrBackingStore", err)
	}
}

func TestStore_CloseWithoutClient(t *testing.T) {
	s := &Store{bucket: newFakeBucket(), codec: zstdcodec.New()}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
