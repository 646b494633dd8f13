// Package source adapts byte producers to the pipeline. A DataSource only
// hands out raw chunks: decoding them is the job of the stages built on top.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/fogfactory/dataset/iterator"
)

// DataSource produces a fresh stream of byte chunks on every call.
type DataSource interface {
	Iterator(ctx context.Context) (iterator.Iterator[[]byte], error)
}

// Sized is implemented by sources knowing how many chunks they produce.
type Sized interface {
	Chunks() int
}

func checkChunkSize(chunkSize int) error {
	if chunkSize < 1 {
		return fmt.Errorf("%w: chunk size %d (must be >= 1)", iterator.ErrInvalidArgument, chunkSize)
	}
	return nil
}

// Bytes serves data in chunks of chunkSize bytes, the last one possibly shorter.
func Bytes(data []byte, chunkSize int) DataSource {
	return &bytesSource{data: data, chunkSize: chunkSize}
}

type bytesSource struct {
	data      []byte
	chunkSize int
}

func (s *bytesSource) Iterator(context.Context) (iterator.Iterator[[]byte], error) {
	if err := checkChunkSize(s.chunkSize); err != nil {
		return nil, err
	}
	chunks := lo.Map(lo.Chunk(s.data, s.chunkSize), func(chunk []byte, _ int) []byte { return bytes.Clone(chunk) })
	return iterator.FromItems(chunks), nil
}

func (s *bytesSource) Chunks() int {
	if s.chunkSize < 1 {
		return 0
	}
	return (len(s.data) + s.chunkSize - 1) / s.chunkSize
}

// Reader serves the content of the readers returned by open in chunks of
// chunkSize bytes. Every Iterator call opens a new reader, closed once
// exhausted or when the iterator is closed.
func Reader(open func() (io.ReadCloser, error), chunkSize int) DataSource {
	return &readerSource{open: open, chunkSize: chunkSize}
}

type readerSource struct {
	open      func() (io.ReadCloser, error)
	chunkSize int
}

func (s *readerSource) Iterator(ctx context.Context) (iterator.Iterator[[]byte], error) {
	if err := checkChunkSize(s.chunkSize); err != nil {
		return nil, err
	}
	r, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Int("chunk_size", s.chunkSize).Msg("source opened")
	return &readerIterator{reader: r, chunkSize: s.chunkSize}, nil
}

type readerIterator struct {
	mu        sync.Mutex
	reader    io.ReadCloser
	chunkSize int
	count     int
	eof       bool
	done      bool
	closed    bool
	closeErr  error
}

func (it *readerIterator) Next(ctx context.Context) ([]byte, bool, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.done || it.closed {
		return nil, false, nil
	}
	if it.eof {
		it.done = true
		return nil, false, it.closeReader()
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	chunk := make([]byte, it.chunkSize)
	n, err := io.ReadFull(it.reader, chunk)
	switch {
	case errors.Is(err, io.EOF):
		it.done = true
		return nil, false, it.closeReader()
	case errors.Is(err, io.ErrUnexpectedEOF):
		it.eof = true
		it.count++
		return chunk[:n], true, nil
	case err != nil:
		return nil, false, fmt.Errorf("read chunk %d: %w", it.count, err)
	}
	it.count++
	return chunk, true, nil
}

func (it *readerIterator) closeReader() error {
	if !it.closed {
		it.closed = true
		it.closeErr = it.reader.Close()
	}
	return it.closeErr
}

func (it *readerIterator) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.closeReader()
}

func (it *readerIterator) Summary() string { return fmt.Sprintf("Reader(%d bytes chunks)", it.chunkSize) }
