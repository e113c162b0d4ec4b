// Package storage abstracts the byte-range persistence the writers flush
// to. The engine never manages file handles or paths itself; it hands
// finished bytes to a Store and reads them back by range.
package storage

import (
	"sync"

	"github.com/datalith/strata/pkg/errors"
)

// ByteRange locates a contiguous span in a store
type ByteRange struct {
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// Store persists opaque byte spans. Implementations must be safe for
// concurrent use; writers from independent row groups may flush at once.
type Store interface {
	// Write appends data and returns the range it landed at
	Write(data []byte) (ByteRange, error)
	// Read returns the bytes of a previously written range
	Read(r ByteRange) ([]byte, error)
}

// MemStore keeps everything in one growing in-memory buffer. It backs
// tests and short-lived conversions.
type MemStore struct {
	mu  sync.Mutex
	buf []byte
}

// NewMemStore returns an empty in-memory store
func NewMemStore() *MemStore { return &MemStore{} }

// Write appends data and returns the range it landed at
func (s *MemStore) Write(data []byte) (ByteRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := ByteRange{Offset: int64(len(s.buf)), Length: int64(len(data))}
	s.buf = append(s.buf, data...)
	return r, nil
}

// Read returns a copy of the bytes in the given range
func (s *MemStore) Read(r ByteRange) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Offset < 0 || r.Length < 0 || r.Offset+r.Length > int64(len(s.buf)) {
		return nil, errors.Newf(errors.KindInternal,
			"range [%d, +%d) outside store of %d bytes", r.Offset, r.Length, len(s.buf))
	}
	out := make([]byte, r.Length)
	copy(out, s.buf[r.Offset:r.Offset+r.Length])
	return out, nil
}

// Size returns the number of bytes written so far
func (s *MemStore) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.buf))
}
