package storage

import (
	"os"
	"sync"

	"github.com/datalith/strata/pkg/errors"
)

// FileStore appends spans to one file. Writes are serialized; reads use
// ReadAt and may run concurrently with each other.
type FileStore struct {
	mu   sync.Mutex
	file *os.File
	size int64
}

// CreateFileStore creates (or truncates) the file at path
func CreateFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // G304: path is caller controlled
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "creating store file")
	}
	return &FileStore{file: f}, nil
}

// Write appends data and returns the range it landed at
func (s *FileStore) Write(data []byte) (ByteRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := ByteRange{Offset: s.size, Length: int64(len(data))}
	if _, err := s.file.WriteAt(data, s.size); err != nil {
		return ByteRange{}, errors.Wrap(err, errors.KindInternal, "appending to store file")
	}
	s.size += int64(len(data))
	return r, nil
}

// Read returns the bytes of a previously written range
func (s *FileStore) Read(r ByteRange) ([]byte, error) {
	s.mu.Lock()
	size := s.size
	s.mu.Unlock()
	if r.Offset < 0 || r.Length < 0 || r.Offset+r.Length > size {
		return nil, errors.Newf(errors.KindInternal,
			"range [%d, +%d) outside store of %d bytes", r.Offset, r.Length, size)
	}
	out := make([]byte, r.Length)
	if _, err := s.file.ReadAt(out, r.Offset); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "reading store file")
	}
	return out, nil
}

// Size returns the number of bytes written so far
func (s *FileStore) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Sync flushes the file to stable storage
func (s *FileStore) Sync() error {
	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "syncing store file")
	}
	return nil
}

// Close syncs and closes the underlying file
func (s *FileStore) Close() error {
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return errors.Wrap(err, errors.KindInternal, "syncing store file")
	}
	if err := s.file.Close(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "closing store file")
	}
	return nil
}
