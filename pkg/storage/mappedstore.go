//go:build linux || darwin

package storage

import (
	"os"
	"sync"

	"github.com/datalith/strata/pkg/errors"
)

// MappedStore is a read-only Store over a memory-mapped file. Page reads
// touch only the mapped ranges they ask for, so opening a large file and
// reading a handful of columns stays cheap.
type MappedStore struct {
	mu   sync.Mutex
	file *os.File
	data []byte
}

// OpenMappedStore maps an existing store file for reading
func OpenMappedStore(path string) (*MappedStore, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is caller controlled
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "opening store file")
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.KindInternal, "stating store file")
	}
	if stat.Size() == 0 {
		return &MappedStore{file: f}, nil
	}
	data, err := mmap(int(f.Fd()), int(stat.Size()))
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.KindInternal, "mapping store file")
	}
	return &MappedStore{file: f, data: data}, nil
}

// Write is rejected; the mapping is read-only
func (s *MappedStore) Write([]byte) (ByteRange, error) {
	return ByteRange{}, errors.New(errors.KindInternal, "mapped store is read-only")
}

// Read copies the bytes of a range out of the mapping. The kernel is
// advised that the touched pages are needed soon.
func (s *MappedStore) Read(r ByteRange) ([]byte, error) {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if r.Offset < 0 || r.Length < 0 || r.Offset+r.Length > int64(len(data)) {
		return nil, errors.Newf(errors.KindInternal,
			"range [%d, +%d) outside store of %d bytes", r.Offset, r.Length, len(data))
	}
	span := data[r.Offset : r.Offset+r.Length]
	_ = madviseWillNeed(span)
	out := make([]byte, r.Length)
	copy(out, span)
	return out, nil
}

// Size returns the mapped file size
func (s *MappedStore) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data))
}

// Close unmaps and closes the file
func (s *MappedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.data != nil {
		err = munmap(s.data)
		s.data = nil
	}
	if s.file != nil {
		if closeErr := s.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		s.file = nil
	}
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "closing mapped store")
	}
	return nil
}
