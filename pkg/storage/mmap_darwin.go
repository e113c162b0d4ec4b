//go:build darwin

package storage

import (
	"syscall"
	"unsafe"
)

func mmap(fd int, length int) ([]byte, error) {
	return syscall.Mmap(fd, 0, length, syscall.PROT_READ, syscall.MAP_SHARED)
}

func munmap(b []byte) error {
	return syscall.Munmap(b)
}

// madvise advice value for MADV_WILLNEED on darwin
const madvWillNeed = 3

func madviseWillNeed(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, _, errno := syscall.Syscall(syscall.SYS_MADVISE,
		uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(madvWillNeed))
	if errno != 0 {
		return errno
	}
	return nil
}
