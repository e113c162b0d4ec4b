//go:build linux

package storage

import "syscall"

func mmap(fd int, length int) ([]byte, error) {
	return syscall.Mmap(fd, 0, length, syscall.PROT_READ, syscall.MAP_SHARED)
}

func munmap(b []byte) error {
	return syscall.Munmap(b)
}

func madviseWillNeed(b []byte) error {
	return syscall.Madvise(b, syscall.MADV_WILLNEED)
}
