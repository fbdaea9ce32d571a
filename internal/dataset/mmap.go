package dataset

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps path read-only. The returned release func must be called once
// the bytes are no longer referenced. If mmap is unavailable it falls back to
// reading the file into memory.
func mapFile(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := stat.Size()
	if size <= 0 || size > int64(int(^uint(0)>>1)) {
		data, err := os.ReadFile(path)
		return data, func() {}, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		data, err := os.ReadFile(path)
		return data, func() {}, err
	}
	return data, func() { _ = unix.Munmap(data) }, nil
}
