//go:build unix

package buffer

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/visiona/gencam/internal/transport"
)

// mapSlab obtains n bytes as an anonymous private mapping, keeping the frame
// memory out of the Go heap so the garbage collector never moves it under a
// DMA transfer.
func mapSlab(n int64) ([]byte, error) {
	raw, err := unix.Mmap(-1, 0, int(n),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("buffer: mmap %d bytes: %v: %w", n, err, transport.ErrResources)
	}
	return raw, nil
}

func unmapSlab(raw []byte) error {
	if err := unix.Munmap(raw); err != nil {
		return fmt.Errorf("buffer: munmap: %v: %w", err, transport.ErrInternalFault)
	}
	return nil
}
