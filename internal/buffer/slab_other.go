//go:build !unix

package buffer

// Heap-backed slab for platforms without mmap support. The over-allocation
// slack in Alloc still yields an aligned window; release is left to the
// garbage collector.
func mapSlab(n int64) ([]byte, error) {
	return make([]byte, n), nil
}

func unmapSlab([]byte) error {
	return nil
}
