// Package mempool keeps size-classed buffers for the per-pixel masks and
// label maps allocated by every analysis.
package mempool

import (
	"sync"
)

var (
	bytePools  sizedPool[byte]
	int32Pools sizedPool[int32]
)

// sizeClass rounds n up to the next multiple of 4096 so that images of
// similar size share buffers.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

type sizedPool[T any] struct {
	pools sync.Map // key: size class (int), value: *sync.Pool
}

func (s *sizedPool[T]) pool(cls int) *sync.Pool {
	pAny, _ := s.pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return pAny.(*sync.Pool)
}

func (s *sizedPool[T]) get(n int) []T {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	buf, ok := s.pool(cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	// Pooled buffers come back dirty.
	clear(buf)
	return buf
}

func (s *sizedPool[T]) put(buf []T) {
	if buf == nil {
		return
	}
	c := cap(buf)
	if c < sizeClass(0) || sizeClass(c) != c {
		return
	}
	s.pool(c).Put(buf[:c]) //nolint:staticcheck // slices are small headers
}

// GetBytes returns a zeroed []byte of length n. Release it with PutBytes.
func GetBytes(n int) []byte { return bytePools.get(n) }

// PutBytes returns a buffer obtained from GetBytes. Nil is ignored.
func PutBytes(buf []byte) { bytePools.put(buf) }

// GetInt32 returns a zeroed []int32 of length n. Release it with PutInt32.
func GetInt32(n int) []int32 { return int32Pools.get(n) }

// PutInt32 returns a buffer obtained from GetInt32. Nil is ignored.
func PutInt32(buf []int32) { int32Pools.put(buf) }
