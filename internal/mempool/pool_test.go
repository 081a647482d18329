package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"zero size", 0, 4096},
		{"negative size", -1, 4096},
		{"small size gets minimum", 1, 4096},
		{"exact step", 4096, 4096},
		{"just over step", 4097, 8192},
		{"large size", 1000 * 1000, 1003520},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytes_ZeroedAfterReuse(t *testing.T) {
	buf := GetBytes(5000)
	require.Len(t, buf, 5000)
	assert.Equal(t, 8192, cap(buf))
	for i := range buf {
		buf[i] = 255
	}
	PutBytes(buf)

	for range 10 {
		again := GetBytes(5000)
		for i, v := range again {
			if v != 0 {
				t.Fatalf("byte %d not cleared: %d", i, v)
			}
		}
		PutBytes(again)
	}
}

func TestGetInt32(t *testing.T) {
	buf := GetInt32(100)
	require.Len(t, buf, 100)
	buf[3] = 42
	PutInt32(buf)

	again := GetInt32(100)
	assert.Equal(t, int32(0), again[3])
	PutInt32(again)
}

func TestPutIgnoresForeignBuffers(t *testing.T) {
	PutBytes(nil)
	PutBytes(make([]byte, 10))
	PutInt32(make([]int32, 5000))

	buf := GetBytes(10)
	assert.Len(t, buf, 10)
	PutBytes(buf)
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := range 200 {
				n := 1000 + (seed*i)%20000
				b := GetBytes(n)
				if len(b) != n {
					t.Errorf("len %d want %d", len(b), n)
				}
				b[0] = byte(seed)
				PutBytes(b)
			}
		}(w)
	}
	wg.Wait()
}
