package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("binarize")
	assert.Equal(t, "binarize", timer.Name())

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())

	str := timer.String()
	assert.Contains(t, str, "binarize")
	assert.Contains(t, str, "ms")
}

func TestStageTimings(t *testing.T) {
	var st StageTimings
	st.Time("boundary", func() { time.Sleep(2 * time.Millisecond) })

	tm := NewNamedTimer("grid")
	time.Sleep(time.Millisecond)
	tm.Stop()
	st.Add(tm)

	require.Len(t, st, 2)
	assert.Equal(t, "boundary", st[0].Stage)

	d, ok := st.Get("grid")
	require.True(t, ok)
	assert.Equal(t, tm.Duration(), d)

	_, ok = st.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, st[0].Duration+st[1].Duration, st.Total())
	assert.Contains(t, st.String(), "boundary=")
	assert.Contains(t, st.String(), "grid=")
}
