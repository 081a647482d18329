// Package common provides shared timing utilities for the analysis stages.
package common

import (
	"fmt"
	"strings"
	"time"
)

// Timer measures a single named stage.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// StageTiming is one completed stage measurement.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// StageTimings collects stage durations in execution order.
type StageTimings []StageTiming

// Time runs fn and appends its duration under stage.
func (s *StageTimings) Time(stage string, fn func()) {
	t := NewNamedTimer(stage)
	fn()
	s.Add(t)
}

// Add records a stopped (or still running) timer.
func (s *StageTimings) Add(t *Timer) {
	if t.duration == 0 {
		t.Stop()
	}
	*s = append(*s, StageTiming{Stage: t.name, Duration: t.duration})
}

// Total sums all recorded stages.
func (s StageTimings) Total() time.Duration {
	var total time.Duration
	for _, st := range s {
		total += st.Duration
	}
	return total
}

// Get returns the duration recorded for stage.
func (s StageTimings) Get(stage string) (time.Duration, bool) {
	for _, st := range s {
		if st.Stage == stage {
			return st.Duration, true
		}
	}
	return 0, false
}

func (s StageTimings) String() string {
	parts := make([]string, len(s))
	for i, st := range s {
		parts[i] = fmt.Sprintf("%s=%v", st.Stage, st.Duration)
	}
	return strings.Join(parts, " ")
}
