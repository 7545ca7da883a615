package ingestbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveBatchSizer_DoublesUnderTarget(t *testing.T) {
	s := NewAdaptiveBatchSizer(16, 2048, 100*time.Millisecond)
	assert.Equal(t, 16, s.Current())

	s.Observe(10*time.Millisecond, 16)
	assert.Equal(t, 32, s.Current())

	s.Observe(10*time.Millisecond, 32)
	assert.Equal(t, 64, s.Current())
}

func TestAdaptiveBatchSizer_HalvesOverTarget(t *testing.T) {
	s := NewAdaptiveBatchSizer(16, 2048, 100*time.Millisecond)
	s.Observe(10*time.Millisecond, 16) // 32
	s.Observe(10*time.Millisecond, 32) // 64

	s.Observe(200*time.Millisecond, 64)
	assert.Equal(t, 32, s.Current())
}

func TestAdaptiveBatchSizer_NeverExceedsBounds(t *testing.T) {
	s := NewAdaptiveBatchSizer(16, 64, 100*time.Millisecond)
	for i := 0; i < 10; i++ {
		s.Observe(1*time.Millisecond, s.Current())
	}
	assert.Equal(t, 64, s.Current())

	for i := 0; i < 10; i++ {
		s.Observe(time.Second, s.Current())
	}
	assert.Equal(t, 16, s.Current())
}

func TestAdaptiveBatchSizer_StableWithinBand(t *testing.T) {
	s := NewAdaptiveBatchSizer(16, 2048, 100*time.Millisecond)
	s.Observe(100*time.Millisecond, 16)
	assert.Equal(t, 16, s.Current())
}

func TestAdaptiveBatchSizer_ResetReturnsToMin(t *testing.T) {
	s := NewAdaptiveBatchSizer(16, 2048, 100*time.Millisecond)
	s.Observe(1*time.Millisecond, 16)
	assert.NotEqual(t, 16, s.Current())
	s.Reset()
	assert.Equal(t, 16, s.Current())
}
