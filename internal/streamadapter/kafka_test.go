package streamadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestKafkaAdapter_StoreOffset_NoopForReplayHandle(t *testing.T) {
	a := NewKafkaAdapter([]string{"localhost:9092"}, "trades", "test-group", zaptest.NewLogger(t))
	defer a.Close()

	err := a.StoreOffset(context.Background(), nil)
	assert.NoError(t, err)
}

func TestKafkaAdapter_PauseResumeToggle(t *testing.T) {
	a := NewKafkaAdapter([]string{"localhost:9092"}, "trades", "test-group", zaptest.NewLogger(t))
	defer a.Close()

	assert.False(t, a.paused.Load())
	a.Pause()
	assert.True(t, a.paused.Load())
	a.Resume()
	assert.False(t, a.paused.Load())
}
