package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLabels_SortsKeysDeterministically(t *testing.T) {
	labels := map[string]string{"result": "success", "table": "outbox", "portfolio": "pf-1"}
	keys, vals := splitLabels(labels)

	assert.Equal(t, []string{"portfolio", "result", "table"}, keys)
	assert.Equal(t, []string{"pf-1", "success", "outbox"}, vals)
}

func TestSplitLabels_SameInputAlwaysProducesSameOrder(t *testing.T) {
	labels := map[string]string{"b": "2", "a": "1", "c": "3"}
	for i := 0; i < 20; i++ {
		keys, vals := splitLabels(labels)
		assert.Equal(t, []string{"a", "b", "c"}, keys)
		assert.Equal(t, []string{"1", "2", "3"}, vals)
	}
}

func TestPrometheus_IncCounterDoesNotPanicAcrossRepeatedCalls(t *testing.T) {
	p := NewPrometheus()
	labels := map[string]string{"result": "success", "table": "outbox"}

	assert.NotPanics(t, func() {
		for i := 0; i < 5; i++ {
			p.IncCounter("prometheus_test_dispatch_total", labels)
		}
	})
}
