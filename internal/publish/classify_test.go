package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_PoisonPillSentinels(t *testing.T) {
	c := NewClassifier()
	for _, err := range []error{ErrSerializationFailure, ErrPayloadTooLarge, ErrValidationFailure, ErrDecodeFailure} {
		assert.Equal(t, ClassPoisonPill, c.Classify(err), err)
	}
}

func TestClassifier_SystemFailureSentinels(t *testing.T) {
	c := NewClassifier()
	for _, err := range []error{ErrPublishTimeout, ErrBrokerUnavailable, context.DeadlineExceeded, context.Canceled} {
		assert.Equal(t, ClassSystemFailure, c.Classify(err), err)
	}
}

func TestClassifier_UnknownErrorDefaultsToSystemFailure(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, ClassSystemFailure, c.Classify(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "surprise" }
