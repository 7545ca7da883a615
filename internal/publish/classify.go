package publish

import (
	"context"
	"errors"
	"net"

	kafka "github.com/segmentio/kafka-go"
)

// Classification is the two-taxonomy outcome of a publish failure.
type Classification int

const (
	ClassPoisonPill Classification = iota
	ClassSystemFailure
)

// Sentinel causes a producer adapter can wrap a raw error in, so the
// classifier doesn't need to know about every transport-specific error type.
var (
	ErrSerializationFailure = errors.New("publish: serialization failure")
	ErrPayloadTooLarge      = errors.New("publish: payload too large")
	ErrValidationFailure    = errors.New("publish: validation failure")
	ErrDecodeFailure        = errors.New("publish: decode failure")

	ErrPublishTimeout    = errors.New("publish: timeout")
	ErrBrokerUnavailable = errors.New("publish: broker unavailable")
)

// Classifier is a stateless mapping from underlying publish errors to
// PoisonPill or SystemFailure. The policy: anything that retry might fix is
// SystemFailure; anything retry cannot fix is PoisonPill. Unrecognized
// errors default to SystemFailure — a false retry is cheap, a false
// quarantine is data loss.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return ClassSystemFailure
	}

	switch {
	case errors.Is(err, ErrSerializationFailure),
		errors.Is(err, ErrPayloadTooLarge),
		errors.Is(err, ErrValidationFailure),
		errors.Is(err, ErrDecodeFailure):
		return ClassPoisonPill

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrPublishTimeout),
		errors.Is(err, ErrBrokerUnavailable),
		errors.Is(err, context.Canceled):
		return ClassSystemFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassSystemFailure
	}

	var kafkaErr kafka.Error
	if errors.As(err, &kafkaErr) {
		if kafkaErr.Temporary() {
			return ClassSystemFailure
		}
		return ClassSystemFailure
	}

	return ClassSystemFailure
}
