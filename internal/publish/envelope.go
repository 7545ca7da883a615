package publish

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

// currentSchemaVersion is bumped whenever TradeEvent's wire shape changes in
// a way downstream consumers need to branch on.
const currentSchemaVersion = 1

// maxPayloadBytes mirrors the destination bus's message-size ceiling; a
// payload above this is a PoisonPill (spec.md §4.9: "payload too large for
// destination").
const maxPayloadBytes = 1 << 20

// envelope is the schema-aware wrapper published to the downstream bus. No
// pack example wires an actual schema-registry client (confluent/avro); see
// DESIGN.md for why this stays a local versioned envelope instead of an
// invented dependency.
type envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
}

var validate = validator.New()

// Encode validates ev against the same constraints MessageClassifier
// enforces at ingest, then wraps it in the versioned envelope. A validation
// or serialization failure here is always a PoisonPill: the payload cannot
// be fixed by retrying.
func Encode(ev *tradeevent.TradeEvent) ([]byte, error) {
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailure, err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailure, err)
	}

	env := envelope{SchemaVersion: currentSchemaVersion, Payload: payload}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailure, err)
	}
	if len(out) > maxPayloadBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(out))
	}
	return out, nil
}
