package tradeevent

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Classifier is a pure function from raw bytes to a Decoded event or an
// InvalidMessage with a reason. It performs no retries and no side effects.
type Classifier struct {
	validate *validator.Validate
}

func NewClassifier() *Classifier {
	return &Classifier{validate: validator.New()}
}

// Classify never returns an error: every outcome, including malformed input,
// is represented in the returned Decoded value.
func (c *Classifier) Classify(raw []byte) Decoded {
	var ev TradeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Decoded{Invalid: &InvalidMessage{Reason: fmt.Sprintf("decode failure: %v", err)}}
	}
	if err := c.validate.Struct(&ev); err != nil {
		return Decoded{Invalid: &InvalidMessage{Reason: fmt.Sprintf("validation failure: %v", err)}}
	}
	if !ev.Side.Valid() {
		return Decoded{Invalid: &InvalidMessage{Reason: "invalid side"}}
	}
	return Decoded{Event: &ev}
}
