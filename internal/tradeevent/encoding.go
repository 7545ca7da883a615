package tradeevent

import "encoding/json"

// EncodeEvent is the outbox payload encoding: a plain JSON round-trip of
// TradeEvent. PublicationEngine decodes it back with DecodeEvent before
// re-encoding into the schema-aware envelope published downstream.
func EncodeEvent(ev *TradeEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent reverses EncodeEvent. A failure here is a poison pill: the
// stored payload is malformed independent of any downstream concern.
func DecodeEvent(raw []byte) (*TradeEvent, error) {
	var ev TradeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
