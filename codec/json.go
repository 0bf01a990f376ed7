package codec

import (
	"github.com/goccy/go-json"

	"github.com/dshills/sigbus/signal"
)

// JSON encodes signals as JSON objects. Batches are JSON arrays.
type JSON struct{}

// NewJSON creates a JSON codec.
func NewJSON() JSON {
	return JSON{}
}

// Name returns "json".
func (JSON) Name() string { return "json" }

// ContentType returns the JSON MIME type.
func (JSON) ContentType() string { return "application/json" }

// Encode serializes one signal.
func (JSON) Encode(sig *signal.Signal) ([]byte, error) {
	return json.Marshal(sig)
}

// Decode deserializes one signal.
func (c JSON) Decode(data []byte) (*signal.Signal, error) {
	var sig signal.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, &DecodeError{Codec: c.Name(), Err: err}
	}
	return &sig, nil
}

// EncodeBatch serializes a batch of signals as a JSON array.
func (JSON) EncodeBatch(sigs []*signal.Signal) ([]byte, error) {
	return json.Marshal(sigs)
}

// DecodeBatch deserializes a JSON array of signals.
func (c JSON) DecodeBatch(data []byte) ([]*signal.Signal, error) {
	var sigs []*signal.Signal
	if err := json.Unmarshal(data, &sigs); err != nil {
		return nil, &DecodeError{Codec: c.Name(), Err: err}
	}
	return sigs, nil
}
