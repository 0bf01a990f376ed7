package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/sigbus/signal"
)

// Msgpack encodes signals in MessagePack. It produces smaller payloads
// than JSON and is the codec of choice for high-volume webhook fan-out.
type Msgpack struct{}

// NewMsgpack creates a msgpack codec.
func NewMsgpack() Msgpack {
	return Msgpack{}
}

// Name returns "msgpack".
func (Msgpack) Name() string { return "msgpack" }

// ContentType returns the MessagePack MIME type.
func (Msgpack) ContentType() string { return "application/msgpack" }

// Encode serializes one signal.
func (Msgpack) Encode(sig *signal.Signal) ([]byte, error) {
	return msgpack.Marshal(sig)
}

// Decode deserializes one signal.
func (c Msgpack) Decode(data []byte) (*signal.Signal, error) {
	var sig signal.Signal
	if err := msgpack.Unmarshal(data, &sig); err != nil {
		return nil, &DecodeError{Codec: c.Name(), Err: err}
	}
	return &sig, nil
}

// EncodeBatch serializes a batch of signals.
func (Msgpack) EncodeBatch(sigs []*signal.Signal) ([]byte, error) {
	return msgpack.Marshal(sigs)
}

// DecodeBatch deserializes a batch payload.
func (c Msgpack) DecodeBatch(data []byte) ([]*signal.Signal, error) {
	var sigs []*signal.Signal
	if err := msgpack.Unmarshal(data, &sigs); err != nil {
		return nil, &DecodeError{Codec: c.Name(), Err: err}
	}
	return sigs, nil
}
