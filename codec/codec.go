package codec

import (
	"errors"
	"fmt"

	"github.com/dshills/sigbus/signal"
)

// ErrDecode is the sentinel all decode failures match.
var ErrDecode = errors.New("codec decode failed")

// DecodeError wraps a decode failure with the codec name.
type DecodeError struct {
	Codec string
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode: %v", e.Codec, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match DecodeError with ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Codec serializes signals for transport across a process boundary.
type Codec interface {
	// Name identifies the codec (e.g. "json", "msgpack").
	Name() string

	// ContentType is the MIME type for encoded payloads.
	ContentType() string

	// Encode serializes one signal.
	Encode(sig *signal.Signal) ([]byte, error)

	// Decode deserializes one signal.
	Decode(data []byte) (*signal.Signal, error)

	// EncodeBatch serializes a batch of signals into one payload.
	EncodeBatch(sigs []*signal.Signal) ([]byte, error)

	// DecodeBatch deserializes a batch payload.
	DecodeBatch(data []byte) ([]*signal.Signal, error)
}
