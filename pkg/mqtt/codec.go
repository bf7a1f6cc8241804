package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Encoding names the payload format shared by every client on a channel.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// Codec marshals message payloads. Struct fields keep their json tags with
// either encoding.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

func NewCodec(enc Encoding) (Codec, error) {
	switch Encoding(strings.ToLower(string(enc))) {
	case EncodingJSON, "":
		return jsonCodec{}, nil
	case EncodingCBOR:
		return cborCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", enc)
	}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// Message is a payload received on a topic.
type Message struct {
	Topic   string
	Payload []byte
	codec   Codec
}

// NewMessage encodes v with codec as if it was received on topic.
func NewMessage(codec Codec, topic string, v any) (Message, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return Message{}, err
	}

	return Message{Topic: topic, Payload: data, codec: codec}, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	codec := m.codec
	if codec == nil {
		codec = jsonCodec{}
	}

	return codec.Unmarshal(m.Payload, v)
}
