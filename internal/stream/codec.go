package stream

import (
	"bytes"
	"errors"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec selects the frame encoding of a subscriber.
type Codec int

const (
	CodecJSON    Codec = iota // text frames, Envelope as JSON
	CodecMsgpack              // binary frames, Envelope as MessagePack
)

// ParseCodec maps the ?enc= query value to a Codec. Anything but "msgpack"
// is JSON.
func ParseCodec(s string) Codec {
	if strings.EqualFold(strings.TrimSpace(s), "msgpack") {
		return CodecMsgpack
	}
	return CodecJSON
}

func (c Codec) String() string {
	if c == CodecMsgpack {
		return "msgpack"
	}
	return "json"
}

// Encode wraps payload in an envelope of type t using c.
func (c Codec) Encode(t string, payload any) ([]byte, error) {
	if c == CodecMsgpack {
		return EncodeMsgpack(t, payload)
	}
	return Encode(t, payload)
}

// msgpackEnvelope mirrors Envelope. Struct tags are read from `json` so
// payloads keep the same field names on both codecs.
type msgpackEnvelope struct {
	T string `json:"t"`
	P any    `json:"p"`
}

type msgpackRawEnvelope struct {
	T string             `json:"t"`
	P msgpack.RawMessage `json:"p"`
}

// EncodeMsgpack is Encode for binary subscribers.
func EncodeMsgpack(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, errors.New("stream: empty envelope type")
	}
	if payload == nil {
		return nil, errors.New("stream: nil payload")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msgpackEnvelope{T: t, P: payload}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack parses a binary envelope and its payload into out.
func DecodeMsgpack(b []byte, out any) (string, error) {
	if len(b) == 0 {
		return "", errors.New("stream: empty frame")
	}
	var env msgpackRawEnvelope
	if err := newMsgpackDecoder(b).Decode(&env); err != nil {
		return "", err
	}
	if len(env.P) == 0 {
		return env.T, errors.New("stream: empty payload")
	}
	return env.T, newMsgpackDecoder(env.P).Decode(out)
}

func newMsgpackDecoder(b []byte) *msgpack.Decoder {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	return dec
}
