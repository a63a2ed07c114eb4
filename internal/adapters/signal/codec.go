package signal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dorhakim100/camjam/internal/core"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec frames signaling events as {"type": ..., "payload": ...}.
type Codec interface {
	Name() string
	// FrameType is the websocket message type the codec writes.
	FrameType() int
	Encode(ev core.Event, payload any) ([]byte, error)
	// Decode splits a frame into its event and the still-encoded payload.
	Decode(frame []byte) (core.Event, []byte, error)
	Unmarshal(raw []byte, v any) error
}

func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown signaling codec %q", name)
}

type JSONCodec struct{}

func (JSONCodec) Name() string   { return "json" }
func (JSONCodec) FrameType() int { return websocket.TextMessage }

func (JSONCodec) Encode(ev core.Event, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Type    core.Event `json:"type"`
		Payload any        `json:"payload,omitempty"`
	}{ev, payload})
}

func (JSONCodec) Decode(frame []byte) (core.Event, []byte, error) {
	var env struct {
		Type    core.Event      `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", nil, err
	}
	return env.Type, env.Payload, nil
}

func (JSONCodec) Unmarshal(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// MsgpackCodec reuses the json struct tags so both codecs share one schema.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string   { return "msgpack" }
func (MsgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(ev core.Event, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	err := enc.Encode(struct {
		Type    core.Event `json:"type"`
		Payload any        `json:"payload,omitempty"`
	}{ev, payload})
	return buf.Bytes(), err
}

func (c MsgpackCodec) Decode(frame []byte) (core.Event, []byte, error) {
	var env struct {
		Type    core.Event         `json:"type"`
		Payload msgpack.RawMessage `json:"payload"`
	}
	if err := c.Unmarshal(frame, &env); err != nil {
		return "", nil, err
	}
	return env.Type, env.Payload, nil
}

func (MsgpackCodec) Unmarshal(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// NewMessage wraps a still-encoded payload so handlers can decode it with codec.
func NewMessage(ev core.Event, raw []byte, codec Codec) core.Message {
	return message{event: ev, raw: raw, codec: codec}
}

// message is an inbound frame whose payload is decoded on demand.
type message struct {
	event core.Event
	raw   []byte
	codec Codec
}

func (m message) Event() core.Event  { return m.event }
func (m message) Decode(v any) error { return m.codec.Unmarshal(m.raw, v) }
