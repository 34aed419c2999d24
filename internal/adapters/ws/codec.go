package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/coder/websocket"
	"github.com/fxamacker/cbor/v2"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
)

// Subprotocols offered during the websocket handshake, preferred first.
const (
	SubprotocolJSON = "snowglobe.json"
	SubprotocolCBOR = "snowglobe.cbor"
)

// Codec converts envelopes to and from websocket frames.
type Codec interface {
	Name() string
	MessageType() websocket.MessageType
	Encode(msg types.Outbound) ([]byte, error)
	Decode(payload []byte) (types.Inbound, error)
}

// CodecFor returns the codec negotiated for subprotocol. Browsers that offer
// no subprotocol get JSON.
func CodecFor(subprotocol string) (Codec, error) {
	switch subprotocol {
	case "", SubprotocolJSON:
		return jsonCodec{}, nil
	case SubprotocolCBOR:
		return cborCodecInstance, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, subprotocol)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return SubprotocolJSON }
func (jsonCodec) MessageType() websocket.MessageType { return websocket.MessageText }

func (jsonCodec) Encode(msg types.Outbound) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json encode %s: %w", msg.Event, err)
	}
	return b, nil
}

func (jsonCodec) Decode(payload []byte) (types.Inbound, error) {
	var msg types.Inbound
	if err := json.Unmarshal(payload, &msg); err != nil {
		return types.Inbound{}, fmt.Errorf("json decode: %w", err)
	}
	return msg, nil
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var cborCodecInstance = newCBORCodec() //nolint:gochecknoglobals // modes are immutable and safe for concurrent use

func newCBORCodec() *cborCodec {
	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	// Nested maps must decode as map[string]any so payload fields read the
	// same as they do from JSON.
	dec, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
	return &cborCodec{enc: enc, dec: dec}
}

func (c *cborCodec) Name() string                       { return SubprotocolCBOR }
func (c *cborCodec) MessageType() websocket.MessageType { return websocket.MessageBinary }

func (c *cborCodec) Encode(msg types.Outbound) ([]byte, error) {
	b, err := c.enc.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("cbor encode %s: %w", msg.Event, err)
	}
	return b, nil
}

func (c *cborCodec) Decode(payload []byte) (types.Inbound, error) {
	var msg types.Inbound
	if err := c.dec.Unmarshal(payload, &msg); err != nil {
		return types.Inbound{}, fmt.Errorf("cbor decode: %w", err)
	}
	return msg, nil
}
