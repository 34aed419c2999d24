package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/coder/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

func TestHubSend(t *testing.T) {
	Convey("Given a hub with a two frame buffer", t, func() {
		ctx := context.Background()
		h := NewHub(WithSendBuffer(2))
		c := h.attach("c1", nil, jsonCodec{})

		Convey("Frames are encoded with the peer codec", func() {
			So(h.Send(ctx, "c1", types.EventPong, types.Pong{Timestamp: "t"}), ShouldBeNil)

			var got map[string]any
			So(json.Unmarshal(<-c.send, &got), ShouldBeNil)
			So(got["event"], ShouldEqual, "pong")
			So(got["data"], ShouldResemble, map[string]any{"timestamp": "t"})
		})

		Convey("A full buffer drops without blocking", func() {
			So(h.Send(ctx, "c1", types.EventPong, nil), ShouldBeNil)
			So(h.Send(ctx, "c1", types.EventPong, nil), ShouldBeNil)
			err := h.Send(ctx, "c1", types.EventPong, nil)
			So(errors.Is(err, ErrSendBufferFull), ShouldBeTrue)
			So(len(c.send), ShouldEqual, 2)
		})

		Convey("Detached peers are unknown", func() {
			h.detach("c1")
			So(h.Len(), ShouldEqual, 0)
			err := h.Send(ctx, "c1", types.EventPong, nil)
			So(errors.Is(err, ErrUnknownConnection), ShouldBeTrue)
		})
	})
}

func TestCodecs(t *testing.T) {
	Convey("CodecFor negotiates by subprotocol", t, func() {
		c, err := CodecFor("")
		So(err, ShouldBeNil)
		So(c.Name(), ShouldEqual, SubprotocolJSON)
		So(c.MessageType(), ShouldEqual, websocket.MessageText)

		c, err = CodecFor(SubprotocolCBOR)
		So(err, ShouldBeNil)
		So(c.MessageType(), ShouldEqual, websocket.MessageBinary)

		_, err = CodecFor("snowglobe.xml")
		So(errors.Is(err, ErrUnknownCodec), ShouldBeTrue)
	})

	Convey("JSON decoding", t, func() {
		c := jsonCodec{}

		Convey("keeps payload fields loosely typed", func() {
			msg, err := c.Decode([]byte(`{"event":"shake","data":{"intensity":"7","acceleration":12.5}}`))
			So(err, ShouldBeNil)
			So(msg.Event, ShouldEqual, "shake")
			So(msg.Data["intensity"], ShouldEqual, "7")
			So(msg.Data["acceleration"], ShouldEqual, 12.5)
		})

		Convey("rejects frames that are not an envelope", func() {
			_, err := c.Decode([]byte(`not json`))
			So(err, ShouldNotBeNil)
			_, err = c.Decode([]byte(`{"event":"shake","data":[1,2]}`))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("CBOR decoding yields string keyed maps at every level", t, func() {
		c := cborCodecInstance
		payload, err := c.enc.Marshal(map[string]any{
			"event": "register",
			"data":  map[string]any{"type": "display", "extra": map[string]any{"k": 1}},
		})
		So(err, ShouldBeNil)

		msg, err := c.Decode(payload)
		So(err, ShouldBeNil)
		So(msg.Event, ShouldEqual, "register")
		So(msg.Data["type"], ShouldEqual, "display")
		_, ok := msg.Data["extra"].(map[string]any)
		So(ok, ShouldBeTrue)

		_, err = c.Decode([]byte{0xff, 0x00})
		So(err, ShouldNotBeNil)
	})
}
