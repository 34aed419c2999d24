package service_test

import (
	"testing"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/mq/queue"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHandshake(t *testing.T) {
	Convey("Given a relay with one display", t, func() {
		h := newHarness()
		h.register("d1", "display")
		h.sender.reset()

		Convey("When a controller registers", func() {
			h.connect("c1")
			err := h.send("c1", "register", map[string]any{"type": "controller", "userAgent": "iPhone"})

			Convey("Then it is promoted and welcomed", func() {
				So(err, ShouldBeNil)
				conn, gerr := h.store.Get(h.ctx, "c1")
				So(gerr, ShouldBeNil)
				So(conn.Role, ShouldEqual, model.RoleController)
				So(conn.UserAgent, ShouldEqual, "iPhone")

				welcome := h.sender.events("c1", types.EventConnected)
				So(welcome, ShouldHaveLength, 1)
				So(welcome[0].Data, ShouldResemble, types.Connected{
					Message:    "Connected to Snow Globe!",
					UserID:     "c1",
					TotalUsers: 1,
				})
			})

			Convey("And every display is told about it", func() {
				joined := h.sender.events("d1", types.EventUserConnected)
				So(joined, ShouldHaveLength, 1)
				So(joined[0].Data, ShouldResemble, types.UserPresence{UserID: "c1", TotalUsers: 1})
			})
		})

		Convey("When a controller registers without a user agent", func() {
			h.connect("c2")
			_ = h.send("c2", "register", map[string]any{"type": "controller"})

			Convey("Then the transport user agent is kept", func() {
				conn, _ := h.store.Get(h.ctx, "c2")
				So(conn.UserAgent, ShouldEqual, "test-agent")
			})
		})

		Convey("When a second display registers", func() {
			h.register("c1", "controller")
			h.sender.reset()
			h.register("d2", "display")

			Convey("Then it receives the controller snapshot and nobody else hears about it", func() {
				counts := h.sender.events("d2", types.EventUserCount)
				So(counts, ShouldHaveLength, 1)
				uc, ok := counts[0].Data.(types.UserCount)
				So(ok, ShouldBeTrue)
				So(uc.Count, ShouldEqual, 1)
				So(uc.Users, ShouldHaveLength, 1)
				So(uc.Users[0].ID, ShouldEqual, "c1")
				So(uc.Users[0].Type, ShouldEqual, "controller")
				So(h.sender.to("d1"), ShouldBeEmpty)
				So(h.sender.to("c1"), ShouldBeEmpty)
			})
		})

		Convey("When a connection registers as watcher", func() {
			h.connect("w1")
			before := h.sender.total()
			err := h.send("w1", "register", map[string]any{"type": "watcher"})

			Convey("Then the registry is unchanged and exactly one error is sent", func() {
				So(err, ShouldBeNil)
				conn, _ := h.store.Get(h.ctx, "w1")
				So(conn.Role, ShouldEqual, model.RoleUnregistered)
				So(h.store.Count(h.ctx, model.RoleController), ShouldEqual, 0)
				So(h.store.Count(h.ctx, model.RoleDisplay), ShouldEqual, 1)
				So(h.sender.total(), ShouldEqual, before+1)
				So(h.sender.to("w1"), ShouldResemble, []frame{{
					To:    "w1",
					Event: types.EventError,
					Data:  types.Error{Message: "Unknown registration type: watcher"},
				}})
			})
		})

		Convey("When the registration type is missing", func() {
			h.connect("w2")
			_ = h.send("w2", "register", map[string]any{})

			Convey("Then the error names it undefined", func() {
				errs := h.sender.events("w2", types.EventError)
				So(errs, ShouldHaveLength, 1)
				So(errs[0].Data, ShouldResemble, types.Error{Message: "Unknown registration type: undefined"})
			})
		})

		Convey("When a registered controller tries to register as a display", func() {
			h.register("c1", "controller")
			h.sender.reset()
			_ = h.send("c1", "register", map[string]any{"type": "display"})

			Convey("Then it is rejected and stays a controller", func() {
				conn, _ := h.store.Get(h.ctx, "c1")
				So(conn.Role, ShouldEqual, model.RoleController)
				So(h.store.Count(h.ctx, model.RoleDisplay), ShouldEqual, 1)
				So(h.sender.to("c1"), ShouldResemble, []frame{{
					To:    "c1",
					Event: types.EventError,
					Data:  types.Error{Message: "Already registered as controller"},
				}})
				So(h.sender.to("d1"), ShouldBeEmpty)
			})
		})
	})
}

func TestHandshakeNonStringType(t *testing.T) {
	Convey("Given an unregistered connection", t, func() {
		h := newHarness()
		h.connect("c1")

		Convey("Then a numeric type is rejected and the rejection is absorbed by Handle", func() {
			err := h.handle(queue.Event{Kind: model.InboundMessage, ConnID: "c1", Event: "register", Data: map[string]any{"type": 7.0}})
			So(err, ShouldBeNil)
			errs := h.sender.events("c1", types.EventError)
			So(errs, ShouldHaveLength, 1)
			So(errs[0].Data, ShouldResemble, types.Error{Message: "Unknown registration type: 7"})
		})
	})
}
