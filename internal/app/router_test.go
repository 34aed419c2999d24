package service_test

import (
	"testing"
	"time"

	service "github.com/Sarava33/snow-globe-interactive-art/internal/app"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRouterShake(t *testing.T) {
	Convey("Given a controller and a display", t, func() {
		h := newHarness()
		h.register("c1", "controller")
		h.register("d1", "display")
		h.sender.reset()

		Convey("When an unregistered connection shakes", func() {
			h.connect("u1")
			_ = h.send("u1", "shake", shakeData(1.0, 5.0))

			Convey("Then it is told it is not a controller and nothing is broadcast", func() {
				So(h.sender.to("u1"), ShouldResemble, []frame{{
					To: "u1", Event: types.EventError, Data: types.Error{Message: "Not registered as controller"},
				}})
				So(h.sender.to("d1"), ShouldBeEmpty)
			})
		})

		Convey("When a display shakes", func() {
			_ = h.send("d1", "shake", shakeData(1.0, 5.0))

			Convey("Then it is rejected like any non-controller", func() {
				errs := h.sender.events("d1", types.EventError)
				So(errs, ShouldHaveLength, 1)
				So(h.sender.events("d1", types.EventShake), ShouldBeEmpty)
			})
		})

		Convey("When required fields are missing or falsy", func() {
			cases := []map[string]any{
				{"intensity": 5.0, "acceleration": 2.0},
				{"timestamp": 1.0, "acceleration": 2.0},
				{"timestamp": 1.0, "intensity": 5.0},
				{"timestamp": 1.0, "intensity": 0.0, "acceleration": 2.0},
				{"timestamp": "", "intensity": 5.0, "acceleration": 2.0},
				{"timestamp": 1.0, "intensity": 5.0, "acceleration": nil},
			}
			for _, data := range cases {
				_ = h.send("c1", "shake", data)
			}

			Convey("Then each is answered with one error and no state changes", func() {
				errs := h.sender.events("c1", types.EventError)
				So(errs, ShouldHaveLength, len(cases))
				So(errs[0].Data, ShouldResemble, types.Error{Message: "Invalid shake data"})
				So(h.sender.to("d1"), ShouldBeEmpty)
				conn, _ := h.store.Get(h.ctx, "c1")
				So(conn.LastShake, ShouldBeNil)
			})
		})

		Convey("When the first shake carries an arbitrary timestamp", func() {
			_ = h.send("c1", "shake", shakeData("not-a-time", 5.0))

			Convey("Then it is accepted", func() {
				So(h.sender.events("d1", types.EventShake), ShouldHaveLength, 1)
				So(h.sender.events("c1", types.EventShakeConfirmed), ShouldHaveLength, 1)
			})
		})

		Convey("When the first shake carries an unreadable timestamp", func() {
			_ = h.send("c1", "shake", shakeData("not-a-time", 5.0))
			h.clock.Advance(10 * time.Millisecond)
			_ = h.send("c1", "shake", shakeData("not-a-time", 6.0))

			Convey("Then the next shake is never throttled against it", func() {
				So(h.sender.events("c1", types.EventShakeConfirmed), ShouldHaveLength, 2)
			})
		})

		Convey("When a shake stamped T by the client is accepted", func() {
			T := h.clock.Now()
			_ = h.send("c1", "shake", shakeData(float64(T.UnixMilli()), 5.0))

			Convey("Then a shake arriving at T+999ms is dropped silently", func() {
				h.sender.reset()
				h.clock.Advance(999 * time.Millisecond)
				err := h.send("c1", "shake", shakeData(float64(h.clock.Now().UnixMilli()), 7.0))

				So(err, ShouldBeNil)
				So(h.sender.total(), ShouldEqual, 0)
				conn, _ := h.store.Get(h.ctx, "c1")
				So(conn.LastShake.Timestamp, ShouldEqual, float64(T.UnixMilli()))
				So(conn.LastShake.Intensity, ShouldEqual, 5)
			})

			Convey("Then a shake arriving at T+1000ms is accepted and becomes the last shake", func() {
				h.sender.reset()
				h.clock.Advance(1000 * time.Millisecond)
				_ = h.send("c1", "shake", shakeData(float64(h.clock.Now().UnixMilli()), 7.0))

				So(h.sender.events("d1", types.EventShake), ShouldHaveLength, 1)
				So(h.sender.events("c1", types.EventShakeConfirmed), ShouldHaveLength, 1)
				conn, _ := h.store.Get(h.ctx, "c1")
				So(conn.LastShake.At, ShouldEqual, T.Add(time.Second))
				So(conn.LastShake.Intensity, ShouldEqual, 7)
			})
		})

		Convey("When the client clock runs ten seconds behind the server", func() {
			behind := float64(h.clock.Now().Add(-10 * time.Second).UnixMilli())
			_ = h.send("c1", "shake", shakeData(behind, 5.0))
			h.clock.Advance(10 * time.Millisecond)
			_ = h.send("c1", "shake", shakeData(behind+10, 6.0))

			Convey("Then spacing is measured from its own timestamp and both shakes are accepted", func() {
				So(h.sender.events("c1", types.EventShakeConfirmed), ShouldHaveLength, 2)
				So(h.sender.events("d1", types.EventShake), ShouldHaveLength, 2)
			})
		})

		Convey("When the client clock runs ahead of the server", func() {
			ahead := float64(h.clock.Now().Add(time.Minute).UnixMilli())
			_ = h.send("c1", "shake", shakeData(ahead, 5.0))
			h.clock.Advance(2 * time.Second)
			_ = h.send("c1", "shake", shakeData(ahead+2000, 6.0))

			Convey("Then later shakes are held back until the server catches up", func() {
				So(h.sender.events("c1", types.EventShakeConfirmed), ShouldHaveLength, 1)
			})
		})

		Convey("When shake numbers are not integers", func() {
			sent := []any{2.5, "abc", "7", 0.0, nil}
			for _, n := range sent {
				h.clock.Advance(time.Second)
				data := shakeData(1.0, 5.0)
				data["shakeNumber"] = n
				_ = h.send("c1", "shake", data)
			}

			Convey("Then they are echoed as sent and falsy values become 0", func() {
				var confirmed, broadcast []any
				for _, f := range h.sender.events("c1", types.EventShakeConfirmed) {
					confirmed = append(confirmed, f.Data.(types.ShakeConfirmed).ShakeNumber)
				}
				for _, f := range h.sender.events("d1", types.EventShake) {
					broadcast = append(broadcast, f.Data.(types.Shake).ShakeNumber)
				}
				want := []any{2.5, "abc", "7", 0, 0}
				So(confirmed, ShouldResemble, want)
				So(broadcast, ShouldResemble, want)
			})
		})

		Convey("When intensities are out of range or not numeric", func() {
			got := []int{}
			for _, in := range []any{15.0, -3.0, "abc", "6.8"} {
				h.clock.Advance(time.Second)
				_ = h.send("c1", "shake", shakeData(1.0, in))
			}
			for _, f := range h.sender.events("c1", types.EventShakeConfirmed) {
				got = append(got, f.Data.(types.ShakeConfirmed).Intensity)
			}

			Convey("Then they are clamped to [1,10] with a default of 1", func() {
				So(got, ShouldResemble, []int{10, 1, 1, 6})
			})
		})

		Convey("When an accepted shake has loosely typed fields", func() {
			_ = h.send("c1", "shake", map[string]any{
				"timestamp":    "2024-12-01T10:00:00Z",
				"intensity":    "4",
				"acceleration": "12.5",
				"x":            "oops",
				"shakeNumber":  "3",
			})

			Convey("Then the broadcast is normalized and the timestamp echoed", func() {
				shakes := h.sender.events("d1", types.EventShake)
				So(shakes, ShouldHaveLength, 1)
				So(shakes[0].Data, ShouldResemble, types.Shake{
					UserID:       "c1",
					Intensity:    4,
					Acceleration: 12.5,
					Timestamp:    "2024-12-01T10:00:00Z",
					ShakeNumber:  "3",
				})
				So(h.sender.events("c1", types.EventShakeConfirmed)[0].Data, ShouldResemble, types.ShakeConfirmed{
					Intensity:    4,
					Timestamp:    "2024-12-01T10:00:00Z",
					Acceleration: 12.5,
					ShakeNumber:  "3",
				})
			})
		})

		Convey("When a display cannot be reached", func() {
			h.register("d2", "display")
			h.sender.reset()
			h.sender.unreachable["d1"] = true
			_ = h.send("c1", "shake", shakeData(1.0, 5.0))

			Convey("Then the other display still receives the shake and the sender is confirmed", func() {
				So(h.sender.events("d2", types.EventShake), ShouldHaveLength, 1)
				So(h.sender.events("c1", types.EventShakeConfirmed), ShouldHaveLength, 1)
				So(h.sender.events("c1", types.EventError), ShouldBeEmpty)
			})
		})
	})
}

func TestRouterMotion(t *testing.T) {
	Convey("Given a controller and two displays", t, func() {
		h := newHarness()
		h.register("c1", "controller")
		h.register("d1", "display")
		h.register("d2", "display")
		h.sender.reset()

		Convey("When a sample at 14.9 arrives", func() {
			_ = h.send("c1", "motion", map[string]any{"totalAcceleration": 14.9, "x": 1.0})

			Convey("Then nothing is forwarded", func() {
				So(h.sender.total(), ShouldEqual, 0)
			})
		})

		Convey("When a sample exactly at the threshold arrives", func() {
			_ = h.send("c1", "motion", map[string]any{"totalAcceleration": 15.0})

			Convey("Then nothing is forwarded", func() {
				So(h.sender.total(), ShouldEqual, 0)
			})
		})

		Convey("When a sample at 15.1 arrives", func() {
			_ = h.send("c1", "motion", map[string]any{"totalAcceleration": 15.1, "x": 1.5, "y": "2", "timestamp": 42.0})

			Convey("Then every display receives it and the sender gets nothing", func() {
				want := types.Motion{UserID: "c1", TotalAcceleration: 15.1, X: 1.5, Y: 2, Timestamp: 42.0}
				So(h.sender.events("d1", types.EventMotion), ShouldResemble, []frame{{To: "d1", Event: types.EventMotion, Data: want}})
				So(h.sender.events("d2", types.EventMotion), ShouldResemble, []frame{{To: "d2", Event: types.EventMotion, Data: want}})
				So(h.sender.to("c1"), ShouldBeEmpty)
			})
		})

		Convey("When a forwarded sample has no timestamp", func() {
			_ = h.send("c1", "motion", map[string]any{"totalAcceleration": "20"})

			Convey("Then the server time is used", func() {
				m := h.sender.events("d1", types.EventMotion)
				So(m, ShouldHaveLength, 1)
				So(m[0].Data.(types.Motion).Timestamp, ShouldEqual, types.Timestamp(epoch))
			})
		})

		Convey("When motion comes from a non-controller", func() {
			h.connect("u1")
			_ = h.send("u1", "motion", map[string]any{"totalAcceleration": 30.0})
			_ = h.send("d1", "motion", map[string]any{"totalAcceleration": 30.0})

			Convey("Then it is dropped silently", func() {
				So(h.sender.total(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a custom motion threshold of 5", t, func() {
		h := newHarness(service.WithMotionThreshold(5))
		h.register("c1", "controller")
		h.register("d1", "display")
		h.sender.reset()

		Convey("Then a sample at 10 is forwarded", func() {
			_ = h.send("c1", "motion", map[string]any{"totalAcceleration": 10.0})
			So(h.sender.events("d1", types.EventMotion), ShouldHaveLength, 1)
		})
	})
}

func TestRouterPing(t *testing.T) {
	Convey("Given any connection", t, func() {
		h := newHarness()
		h.connect("u1")

		Convey("When it pings", func() {
			_ = h.send("u1", "ping", nil)

			Convey("Then it receives a pong with the server time", func() {
				So(h.sender.to("u1"), ShouldResemble, []frame{{
					To: "u1", Event: types.EventPong, Data: types.Pong{Timestamp: types.Timestamp(epoch)},
				}})
				conn, _ := h.store.Get(h.ctx, "u1")
				So(conn.Role, ShouldEqual, model.RoleUnregistered)
			})
		})
	})
}
