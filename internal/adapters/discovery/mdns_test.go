package discovery

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/enbility/zeroconf/v3"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

func TestTXTRecords(t *testing.T) {
	Convey("TXT records round trip the websocket endpoint", t, func() {
		txt := EncodeTXT("/ws", []string{"snowglobe.json", "snowglobe.cbor"})
		So(txt, ShouldContain, "version=1")
		So(txt, ShouldContain, "path=/ws")

		path, subprotocols := DecodeTXT(txt)
		So(path, ShouldEqual, "/ws")
		So(subprotocols, ShouldResemble, []string{"snowglobe.json", "snowglobe.cbor"})
	})

	Convey("Malformed TXT records fall back to the root path", t, func() {
		path, subprotocols := DecodeTXT([]string{"garbage", "path=ws", "other=1"})
		So(path, ShouldEqual, "/")
		So(subprotocols, ShouldBeEmpty)
	})
}

func TestEntryToRelay(t *testing.T) {
	Convey("Given a browsed entry", t, func() {
		entry := &zeroconf.ServiceEntry{ServiceRecord: zeroconf.ServiceRecord{Instance: "Snow Globe", Service: ServiceType, Domain: Domain}}
		entry.HostName = "globe.local."
		entry.Port = 3000
		entry.Text = EncodeTXT("/ws", nil)

		Convey("IPv4 addresses are preferred for the URL", func() {
			entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
			relay, err := entryToRelay(entry)
			So(err, ShouldBeNil)
			So(relay.Instance, ShouldEqual, "Snow Globe")
			So(relay.URL(), ShouldEqual, "ws://192.168.1.20:3000/ws")
		})

		Convey("The host name is used when no address was resolved", func() {
			relay, err := entryToRelay(entry)
			So(err, ShouldBeNil)
			So(relay.URL(), ShouldEqual, "ws://globe.local:3000/ws")
		})

		Convey("Entries without a port are rejected", func() {
			entry.Port = 0
			_, err := entryToRelay(entry)
			So(errors.Is(err, ErrInvalidEntry), ShouldBeTrue)
		})
	})
}

func TestAdvertiseRejectsBadPort(t *testing.T) {
	Convey("Advertising on an invalid port fails before touching the network", t, func() {
		a := NewAdvertiser("", nil)
		err := a.Advertise(context.Background(), 0, "/ws", nil)
		So(errors.Is(err, ErrInvalidPort), ShouldBeTrue)
		a.Shutdown()
	})
}
