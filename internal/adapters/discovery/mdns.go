// Package discovery advertises the relay on the local network over mDNS and
// finds advertised relays from clients.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// Service type and domain the relay is published under.
const (
	ServiceType = "_snowglobe._tcp"
	Domain      = "local."

	DefaultInstance = "Snow Globe"
)

// TXT record keys.
const (
	txtPath        = "path"
	txtSubprotocol = "subprotocols"
	txtVersion     = "version"

	protocolVersion = "1"
)

// Relay is a relay instance found on the network.
type Relay struct {
	Instance     string
	Host         string
	Port         int
	Addresses    []string
	Path         string
	Subprotocols []string
}

// URL returns the websocket URL of the relay using its first address.
func (r Relay) URL() string {
	host := r.Host
	if len(r.Addresses) > 0 {
		host = r.Addresses[0]
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(strings.TrimSuffix(host, "."), fmt.Sprint(r.Port)), r.Path)
}

// Advertiser publishes the relay as a DNS-SD service.
type Advertiser struct {
	mu       sync.Mutex
	instance string
	server   *zeroconf.Server
	logger   logger.Logger
}

// NewAdvertiser creates an advertiser for the given instance name.
func NewAdvertiser(instance string, log logger.Logger) *Advertiser {
	if instance == "" {
		instance = DefaultInstance
	}
	if log == nil {
		log = logger.Get().Named("mdns")
	}
	return &Advertiser{instance: instance, logger: log}
}

// Advertise starts answering mDNS queries for the relay listening on port.
// Calling it again replaces the previous advertisement.
func (a *Advertiser) Advertise(ctx context.Context, port int, path string, subprotocols []string) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(a.instance, ServiceType, Domain, port, EncodeTXT(path, subprotocols), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAdvertising, err)
	}
	a.server = server

	a.logger.Info(ctx, "relay advertised",
		logger.String("instance", a.instance),
		logger.String("service", ServiceType),
		logger.Int("port", port),
	)
	return nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Lookup browses for relays until the first usable one answers or ctx ends.
func Lookup(ctx context.Context) (Relay, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	browseErr := make(chan error, 1)
	go func() {
		browseErr <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return Relay{}, ErrNotFound
			}
			relay, err := entryToRelay(entry)
			if err != nil {
				continue
			}
			return relay, nil
		case <-removed:
		case err := <-browseErr:
			if err != nil {
				return Relay{}, fmt.Errorf("browse %s: %w", ServiceType, err)
			}
			browseErr = nil
		case <-ctx.Done():
			return Relay{}, fmt.Errorf("%w: %w", ErrNotFound, ctx.Err())
		}
	}
}

// EncodeTXT builds the TXT strings published with the service.
func EncodeTXT(path string, subprotocols []string) []string {
	txt := []string{txtVersion + "=" + protocolVersion}
	if path != "" {
		txt = append(txt, txtPath+"="+path)
	}
	if len(subprotocols) > 0 {
		txt = append(txt, txtSubprotocol+"="+strings.Join(subprotocols, ","))
	}
	return txt
}

// DecodeTXT parses TXT strings into path and subprotocols. Unknown keys are ignored.
func DecodeTXT(txt []string) (path string, subprotocols []string) {
	path = "/"
	for _, kv := range txt {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case txtPath:
			if strings.HasPrefix(value, "/") {
				path = value
			}
		case txtSubprotocol:
			for _, p := range strings.Split(value, ",") {
				if p = strings.TrimSpace(p); p != "" {
					subprotocols = append(subprotocols, p)
				}
			}
		}
	}
	return path, subprotocols
}

func entryToRelay(entry *zeroconf.ServiceEntry) (Relay, error) {
	if entry == nil || entry.Port <= 0 {
		return Relay{}, ErrInvalidEntry
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	if len(addrs) == 0 && entry.HostName == "" {
		return Relay{}, fmt.Errorf("%w: %s has no address", ErrInvalidEntry, entry.Instance)
	}

	path, subprotocols := DecodeTXT(entry.Text)
	return Relay{
		Instance:     entry.Instance,
		Host:         entry.HostName,
		Port:         entry.Port,
		Addresses:    addrs,
		Path:         path,
		Subprotocols: subprotocols,
	}, nil
}
