package simulate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/ws"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
)

// client is one simulated websocket peer. It speaks the same envelope codecs
// as the relay.
type client struct {
	name  string
	conn  *websocket.Conn
	codec ws.Codec
}

func dial(ctx context.Context, cfg *Config, url, name, runID string) (*client, error) {
	dctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dctx, url, &websocket.DialOptions{
		Subprotocols: []string{cfg.Subprotocol},
		HTTPHeader: http.Header{
			"User-Agent": []string{"snowglobe-sim/" + runID},
		},
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	codec, err := ws.CodecFor(conn.Subprotocol())
	if err != nil {
		_ = conn.CloseNow()
		return nil, err
	}
	return &client{name: name, conn: conn, codec: codec}, nil
}

func (c *client) send(ctx context.Context, event string, data any) error {
	payload, err := c.codec.Encode(types.Outbound{Event: event, Data: data})
	if err != nil {
		return err
	}
	if err := c.conn.Write(ctx, c.codec.MessageType(), payload); err != nil {
		return fmt.Errorf("%s send %s: %w", c.name, event, err)
	}
	return nil
}

func (c *client) read(ctx context.Context) (types.Inbound, error) {
	_, payload, err := c.conn.Read(ctx)
	if err != nil {
		return types.Inbound{}, err
	}
	return c.codec.Decode(payload)
}

// register sends the register message and waits for the first reply.
func (c *client) register(ctx context.Context, role, expect string) (types.Inbound, error) {
	if err := c.send(ctx, types.EventRegister, map[string]any{"type": role}); err != nil {
		return types.Inbound{}, err
	}
	rctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	msg, err := c.read(rctx)
	if err != nil {
		return types.Inbound{}, fmt.Errorf("%w: %s: %w", ErrHandshake, c.name, err)
	}
	if msg.Event != expect {
		return msg, fmt.Errorf("%w: %s got %q, want %q", ErrHandshake, c.name, msg.Event, expect)
	}
	return msg, nil
}

func (c *client) close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "simulation finished")
}
