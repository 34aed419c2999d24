package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/discovery"
	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/ws"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// counters are updated by reader goroutines.
type counters struct {
	shakesSent        atomic.Int64
	shakesConfirmed   atomic.Int64
	shakesDelivered   atomic.Int64
	motionSent        atomic.Int64
	motionForwardable atomic.Int64
	motionDelivered   atomic.Int64
	presenceDelivered atomic.Int64
	errorsReceived    atomic.Int64
}

// Run executes one simulation and returns its statistics. The error is
// non-nil when the relay could not be reached or lost events.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	stats := &Stats{RunID: uuid.NewString(), StartTime: time.Now()}
	log := logger.Get().Named("simulate").With(logger.String("run_id", stats.RunID))

	target, err := resolveURL(ctx, cfg)
	if err != nil {
		return stats, err
	}
	log.Info(ctx, "starting simulation",
		logger.String("url", target),
		logger.Int("controllers", cfg.Controllers),
		logger.Int("displays", cfg.Displays),
		logger.Int("shakes", cfg.Shakes),
		logger.String("subprotocol", cfg.Subprotocol),
	)

	if err := checkHealth(ctx, target, cfg.DialTimeout); err != nil {
		return stats, fmt.Errorf("relay health check failed: %w", err)
	}

	var (
		c       counters
		readers sync.WaitGroup
	)

	displays := make([]*client, 0, cfg.Displays)
	defer func() {
		for _, d := range displays {
			d.close()
		}
	}()
	for i := range cfg.Displays {
		d, err := dial(ctx, cfg, target, fmt.Sprintf("display-%d", i), stats.RunID)
		if err != nil {
			return stats, err
		}
		displays = append(displays, d)
		if _, err := d.register(ctx, "display", types.EventUserCount); err != nil {
			return stats, err
		}
		readers.Add(1)
		go func() {
			defer readers.Done()
			readDisplay(ctx, d, &c, log, cfg.Verbose)
		}()
	}
	stats.DisplaysJoined = len(displays)

	controllers := make([]*client, 0, cfg.Controllers)
	defer func() {
		for _, p := range controllers {
			p.close()
		}
	}()
	for i := range cfg.Controllers {
		p, err := dial(ctx, cfg, target, fmt.Sprintf("controller-%d", i), stats.RunID)
		if err != nil {
			return stats, err
		}
		controllers = append(controllers, p)
		if _, err := p.register(ctx, "controller", types.EventConnected); err != nil {
			return stats, err
		}
		readers.Add(1)
		go func() {
			defer readers.Done()
			readController(ctx, p, &c)
		}()
	}
	stats.ControllersJoined = len(controllers)

	var senders sync.WaitGroup
	sendErrs := make(chan error, len(controllers))
	for _, p := range controllers {
		senders.Add(1)
		go func() {
			defer senders.Done()
			if err := drive(ctx, p, cfg, &c); err != nil {
				sendErrs <- err
			}
		}()
	}
	senders.Wait()
	close(sendErrs)

	// Let broadcasts drain, then hang up controllers so displays see them leave.
	sleep(ctx, cfg.Settle)
	for _, p := range controllers {
		p.close()
	}
	controllers = nil
	sleep(ctx, cfg.Settle)
	for _, d := range displays {
		d.close()
	}
	displays = nil
	readers.Wait()

	stats.ShakesSent = int(c.shakesSent.Load())
	stats.ShakesConfirmed = int(c.shakesConfirmed.Load())
	stats.ShakesDelivered = int(c.shakesDelivered.Load())
	stats.MotionSent = int(c.motionSent.Load())
	stats.MotionForwardable = int(c.motionForwardable.Load())
	stats.MotionDelivered = int(c.motionDelivered.Load())
	stats.PresenceDelivered = int(c.presenceDelivered.Load())
	stats.ErrorsReceived = int(c.errorsReceived.Load())
	stats.ExpectedDeliveries = stats.ShakesConfirmed * stats.DisplaysJoined
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, log, stats)

	var errs []error
	for err := range sendErrs {
		errs = append(errs, err)
	}
	if err := verifyDelivery(stats); err != nil {
		errs = append(errs, err)
	}
	return stats, errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	if cfg.Subprotocol == "" {
		cfg.Subprotocol = ws.SubprotocolJSON
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
}

func resolveURL(ctx context.Context, cfg *Config) (string, error) {
	if !cfg.Discover {
		return cfg.URL, nil
	}
	lctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	relay, err := discovery.Lookup(lctx)
	if err != nil {
		return "", fmt.Errorf("discover relay: %w", err)
	}
	return relay.URL(), nil
}

// drive sends the configured shakes of one controller, interleaved with motion.
func drive(ctx context.Context, p *client, cfg *Config, c *counters) error {
	ticker := time.NewTicker(cfg.ShakeInterval)
	defer ticker.Stop()

	for n := 1; n <= cfg.Shakes; n++ {
		for range cfg.MotionPerShake {
			payload, forwardable := motionPayload()
			if err := p.send(ctx, types.EventMotion, payload); err != nil {
				return err
			}
			c.motionSent.Add(1)
			if forwardable {
				c.motionForwardable.Add(1)
			}
		}

		if err := p.send(ctx, types.EventShake, shakePayload(n, time.Now())); err != nil {
			return err
		}
		c.shakesSent.Add(1)

		if n == cfg.Shakes {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func readDisplay(ctx context.Context, d *client, c *counters, log logger.Logger, verbose bool) {
	for {
		msg, err := d.read(ctx)
		if err != nil {
			return
		}
		if verbose {
			log.Debug(ctx, "display frame", logger.String("display", d.name), logger.String("event", msg.Event))
		}
		switch msg.Event {
		case types.EventShake:
			c.shakesDelivered.Add(1)
		case types.EventMotion:
			c.motionDelivered.Add(1)
		case types.EventUserConnected, types.EventUserDisconnected:
			c.presenceDelivered.Add(1)
		case types.EventError:
			c.errorsReceived.Add(1)
		}
	}
}

func readController(ctx context.Context, p *client, c *counters) {
	for {
		msg, err := p.read(ctx)
		if err != nil {
			return
		}
		switch msg.Event {
		case types.EventShakeConfirmed:
			c.shakesConfirmed.Add(1)
		case types.EventError:
			c.errorsReceived.Add(1)
		}
	}
}

// checkHealth queries GET /health next to the websocket endpoint.
func checkHealth(ctx context.Context, wsURL string, timeout time.Duration) error {
	u, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("parse %s: %w", wsURL, err)
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/health"
	u.RawQuery = ""

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("relay reports %q", body.Status)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
