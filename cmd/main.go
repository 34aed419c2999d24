package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/discovery"
	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/http/api"
	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/http/site"
	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/ws"
	app "github.com/Sarava33/snow-globe-interactive-art/internal/app"
	"github.com/Sarava33/snow-globe-interactive-art/internal/config"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

// HTTP server timeout constants.
const (
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// flags are the command line overrides layered on top of the loaded config.
type flags struct {
	configFile string
	envFile    string
	addr       string
	logLevel   string
	logFormat  string
	staticDir  string
	mdns       bool
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("snowglobe", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.configFile, "config", "c", "", "YAML config file (overrides SNOWGLOBE_CONFIG)")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	fs.StringVarP(&f.addr, "addr", "a", "", "HTTP listen address, e.g. :3000")
	fs.StringVarP(&f.logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	fs.StringVar(&f.staticDir, "static", "", "directory holding controller.html and display.html")
	fs.BoolVar(&f.mdns, "mdns", false, "advertise the relay over mDNS")
	if err := fs.Parse(args); err != nil {
		return flags{}, fmt.Errorf("parse flags: %w", err)
	}
	return f, nil
}

// loadConfig reads configuration and applies flag overrides. Only flags the
// user set win over files and environment.
func loadConfig(ctx context.Context, f flags) (*config.Config, error) {
	opts := []config.LoadOption{config.WithDotEnv(f.envFile)}
	if f.configFile != "" {
		opts = append(opts, config.WithFile(f.configFile))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	if f.staticDir != "" {
		cfg.StaticDir = f.staticDir
	}
	if f.mdns {
		cfg.MDNSEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// Default Go collectors stay off; system metrics are exported by hand below.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, f)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "relay exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// relay bundles the wired components of one server process.
type relay struct {
	cfg     *config.Config
	hub     *ws.Hub
	svc     *app.Service
	ws      *ws.Handler
	handler http.Handler
	logger  logger.Logger
}

func newRelay(ctx context.Context, cfg *config.Config, log logger.Logger) (*relay, error) {
	hub := ws.NewHub(
		ws.WithSendBuffer(cfg.SendBuffer),
		ws.WithHubLogger(log.Named("ws_hub")),
	)
	svc := app.New(hub,
		app.WithLogger(log.Named("relay")),
		app.WithQueueSize(cfg.QueueSize),
		app.WithStatsInterval(cfg.StatsInterval()),
		app.WithRegistrationTimeout(cfg.RegistrationTimeout()),
		app.WithShakeInterval(cfg.ShakeInterval()),
		app.WithMotionThreshold(cfg.MotionThreshold),
	)
	wsHandler := ws.NewHandler(hub, svc,
		ws.WithOriginPatterns(cfg.AllowedOrigins),
		ws.WithReadLimit(cfg.MaxMessageBytes),
		ws.WithWriteTimeout(cfg.WriteTimeout()),
		ws.WithLogger(log.Named("ws")),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.WSPath, wsHandler)

	apiServer := api.NewServer(svc, svc, time.Now)
	apiServer.Register(ctx, mux)

	if err := site.Register(ctx, mux, cfg.StaticDir); err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	return &relay{
		cfg:     cfg,
		hub:     hub,
		svc:     svc,
		ws:      wsHandler,
		handler: api.CORS(cfg.AllowedOrigins, mux),
		logger:  log,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	r, err := newRelay(ctx, cfg, log)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return r.serve(ctx, ln)
}

// serve runs the relay on ln until ctx ends, then shuts everything down in
// dependency order: stop accepting, close sockets, drain the dispatcher.
func (r *relay) serve(ctx context.Context, ln net.Listener) error {
	// The service outlives ctx so disconnects raised during shutdown still drain.
	if err := r.svc.Start(context.WithoutCancel(ctx)); err != nil {
		_ = ln.Close()
		return fmt.Errorf("start relay: %w", err)
	}
	defer r.svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, r.svc)

	if r.cfg.MDNSEnabled {
		adv := discovery.NewAdvertiser(r.cfg.MDNSInstance, r.logger.Named("mdns"))
		if err := adv.Advertise(ctx, listenPort(ln), r.cfg.WSPath, []string{ws.SubprotocolJSON, ws.SubprotocolCBOR}); err != nil {
			r.logger.Warn(ctx, "mdns advertisement disabled", logger.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	// No ReadTimeout: its deadline would carry over to hijacked websocket connections.
	srv := &http.Server{
		Handler:           r.handler,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		r.logger.Info(ctx, "starting HTTP server",
			logger.String("addr", ln.Addr().String()),
			logger.String("ws_path", r.cfg.WSPath),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	r.logger.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := r.ws.Shutdown(shutdownCtx); err != nil {
		r.logger.Error(shutdownCtx, "websocket shutdown failed", logger.Error(err))
	}

	r.logger.Info(shutdownCtx, "server stopped")
	return runErr
}

func listenPort(ln net.Listener) int {
	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if queueSize, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(queueSize)
	}
}
