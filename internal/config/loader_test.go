package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sarava33/snow-globe-interactive-art/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 4096)
				convey.So(cfg.StatsIntervalMS, convey.ShouldEqual, 30_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SNOWGLOBE_ADDR", ":8080")
			_ = os.Setenv("SNOWGLOBE_QUEUE_SIZE", "128")
			_ = os.Setenv("SNOWGLOBE_MOTION_THRESHOLD", "12.5")
			_ = os.Setenv("SNOWGLOBE_MDNS_ENABLED", "true")
			_ = os.Setenv("SNOWGLOBE_ALLOWED_ORIGINS", "http://a.local, http://b.local")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.MotionThreshold, convey.ShouldEqual, 12.5)
				convey.So(cfg.MDNSEnabled, convey.ShouldBeTrue)
				convey.So(cfg.AllowedOrigins, convey.ShouldResemble, []string{"http://a.local", "http://b.local"})
			})
		})

		convey.Convey("When only a bare PORT is set", func() {
			_ = os.Setenv("PORT", "5000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it becomes the listen address", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			})
		})

		convey.Convey("When PORT and SNOWGLOBE_ADDR are both set", func() {
			_ = os.Setenv("PORT", "5000")
			_ = os.Setenv("SNOWGLOBE_ADDR", "127.0.0.1:8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then SNOWGLOBE_ADDR wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "127.0.0.1:8080")
			})
		})

		convey.Convey("When PORT is set alongside a config file address", func() {
			tmpFile := createTempFile(t, "port.yaml", "addr: \":9090\"\n")
			_ = os.Setenv("SNOWGLOBE_CONFIG", tmpFile)
			_ = os.Setenv("PORT", "5000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then PORT overrides the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
stats_interval_ms: 1000
allowed_origins:
  - "http://display.local"
`
			tmpFile := createTempFile(t, "config.yaml", yamlContent)

			_ = os.Setenv("SNOWGLOBE_CONFIG", tmpFile)
			_ = os.Setenv("SNOWGLOBE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.StatsIntervalMS, convey.ShouldEqual, 1000)
				convey.So(cfg.AllowedOrigins, convey.ShouldResemble, []string{"http://display.local"})
				convey.So(cfg.SendBuffer, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When an explicit file option is given", func() {
			tmpFile := createTempFile(t, "explicit.yaml", "addr: \":7000\"\n")
			_ = os.Setenv("SNOWGLOBE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, config.WithFile(tmpFile))

			convey.Convey("Then it takes precedence over SNOWGLOBE_CONFIG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
			})
		})

		convey.Convey("When loading a .env file", func() {
			envFile := createTempFile(t, ".env", "SNOWGLOBE_ADDR=:4000\nSNOWGLOBE_LOG_LEVEL=debug\n")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, config.WithDotEnv(envFile))

			convey.Convey("Then its values are applied as env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":4000")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When the .env file does not exist", func() {
			cfg, err := config.Load(ctx, config.WithDotEnv(filepath.Join(t.TempDir(), "missing.env")))

			convey.Convey("Then it is ignored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
			_ = os.Setenv("SNOWGLOBE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SNOWGLOBE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SNOWGLOBE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SNOWGLOBE_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"SNOWGLOBE_CONFIG",
		"SNOWGLOBE_ADDR",
		"SNOWGLOBE_LOG_LEVEL",
		"SNOWGLOBE_QUEUE_SIZE",
		"SNOWGLOBE_MOTION_THRESHOLD",
		"SNOWGLOBE_MDNS_ENABLED",
		"SNOWGLOBE_ALLOWED_ORIGINS",
		"PORT",
	} {
		_ = os.Unsetenv(key)
	}
}
