package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/smazurov/streamgate/cmd"
	"github.com/smazurov/streamgate/internal/address"
	"github.com/smazurov/streamgate/internal/api"
	"github.com/smazurov/streamgate/internal/config"
	"github.com/smazurov/streamgate/internal/events"
	"github.com/smazurov/streamgate/internal/logging"
	"github.com/smazurov/streamgate/internal/metrics"
	"github.com/smazurov/streamgate/internal/ports"
	"github.com/smazurov/streamgate/internal/process"
	"github.com/smazurov/streamgate/internal/provider"
	"github.com/smazurov/streamgate/internal/recording"
	"github.com/smazurov/streamgate/internal/recording/store"
	"github.com/smazurov/streamgate/internal/session"
	"github.com/smazurov/streamgate/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"streamgate.toml"`

	// Server settings
	Port         string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	PublicHost   string `help:"Host clients use in playback URLs" default:"127.0.0.1" toml:"server.public_host" env:"PUBLIC_HOST"`
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Port pool
	PortRangeStart int `help:"First port of the serving pool" default:"9000" toml:"ports.start" env:"PORT_RANGE_START"`
	PortRangeEnd   int `help:"Last port of the serving pool (inclusive)" default:"9100" toml:"ports.end" env:"PORT_RANGE_END"`

	// Backend commands
	ViewCommand   string `help:"Command template serving a stream on {port}" default:"streamlink --player-external-http --player-external-http-port {port} twitch.tv/{key} {quality}" toml:"commands.view" env:"VIEW_COMMAND"`
	RecordCommand string `help:"Command template writing a stream to {path}" default:"streamlink --output {path} twitch.tv/{key} {quality}" toml:"commands.record" env:"RECORD_COMMAND"`

	// Startup signaling
	ReadyMarkers    string `help:"Comma-separated markers meaning the backend is serving" default:"server listening,stream opened" toml:"process.ready_markers" env:"READY_MARKERS"`
	FailMarkers     string `help:"Comma-separated markers meaning the start failed" default:"no playable stream,unable to open url" toml:"process.fail_markers" env:"FAIL_MARKERS"`
	PortBusyMarkers string `help:"Comma-separated markers meaning the port is taken" default:"address already in use" toml:"process.port_busy_markers" env:"PORT_BUSY_MARKERS"`
	FallbackDelay   string `help:"Assume-ready delay for backends without markers" default:"3s" toml:"process.fallback_delay" env:"FALLBACK_DELAY"`
	StartupTimeout  string `help:"Give up on a start after this long" default:"30s" toml:"process.startup_timeout" env:"STARTUP_TIMEOUT"`

	// Session lifecycle
	IdleTimeout  string `help:"Idle threshold before a session is reaped" default:"2m" toml:"session.idle_timeout" env:"IDLE_TIMEOUT"`
	MinAge       string `help:"Minimum session age before reaping" default:"2m" toml:"session.min_age" env:"MIN_AGE"`
	ReapInterval string `help:"Idle reaper sweep period" default:"30s" toml:"session.reap_interval" env:"REAP_INTERVAL"`

	// Metadata provider
	ProviderURL string `help:"Base URL of the channel metadata service" default:"http://127.0.0.1:7700" toml:"provider.url" env:"PROVIDER_URL"`

	// Recording
	RulesFile         string `help:"Recording rules file" default:"rules.toml" toml:"recording.rules_file" env:"RULES_FILE"`
	RecordingsDir     string `help:"Directory for recording output" default:"recordings" toml:"recording.output_dir" env:"RECORDINGS_DIR"`
	LedgerPath        string `help:"Recordings ledger database" default:"recordings.db" toml:"recording.ledger" env:"LEDGER_PATH"`
	RecordingPoll     string `help:"Rule evaluation interval" default:"1m" toml:"recording.poll_interval" env:"RECORDING_POLL"`
	RetentionAge      string `help:"Delete recordings older than this (0 disables)" default:"0" toml:"recording.retention_age" env:"RETENTION_AGE"`
	RetentionInterval string `help:"Retention sweep period" default:"24h" toml:"recording.retention_interval" env:"RETENTION_INTERVAL"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession   string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingProcess   string `help:"Process supervisor logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingRecording string `help:"Recording engine logging level" default:"info" toml:"logging.recording" env:"LOGGING_RECORDING"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"session":   opts.LoggingSession,
				"process":   opts.LoggingProcess,
				"recording": opts.LoggingRecording,
				"api":       opts.LoggingAPI,
			},
		})
		logger := logging.GetLogger("main")

		alloc, err := ports.NewAllocator(opts.PortRangeStart, opts.PortRangeEnd)
		if err != nil {
			logger.Error("Invalid port range", "error", err)
			os.Exit(1)
		}

		profile := process.Profile{
			ReadyMarkers:    splitList(opts.ReadyMarkers),
			FailMarkers:     splitList(opts.FailMarkers),
			PortBusyMarkers: splitList(opts.PortBusyMarkers),
			FallbackDelay:   parseDuration(opts.FallbackDelay, 3*time.Second),
			StartupTimeout:  parseDuration(opts.StartupTimeout, 30*time.Second),
		}
		launcher := session.NewProcessLauncher(session.Commands{
			View:   opts.ViewCommand,
			Record: opts.RecordCommand,
		}, profile)

		eventBus := events.New()
		manager := session.NewManager(session.Config{
			PublicHost:   opts.PublicHost,
			IdleTimeout:  parseDuration(opts.IdleTimeout, 2*time.Minute),
			MinAge:       parseDuration(opts.MinAge, 2*time.Minute),
			ReapInterval: parseDuration(opts.ReapInterval, 30*time.Second),
		}, launcher, alloc, eventBus)

		prov := provider.NewHTTPClient(opts.ProviderURL)

		rules := store.NewTOMLRules(opts.RulesFile)
		if err := rules.Load(); err != nil {
			logger.Warn("Failed to load recording rules", "error", err)
		}
		rulesWatcher := config.NewWatcher(opts.RulesFile, 0, rules.Load, logging.GetLogger("recording"))

		ledger, err := store.OpenLedger(opts.LedgerPath)
		if err != nil {
			logger.Error("Failed to open recordings ledger", "error", err)
			os.Exit(1)
		}

		// On a lookup miss, poll every ruled channel once so a freshly
		// learned base id can satisfy the request.
		var resolver *address.Resolver
		resolver = address.NewResolver(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for _, rule := range rules.GetAllRules() {
				status, err := prov.ChannelStatus(ctx, rule.Channel)
				if err != nil {
					continue
				}
				if status.BaseID != 0 {
					resolver.Learn(status.BaseID, rule.Channel)
				}
			}
		})

		engine := recording.NewEngine(recording.EngineConfig{
			PollInterval: parseDuration(opts.RecordingPoll, time.Minute),
			OutputDir:    opts.RecordingsDir,
		}, rules, ledger, prov, launcher, eventBus, resolver)

		retention := recording.NewRetention(recording.RetentionConfig{
			MaxAge:   parseDuration(opts.RetentionAge, 0),
			Interval: parseDuration(opts.RetentionInterval, 24*time.Hour),
			Dir:      opts.RecordingsDir,
		}, ledger)

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Manager:           manager,
			Resolver:          resolver,
			Ledger:            ledger,
			Rules:             rules,
			EventBus:          eventBus,
			PrometheusHandler: metrics.Handler(),
		})

		hooks.OnStart(func() {
			manager.StartReaper()
			engine.Start()
			retention.Start()
			if watchErr := rulesWatcher.Start(); watchErr != nil {
				logger.Warn("Rules file not watchable, hot reload disabled", "error", watchErr)
			}

			systemd.NotifyReady()
			systemd.NotifyStatus("serving")

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			systemd.NotifyStopping()
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if shutdownErr := engine.Shutdown(ctx); shutdownErr != nil {
				logger.Error("Error stopping recording engine", "error", shutdownErr)
			}
			if shutdownErr := manager.Shutdown(ctx); shutdownErr != nil {
				logger.Error("Error stopping sessions", "error", shutdownErr)
			}

			retention.Stop()
			_ = rulesWatcher.Stop()
			if closeErr := ledger.Close(); closeErr != nil {
				logger.Error("Error closing ledger", "error", closeErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateValidateCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Run()
}

// parseDuration parses a duration option, falling back on bad input.
func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// splitList splits a comma-separated option into trimmed entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
