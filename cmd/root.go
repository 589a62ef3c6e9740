// Package cmd wires the CLI commands together.
package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"loopcast/internal/config"
	"loopcast/internal/events"
	"loopcast/internal/logging"
	"loopcast/internal/metrics"
	"loopcast/internal/orchestrator"
	"loopcast/internal/source"
	"loopcast/internal/stream"
)

// rootFlags gathers every flag of the root command. Legacy single-endpoint
// flags let the tool run without a config file at all.
type rootFlags struct {
	configFile string

	// Legacy single-endpoint flags.
	host       string
	port       int
	mount      string
	password   string
	username   string
	streamName string
	sourceFile string
	bitrate    string

	cacheDir      string
	metricsAddr   string
	restartDelay  time.Duration
	maxRestarts   int
	strictResolve bool
	watch         bool

	logLevel  string
	logFormat string
}

// CreateRootCmd creates the root command that runs the streamer.
func CreateRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "loopcast",
		Short: "Loop audio sources to Icecast mount points",
		Long: `Streams local files, remote files, or directories of audio on an infinite ` +
			`loop to one or more Icecast mount points, sharing a single encoder per ` +
			`(source, bitrate) pair and restarting encoders that die.`,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStream(flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configFile, "config", "c", "", "Path to endpoints file (TOML or JSON)")
	addEndpointFlags(f, flags)

	f.StringVar(&flags.cacheDir, "cache-dir", defaultCacheDir(), "Directory for downloaded sources and playlists")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	f.DurationVar(&flags.restartDelay, "restart-delay", 0, "Delay between encoder restarts (0 = default)")
	f.IntVar(&flags.maxRestarts, "max-restarts", 0, "Stop a group after this many failures (0 = retry forever)")
	f.BoolVar(&flags.strictResolve, "strict-resolve", false, "Fail startup if any source cannot be resolved")
	f.BoolVar(&flags.watch, "watch", false, "Watch the endpoints file and apply changes live")

	f.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&flags.logFormat, "log-format", "text", "Log format (text, json)")

	cmd.AddCommand(CreateCheckCmd())
	cmd.AddCommand(CreateVersionCmd())
	return cmd
}

// addEndpointFlags registers the legacy single-endpoint flags, which mirror
// the fields of an endpoints-file entry.
func addEndpointFlags(f *pflag.FlagSet, flags *rootFlags) {
	f.StringVarP(&flags.host, "host", "H", "", "Icecast server host (single-endpoint mode)")
	f.IntVarP(&flags.port, "port", "p", 8000, "Icecast server port")
	f.StringVarP(&flags.mount, "mount", "m", "", "Icecast mount point")
	f.StringVarP(&flags.password, "password", "P", "", "Icecast source password")
	f.StringVarP(&flags.username, "username", "u", stream.DefaultUsername, "Icecast source username")
	f.StringVarP(&flags.streamName, "name", "n", "", "Stream display name")
	f.StringVarP(&flags.sourceFile, "file", "f", "", "Audio source: file, URL, or directory")
	f.StringVarP(&flags.bitrate, "bitrate", "b", stream.DefaultBitrate, "MP3 bitrate, e.g. 128k")
}

// Execute runs the CLI. Configuration errors exit nonzero before any encoder
// starts.
func Execute() {
	config.LoadEnv()
	if err := CreateRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runStream(flags *rootFlags) error {
	logging.Initialize(logging.Config{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	logger := logging.GetLogger("main")

	endpoints, err := loadEndpoints(flags)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return err
	}

	resolver := source.NewResolver(flags.cacheDir, logging.GetLogger("source"))
	groups, err := orchestrator.BuildGroups(endpoints, resolver, flags.strictResolve, logger)
	if err != nil {
		logger.Error("Cannot build stream groups", "error", err)
		return err
	}

	bus := events.New()
	m := metrics.New()
	unobserve := m.Observe(bus)
	defer unobserve()

	if flags.metricsAddr != "" {
		go serveMetrics(flags.metricsAddr, m, logger)
	}

	o := orchestrator.New(orchestrator.Options{
		Logger:        logger,
		EncoderLogger: logging.GetLogger("ffmpeg"),
		Bus:           bus,
		Metrics:       m,
		RestartDelay:  flags.restartDelay,
		MaxRestarts:   flags.maxRestarts,
	})
	o.Start(groups)

	if flags.watch && flags.configFile != "" {
		watcher := config.NewWatcher(flags.configFile, logging.GetLogger("config"))
		watcher.OnReload(func(endpoints []stream.Endpoint) {
			bus.Publish(events.ConfigReloadedEvent{
				Path:      flags.configFile,
				Endpoints: len(endpoints),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			if reloadErr := o.Reload(endpoints, resolver); reloadErr != nil {
				logger.Warn("Reload failed, keeping current groups", "error", reloadErr)
			}
		})
		if watchErr := watcher.Start(); watchErr != nil {
			logger.Warn("Cannot watch endpoints file, hot-reload disabled", "error", watchErr)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	return o.AwaitSignal()
}

// loadEndpoints builds the endpoint list from the config file or, when no
// file is given, from the legacy single-endpoint flags.
func loadEndpoints(flags *rootFlags) ([]stream.Endpoint, error) {
	if flags.configFile != "" {
		return config.Load(flags.configFile)
	}

	ep := stream.Endpoint{
		Host:       flags.host,
		Port:       flags.port,
		Mount:      flags.mount,
		Password:   flags.password,
		Username:   flags.username,
		StreamName: flags.streamName,
		Source:     flags.sourceFile,
		Bitrate:    flags.bitrate,
	}
	return config.Finalize([]stream.Endpoint{ep})
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	logger.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server stopped", "error", err)
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return fmt.Sprintf("%s/loopcast", dir)
	}
	return os.TempDir()
}
