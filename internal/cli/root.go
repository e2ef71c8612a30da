package cli

import (
	"fmt"
	"io"
	"net/http"

	"playerdash/internal/config"
	"playerdash/internal/logging"
	"playerdash/internal/upstream"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

type rootOptions struct {
	configPath string
	serverURL  string
	logLevel   string
}

// NewRootCmd builds the playerdash command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "playerdash",
		Short:         "Player sensor analytics dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: search ./config.yaml, XDG and ~/.config)")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "analytics service base URL (overrides server_url)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides log.level)")

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newPlayersCmd(opts))
	root.AddCommand(newRangeCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// app bundles what every command needs
type app struct {
	cfg        *config.Config
	configPath string
	client     *upstream.Client
	registry   *prometheus.Registry
	logCloser  io.Closer
}

func (a *app) Close() error {
	return a.logCloser.Close()
}

// loadApp resolves config, sets up logging and builds the upstream client.
// Interactive mode logs to the configured file only; headless commands log
// to logOut when no file is configured.
func loadApp(opts *rootOptions, interactive bool, logOut io.Writer) (*app, error) {
	var (
		cfg  *config.Config
		path = opts.configPath
		err  error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, path, err = config.LoadFromDefaultPath()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if opts.serverURL != "" {
		cfg.ServerURL = opts.serverURL
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	params := logging.Params{
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
		Fallback:      logOut,
	}
	if interactive {
		params.LogFileName = cfg.Log.File
		if params.LogFileName == "" {
			params.Fallback = io.Discard
		}
	}
	closer := logging.Setup(params)

	registry := upstream.NewRegistry()
	client, err := upstream.New(cfg.ServerURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		upstream.WithMetrics(upstream.NewMetrics("playerdash", "upstream", registry)),
	)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	log.Debugf("config loaded from %q, server %s", path, cfg.ServerURL)
	return &app{
		cfg:        cfg,
		configPath: path,
		client:     client,
		registry:   registry,
		logCloser:  closer,
	}, nil
}
