package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wemix/lagwatch/internal/alerting"
	"github.com/wemix/lagwatch/internal/config"
	"github.com/wemix/lagwatch/internal/height"
	"github.com/wemix/lagwatch/internal/metrics"
	"github.com/wemix/lagwatch/internal/monitor"
	"github.com/wemix/lagwatch/internal/state"
	"github.com/wemix/lagwatch/pkg/logger"
)

// loadConfig reads and validates the configuration, then applies flag overrides
func (o *Options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile:           o.ConfigFile,
		TelegramFile:         o.TelegramFile,
		TelegramFileExplicit: cmd.Flags().Changed("telegram-config"),
		EnvFile:              o.EnvFile,
	})
	if err != nil {
		return nil, err
	}

	if o.StateFile != "" {
		cfg.State.Path = o.StateFile
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. output selects the sink.
func newLogger(cfg *config.Config, output string) (*logger.Logger, error) {
	return logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Color:      cfg.Log.Color,
		Disable:    cfg.Log.Disable,
		TimeFormat: cfg.Log.TimeFormat,
		Output:     output,
	})
}

// app holds the wired components of one invocation
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Collector
	store   state.Store
	monitor *monitor.Monitor
}

// newApp wires providers, notifier, store and monitor from cfg
func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	thresholds, err := cfg.Thresholds()
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()

	providers := make([]height.HeightProvider, 0, len(cfg.RPCs))
	for _, url := range cfg.RPCURLs() {
		providers = append(providers, height.NewStatusClient(url))
	}
	quorum, err := height.NewQuorumReader(providers, cfg.Check.Timeout, collector, log.Named("quorum"))
	if err != nil {
		return nil, err
	}

	dispatcher, err := alerting.NewDispatcher(cfg.ChannelConfigs(), collector, log.Named("notify"))
	if err != nil {
		return nil, err
	}

	store, err := state.Open(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	mon, err := monitor.New(monitor.Options{
		Quorum:       quorum,
		Node:         height.NewStatusClient(cfg.Node.URL),
		Thresholds:   thresholds,
		Store:        store,
		Notifier:     dispatcher,
		Metrics:      collector,
		Interval:     cfg.Check.Interval,
		FetchTimeout: cfg.Check.Timeout,
	}, log.Named("monitor"))
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		metrics: collector,
		store:   store,
		monitor: mon,
	}, nil
}

// Close releases the state store
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close state store", zap.Error(err))
	}
}
