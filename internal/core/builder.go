package core

import (
	"context"

	"imapcli/config"
	"imapcli/internal/lineedit"
	"imapcli/internal/metrics"
	"imapcli/internal/stream"
	"imapcli/internal/transcript"
	"imapcli/internal/transport"
	"imapcli/tunnel"
	"imapcli/util"
)

// Start builds an interactive session from cfg and runs it until the
// server closes the connection or ctx is cancelled.  sink may be nil.
func Start(ctx context.Context, cfg *config.Config, logger *util.Logger, sink transcript.Sink) error {
	mode, err := Build(cfg, logger, sink)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// Build validates cfg and constructs the interactive mode.  Nothing is
// dialled and the terminal is not touched until Run.
func Build(cfg *config.Config, logger *util.Logger, sink transcript.Sink) (*InteractiveMode, error) {
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("%s", w)
	}

	if sink == nil {
		sink = transcript.Discard{}
	}

	m := &InteractiveMode{
		Host:          cfg.Host,
		Port:          cfg.EffectivePort(),
		Dialer:        buildDialer(cfg, logger),
		StreamOptions: stream.OptionsFrom(cfg),
		Logger:        logger,
		Sink:          sink,
		Metrics:       metrics.New(),
	}
	if cfg.Color {
		m.EditorOptions = append(m.EditorOptions, lineedit.WithColors(lineedit.DefaultColors()))
	}
	return m, nil
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(tunnel.FromConfig(cfg), logger)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.DefaultConnTimeout
	}
	return &transport.TCPDialer{Timeout: timeout}
}
