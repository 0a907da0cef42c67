package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/config"
	"github.com/smartknob/knoblink/pkg/discovery"
	"github.com/smartknob/knoblink/pkg/engine"
	"github.com/smartknob/knoblink/pkg/knobproto"
	"github.com/smartknob/knoblink/pkg/logging"
	"github.com/smartknob/knoblink/pkg/serialport"
)

func newLogger(cfg logging.Config) (*zap.Logger, error) {
	l, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// resolvePort returns the configured device path, discovering one when the
// config leaves it empty.
func resolvePort() (string, error) {
	if cfg.Port != "" {
		return cfg.Port, nil
	}
	candidates, err := discovery.FindPorts()
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", errors.New("no serial ports found; specify one with --port")
	}
	log.Info("auto-discovered port",
		zap.String("port", candidates[0]),
		zap.Int("candidates", len(candidates)))
	return candidates[0], nil
}

// engineOptions maps the engine section of the config onto engine options.
func engineOptions(ec config.EngineConfig) []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(log.Named("engine")),
		engine.WithAutoReset(cfg.AutoReset),
	}
	if ec.MaxQueueSize > 0 {
		opts = append(opts, engine.WithMaxQueueSize(ec.MaxQueueSize))
	}
	if ec.RetryTimeout > 0 || ec.MaxRetries > 0 {
		timeout := ec.RetryTimeout.Std()
		if timeout == 0 {
			timeout = engine.DefaultRetryTimeout
		}
		retries := ec.MaxRetries
		if retries == 0 {
			retries = engine.DefaultMaxRetries
		}
		opts = append(opts, engine.WithRetryPolicy(timeout, retries))
	}
	if ec.PollInterval > 0 {
		opts = append(opts, engine.WithPollInterval(ec.PollInterval.Std()))
	}
	if ec.BufferSize > 0 {
		opts = append(opts, engine.WithBufferSize(ec.BufferSize))
	}
	return opts
}

// connect resolves a port, builds the transport, and starts an engine over
// it. The caller must Stop the engine.
func connect(ctx context.Context) (*engine.Engine, string, error) {
	device, err := resolvePort()
	if err != nil {
		return nil, "", err
	}

	port := serialport.NewSerial(serialport.Config{
		Device: device,
		Baud:   cfg.Baud,
	})
	eng := engine.New(port, engineOptions(cfg.Engine)...)
	if err := eng.Start(ctx); err != nil {
		return nil, "", fmt.Errorf("connect to %s: %w", device, err)
	}
	log.Info("connected", zap.String("port", device), zap.Int("baud", cfg.Baud))
	return eng, device, nil
}

// awaitAck drains the message stream until the given nonce is acknowledged
// or the timeout elapses.
func awaitAck(eng *engine.Engine, nonce uint32, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-eng.Messages():
			if !ok {
				return errors.New("engine stopped before acknowledgment")
			}
			if msg.Kind() == knobproto.KindAck && msg.Ack.Nonce == nonce {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("no acknowledgment for nonce %d within %s", nonce, timeout)
		}
	}
}
