package alerting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wemix/lagwatch/pkg/logger"
)

// Delivery outcomes reported to a Recorder
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Recorder receives one observation per delivery attempt
type Recorder interface {
	ObserveNotification(channel, status string)
}

// Dispatcher delivers a message to every enabled channel.
//
// Delivery is best effort: failures are logged and counted, never retried
// and never returned to the caller. Every send gets its own deadline so a
// slow channel cannot starve the ones after it.
type Dispatcher struct {
	channels []NotificationChannel
	timeouts []time.Duration
	recorder Recorder
	logger   *logger.Logger
}

// NewDispatcher creates channels from configuration. An invalid channel
// configuration is an error.
func NewDispatcher(configs []ChannelConfig, recorder Recorder, log *logger.Logger) (*Dispatcher, error) {
	channels := make([]NotificationChannel, 0, len(configs))
	timeouts := make([]time.Duration, 0, len(configs))
	for _, cfg := range configs {
		channel, err := NewChannel(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("notification channel %q: %w", cfg.Name, err)
		}
		channels = append(channels, channel)
		timeouts = append(timeouts, channelTimeout(cfg.Timeout))

		log.Info("notification channel initialized",
			zap.String("type", channel.GetType()),
			zap.String("name", channel.GetName()),
			zap.Bool("enabled", channel.IsEnabled()))
	}

	d := NewDispatcherWithChannels(channels, recorder, log)
	d.timeouts = timeouts
	return d, nil
}

// NewDispatcherWithChannels wraps already built channels. Each send is
// bounded by DefaultChannelTimeout.
func NewDispatcherWithChannels(channels []NotificationChannel, recorder Recorder, log *logger.Logger) *Dispatcher {
	timeouts := make([]time.Duration, len(channels))
	for i := range timeouts {
		timeouts[i] = DefaultChannelTimeout
	}
	return &Dispatcher{
		channels: channels,
		timeouts: timeouts,
		recorder: recorder,
		logger:   log,
	}
}

// WithTimeout bounds every send by timeout
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	for i := range d.timeouts {
		d.timeouts[i] = channelTimeout(timeout)
	}
	return d
}

// Channels returns the configured channels
func (d *Dispatcher) Channels() []NotificationChannel {
	return d.channels
}

// Notify sends text to all enabled channels one after another and returns
// how many accepted it.
func (d *Dispatcher) Notify(ctx context.Context, text string) int {
	delivered := 0
	for i, channel := range d.channels {
		if !channel.IsEnabled() {
			continue
		}

		if err := d.send(ctx, channel, d.timeouts[i], text); err != nil {
			d.logger.Error("failed to send notification",
				zap.String("channel", channel.GetName()),
				zap.String("message", text),
				zap.Error(err))
			d.record(channel.GetName(), StatusFailed)
			continue
		}

		delivered++
		d.record(channel.GetName(), StatusSent)
		d.logger.Info("notification sent",
			zap.String("channel", channel.GetName()),
			zap.String("message", text))
	}
	return delivered
}

func (d *Dispatcher) send(ctx context.Context, channel NotificationChannel, timeout time.Duration, text string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return channel.Send(ctx, text)
}

func channelTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultChannelTimeout
	}
	return timeout
}

func (d *Dispatcher) record(channel, status string) {
	if d.recorder != nil {
		d.recorder.ObserveNotification(channel, status)
	}
}
