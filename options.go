package catalogd

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
)

// Option is a function that configures an Engine.
type Option func(*options) error

// options holds the engine configuration.
type options struct {
	pollInterval time.Duration
	initialDelay time.Duration
	disabled     map[string]struct{}
	logger       *zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		pollInterval: constants.DefaultPollInterval,
		initialDelay: constants.DefaultInitialDelay,
		disabled:     make(map[string]struct{}),
	}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

func (o *options) isDisabled(name string) bool {
	_, ok := o.disabled[name]
	return ok
}

// WithPollInterval sets the delay between the end of one cycle and the start
// of the next.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return &errors.ValidationError{
				Field:   "pollInterval",
				Value:   d,
				Message: "poll interval must be positive",
			}
		}
		o.pollInterval = d
		return nil
	}
}

// WithInitialDelay sets the delay between Initialize and the first scheduled
// cycle.
func WithInitialDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return &errors.ValidationError{
				Field:   "initialDelay",
				Value:   d,
				Message: "initial delay must not be negative",
			}
		}
		o.initialDelay = d
		return nil
	}
}

// WithDisabledCatalogs names catalogs that are never applied, even when the
// source defines them.
func WithDisabledCatalogs(names ...string) Option {
	return func(o *options) error {
		for _, n := range names {
			if n != "" {
				o.disabled[n] = struct{}{}
			}
		}
		return nil
	}
}

// WithLogger sets the logger used outside of a request context.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = &logger
		return nil
	}
}

// WithConfig applies the scheduling and disabled-catalog settings of cfg.
func WithConfig(cfg config.Config) Option {
	return func(o *options) error {
		for _, opt := range []Option{
			WithPollInterval(cfg.PollInterval),
			WithInitialDelay(cfg.InitialDelay),
			WithDisabledCatalogs(cfg.DisabledCatalogs...),
		} {
			if err := opt(o); err != nil {
				return err
			}
		}
		return nil
	}
}
