package repository

import (
	"time"

	"github.com/okian/scorekeep/pkg/logger"
)

// Default store configuration constants.
const (
	defaultNotifyBuffer = 64
	defaultKeyPrefix    = "scorekeep:"
	defaultMaxRetries   = 8
)

type options struct {
	notifyBuffer int
	keyPrefix    string
	maxRetries   uint
	clock        func() time.Time
	logger       logger.Logger
}

func defaultOptions() options {
	return options{
		notifyBuffer: defaultNotifyBuffer,
		keyPrefix:    defaultKeyPrefix,
		maxRetries:   defaultMaxRetries,
		clock:        time.Now,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithNotifyBuffer sets how many pending snapshots a subscription holds
// before the oldest is dropped.
func WithNotifyBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.notifyBuffer = n
		}
	}
}

// WithKeyPrefix namespaces every Redis key and channel.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithMaxRetries bounds how often a Redis subscription retries a failed
// reload before giving up.
func WithMaxRetries(n uint) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithClock overrides the time source used for creation timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
