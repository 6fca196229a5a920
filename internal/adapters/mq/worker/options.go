package worker

import (
	"github.com/okian/scorekeep/pkg/logger"
)

// Option applies a configuration option to a Dispatcher.
type Option func(*options)

type options struct {
	name   string
	logger logger.Logger
}

// WithName sets the dispatcher name for identification and logging.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
