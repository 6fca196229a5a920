package live

import "github.com/okian/scorekeep/pkg/logger"

// Option applies a configuration option to a View.
type Option func(*View)

// WithLogger sets a custom logger for the view.
func WithLogger(l logger.Logger) Option {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}
