package dedupe

// Option applies a configuration option to a Deduper.
type Option func(*config)

type config struct {
	maxSize int
}

// WithMaxSize sets how many keys are remembered before the least recently
// used are evicted.
func WithMaxSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.maxSize = size
		}
	}
}
