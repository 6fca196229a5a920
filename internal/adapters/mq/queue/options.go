package queue

// Option applies a configuration option to a Queue.
type Option func(*config)

type config struct {
	capacity int
	onDrop   func()
}

// WithCapacity sets the maximum number of pending items.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithDropHook is called, under the queue lock, whenever an item is dropped
// to make room.
func WithDropHook(fn func()) Option {
	return func(c *config) {
		c.onDrop = fn
	}
}
