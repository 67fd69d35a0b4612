package dedupe

// Option applies a configuration option to New.
type Option func(*options)

type options struct {
	capacity int
}

// WithCapacity pre-sizes the underlying map.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}
