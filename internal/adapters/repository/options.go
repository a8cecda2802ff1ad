// Package repository defines the session store interface and errors.
package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*options)

type options struct {
	maxSize int
}

// WithMaxSize caps the number of stored sessions. Zero or negative means unbounded.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}
