package store

import "context"

// Store keeps run reports and trace records as opaque bytes grouped by prefix.
type Store interface {
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * remove an unexists prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}

// Closer is implemented by stores holding a connection.
type Closer interface {
	Close() error
}
