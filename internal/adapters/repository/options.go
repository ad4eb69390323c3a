package repository

import "github.com/jonboulle/clockwork"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the clock used to stamp records registered without a creation time.
func WithClock(clock clockwork.Clock) Option {
	return func(s *SQLiteStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}
