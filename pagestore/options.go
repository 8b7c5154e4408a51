package pagestore

// Option configures a Store at Create/Open time.
type Option func(*Store)

// WithLogger attaches a Logger that receives store lifecycle events. The
// default is a no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Store) { s.logger = l }
}
