package model

// BarReader reads stored bars for backfill and replay. Implemented by the
// SQLite reader; consumers depend on this interface so tests can substitute
// an in-memory source.
type BarReader interface {
	// ReadBars reads bars for a specific instrument and TF after a Unix
	// timestamp, ordered by timestamp ascending.
	ReadBars(exchange, token string, tf int, afterTS int64) ([]Bar, error)

	// ReadAllBars reads bars for all instruments on one TF after a Unix
	// timestamp, ordered by timestamp ascending.
	ReadAllBars(tf int, afterTS int64) ([]Bar, error)

	// Close releases underlying resources.
	Close() error
}
