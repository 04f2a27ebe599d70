package domain

import "context"

// RowSink is the destination table (Google Sheets in production).
type RowSink interface {
	// ReadHeaderMap returns column name -> zero-based position from the
	// sheet's header row.
	ReadHeaderMap(ctx context.Context) (map[string]int, error)
	// AppendRow writes one row, placing each named value at its header
	// position. Columns absent from values are left blank.
	AppendRow(ctx context.Context, values map[string]string, header map[string]int) error
	// ReadRowsForCache returns every data row as a column-name -> value map.
	// Used once at startup to seed the category cache.
	ReadRowsForCache(ctx context.Context) ([]map[string]string, error)
}

// DedupStore is the durable, append-only record of handled identities.
type DedupStore interface {
	// Load reads all recorded identities. Malformed individual entries are
	// skipped with a warning, not an error.
	Load(ctx context.Context) ([]MessageIdentity, error)
	// Append durably records one identity. The pipeline does not consider a
	// message handled until Append returns nil.
	Append(ctx context.Context, id MessageIdentity) error
	Close() error
}

// SectionResolver maps a message origin to a production section. A false
// result means the message comes from an unrecognized source and must be
// dropped; it is not an error.
type SectionResolver interface {
	Resolve(chatID int64, topicID int64, hasTopic bool) (string, bool)
}
