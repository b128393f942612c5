package index

// PageIndex defines the index operations the rest of the application uses.
// Consumers depend on this interface rather than the concrete *DB type.
type PageIndex interface {
	UpsertPage(p PageRow, body string) error
	DeletePage(key string) error
	GetChecksum(key string) (string, error)
	AllChecksums() (map[string]string, error)
	Titles() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies PageIndex at compile time.
var _ PageIndex = (*DB)(nil)
