package document

import (
	"context"
	"fmt"

	"github.com/poiesic/petclinic/storage"
)

// Driver connects a Store to a document backend.
type Driver interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Missing returns the names of the settings cfg lacks for this backend.
	Missing(cfg Config) []string

	// Connect creates a client. It is called once, on first use.
	Connect(ctx context.Context, cfg Config) (Client, error)
}

// Client is a connection to a document account.
type Client interface {
	// CreateDatabase creates the named database.
	// Returns storage.ErrContainerExists if it is already present.
	CreateDatabase(ctx context.Context, name string) error

	// Database returns a handle to the named database. No I/O.
	Database(name string) Database

	Close() error
}

// CollectionSpec describes a collection to provision.
type CollectionSpec struct {
	PartitionKeyPath string
	Throughput       int
}

// Database is a handle to one database.
type Database interface {
	// CreateCollection creates the named collection.
	// Returns storage.ErrContainerExists if it is already present.
	CreateCollection(ctx context.Context, name string, spec CollectionSpec) error

	// Collection returns a handle to the named collection. No I/O.
	Collection(name string) Collection
}

// Collection is a handle to one partitioned collection. Documents cross the
// interface as JSON.
type Collection interface {
	// Create inserts a document. Returns storage.ErrConflict if id already
	// exists in the partition.
	Create(ctx context.Context, partition, id string, doc []byte) error

	// Read returns one document. Returns storage.ErrNotFound if absent.
	Read(ctx context.Context, partition, id string) ([]byte, error)

	// Replace overwrites an existing document. Returns storage.ErrNotFound if absent.
	Replace(ctx context.Context, partition, id string, doc []byte) error

	// Delete removes one document. Returns storage.ErrNotFound if absent.
	Delete(ctx context.Context, partition, id string) error

	// Query returns the documents matching q, in q's order.
	Query(ctx context.Context, q Query) ([][]byte, error)
}

// Filter is an equality predicate on a top-level document field.
type Filter struct {
	Field string
	Value string
}

// Query selects documents from a Collection.
//
// A query is scoped to one Partition unless CrossPartition is set; a query
// with neither is rejected. Limit <= 0 returns every match after Offset.
type Query struct {
	Partition      string
	CrossPartition bool
	Filters        []Filter
	OrderBy        string
	Descending     bool
	Offset         int
	Limit          int
}

// Validate checks that the query is well formed.
func (q Query) Validate() error {
	if q.Partition == "" && !q.CrossPartition {
		return fmt.Errorf("%w: query must name a partition or allow cross-partition reads", storage.ErrInvalidQuery)
	}
	if q.Partition != "" && q.CrossPartition {
		return fmt.Errorf("%w: query cannot be both scoped and cross-partition", storage.ErrInvalidQuery)
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: offset %d", storage.ErrInvalidQuery, q.Offset)
	}
	return nil
}

// Matches reports whether fields satisfies every filter in q. Drivers without
// native filtering use it on decoded documents.
func (q Query) Matches(fields map[string]any) bool {
	for _, f := range q.Filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok || s != f.Value {
			return false
		}
	}
	return true
}
