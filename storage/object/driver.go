package object

import "context"

// Driver connects a Store to an object storage backend.
type Driver interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Missing returns the names of the settings cfg lacks for this backend.
	Missing(cfg Config) []string

	// Connect creates a service client. It is called once, on first use.
	Connect(ctx context.Context, cfg Config) (Service, error)
}

// Service is a connection to an object storage account.
type Service interface {
	// CreateContainer creates the named container.
	// Returns storage.ErrContainerExists if it is already present.
	CreateContainer(ctx context.Context, name string) error

	// Container returns a handle to the named container. No I/O.
	Container(name string) Container

	Close() error
}

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Name string

	// ETag changes whenever the object is rewritten.
	ETag string

	// Metadata is nil unless the listing asked for it, and may be nil or
	// partial even then.
	Metadata map[string]string
}

// Container is a handle to one flat container of named objects.
type Container interface {
	// Upload writes body under name with metadata, replacing any existing object.
	// Body and metadata are written in one operation.
	Upload(ctx context.Context, name string, body []byte, metadata map[string]string) error

	// Download returns an object's body. Returns storage.ErrNotFound if absent.
	Download(ctx context.Context, name string) ([]byte, error)

	// Delete removes an object. Returns storage.ErrNotFound if absent.
	Delete(ctx context.Context, name string) error

	// List returns every object in the container in the backend's listing order.
	List(ctx context.Context, includeMetadata bool) ([]ObjectInfo, error)
}
