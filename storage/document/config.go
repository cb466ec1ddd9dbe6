package document

// Defaults applied by DefaultConfig.
const (
	DefaultDatabase         = "petclinic"
	DefaultCollection       = "appointments"
	DefaultPartitionKeyPath = "/appointment_date"
	DefaultThroughput       = 400
)

// Config holds the settings of a document Store.
type Config struct {
	// Endpoint is the account endpoint or connection URI.
	Endpoint string

	// Key is the account key. Drivers that carry credentials in Endpoint may
	// leave it empty.
	Key string

	Database   string
	Collection string

	// PartitionKeyPath must be DefaultPartitionKeyPath; an empty path means
	// the default.
	PartitionKeyPath string

	// Throughput is the provisioned throughput requested when the collection
	// is created. Ignored by backends without the concept.
	Throughput int
}

// DefaultConfig returns a Config with the default database, collection,
// partition key path and throughput, and no credentials.
func DefaultConfig() Config {
	return Config{
		Database:         DefaultDatabase,
		Collection:       DefaultCollection,
		PartitionKeyPath: DefaultPartitionKeyPath,
		Throughput:       DefaultThroughput,
	}
}

// normalize fills empty names with their defaults.
func (c *Config) normalize() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.PartitionKeyPath == "" {
		c.PartitionKeyPath = DefaultPartitionKeyPath
	}
	if c.Throughput <= 0 {
		c.Throughput = DefaultThroughput
	}
}
