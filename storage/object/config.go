package object

// Defaults applied by DefaultConfig.
const (
	DefaultContainer = "pets"
	DefaultWorkers   = 8
)

// Config holds the settings of an object Store.
type Config struct {
	// ConnectionString is preferred when set. Otherwise AccountName and
	// AccountKey are used.
	ConnectionString string
	AccountName      string
	AccountKey       string

	Container string

	// Workers bounds the number of concurrent downloads while listing.
	Workers int
}

// DefaultConfig returns a Config with the default container and worker count,
// and no credentials.
func DefaultConfig() Config {
	return Config{
		Container: DefaultContainer,
		Workers:   DefaultWorkers,
	}
}

// HasCredentials reports whether cfg carries a connection string or a
// complete account name and key pair.
func (c Config) HasCredentials() bool {
	return c.ConnectionString != "" || (c.AccountName != "" && c.AccountKey != "")
}

func (c *Config) normalize() {
	if c.Container == "" {
		c.Container = DefaultContainer
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
}
