// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config assembles the settings of both record stores and the HTTP
// server from options or from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/poiesic/petclinic/storage/document"
	"github.com/poiesic/petclinic/storage/object"
)

// Supported backends.
const (
	BackendBadger = "badger"
	BackendMongo  = "mongo"
	BackendAzure  = "azblob"
)

// DefaultPort matches the local Functions host.
const DefaultPort = 7071

// Environment variable names.
const (
	EnvDocumentEndpoint   = "COSMOS_DB_ENDPOINT"
	EnvDocumentKey        = "COSMOS_DB_KEY"
	EnvDocumentDatabase   = "COSMOS_DB_DATABASE"
	EnvDocumentCollection = "COSMOS_DB_CONTAINER"
	EnvConnectionString   = "AZURE_STORAGE_CONNECTION_STRING"
	EnvAccountName        = "AZURE_STORAGE_ACCOUNT_NAME"
	EnvAccountKey         = "AZURE_STORAGE_ACCOUNT_KEY"
	EnvBlobContainer      = "BLOB_CONTAINER_NAME"
	EnvDocumentBackend    = "DOCUMENT_BACKEND"
	EnvObjectBackend      = "OBJECT_BACKEND"
	EnvBadgerPath         = "BADGER_PATH"
	EnvPort               = "PORT"
)

// Config holds the settings of the clinic stores and server.
type Config struct {
	// DocumentBackend selects the appointment store driver: "badger" or "mongo".
	DocumentBackend string

	// ObjectBackend selects the pet store driver: "badger" or "azblob".
	ObjectBackend string

	// BadgerPath is the directory of the embedded database. Empty keeps it in
	// memory.
	BadgerPath string

	// Port is the HTTP listen port.
	Port int

	Document document.Config
	Object   object.Config
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithDocumentBackend sets the appointment store driver.
func WithDocumentBackend(name string) Option {
	return func(c *Config) {
		c.DocumentBackend = name
	}
}

// WithObjectBackend sets the pet store driver.
func WithObjectBackend(name string) Option {
	return func(c *Config) {
		c.ObjectBackend = name
	}
}

// WithBadgerPath sets the embedded database directory.
func WithBadgerPath(path string) Option {
	return func(c *Config) {
		c.BadgerPath = path
	}
}

// WithPort sets the HTTP listen port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithDocumentEndpoint sets the document database endpoint and key.
func WithDocumentEndpoint(endpoint, key string) Option {
	return func(c *Config) {
		c.Document.Endpoint = endpoint
		c.Document.Key = key
	}
}

// WithDatabase sets the document database and collection names.
func WithDatabase(database, collection string) Option {
	return func(c *Config) {
		c.Document.Database = database
		c.Document.Collection = collection
	}
}

// WithConnectionString sets the object storage connection string.
func WithConnectionString(cs string) Option {
	return func(c *Config) {
		c.Object.ConnectionString = cs
	}
}

// WithAccount sets the object storage account name and key.
func WithAccount(name, key string) Option {
	return func(c *Config) {
		c.Object.AccountName = name
		c.Object.AccountKey = key
	}
}

// WithContainer sets the object storage container name.
func WithContainer(name string) Option {
	return func(c *Config) {
		c.Object.Container = name
	}
}

// DefaultConfig returns a Config that runs both stores on an in-memory badger
// database.
func DefaultConfig() *Config {
	return &Config{
		DocumentBackend: BackendBadger,
		ObjectBackend:   BackendBadger,
		Port:            DefaultPort,
		Document:        document.DefaultConfig(),
		Object:          object.DefaultConfig(),
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks backend names and the port. Store credentials are not
// checked here; each store reports them on first use.
func (c *Config) Validate() error {
	switch c.DocumentBackend {
	case BackendBadger, BackendMongo:
	default:
		return fmt.Errorf("config: unknown document backend %q (supported: badger, mongo)", c.DocumentBackend)
	}
	switch c.ObjectBackend {
	case BackendBadger, BackendAzure:
	default:
		return fmt.Errorf("config: unknown object backend %q (supported: badger, azblob)", c.ObjectBackend)
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("config: port must be between 1 and 65535")
	}
	return nil
}

// UsesBadger reports whether either store runs on the embedded database.
func (c *Config) UsesBadger() bool {
	return c.DocumentBackend == BackendBadger || c.ObjectBackend == BackendBadger
}

// FromEnv builds a Config from the process environment, falling back to the
// given dotenv files (".env" when none are named). A missing file is not an
// error. Process variables win over file entries.
func FromEnv(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	file := map[string]string{}
	for _, name := range files {
		entries, err := godotenv.Read(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", name, err)
		}
		for k, v := range entries {
			file[k] = v
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return file[key]
	}
	return fromLookup(lookup)
}

func fromLookup(lookup func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	set := func(dst *string, key string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.DocumentBackend, EnvDocumentBackend)
	set(&cfg.ObjectBackend, EnvObjectBackend)
	set(&cfg.BadgerPath, EnvBadgerPath)
	set(&cfg.Document.Endpoint, EnvDocumentEndpoint)
	set(&cfg.Document.Key, EnvDocumentKey)
	set(&cfg.Document.Database, EnvDocumentDatabase)
	set(&cfg.Document.Collection, EnvDocumentCollection)
	set(&cfg.Object.ConnectionString, EnvConnectionString)
	set(&cfg.Object.AccountName, EnvAccountName)
	set(&cfg.Object.AccountKey, EnvAccountKey)
	set(&cfg.Object.Container, EnvBlobContainer)

	if v := lookup(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	return cfg, nil
}
