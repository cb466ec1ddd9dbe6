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


package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/petclinic/storage"
	"github.com/poiesic/petclinic/storage/document"
)

// DocumentDriver implements document.Driver on a Backend. Documents live
// under one key each; a partition is a key prefix.
type DocumentDriver struct {
	backend *Backend
}

var _ document.Driver = (*DocumentDriver)(nil)

// NewDocumentDriver creates a DocumentDriver. The caller owns backend and
// closes it after every store using the driver is closed.
func NewDocumentDriver(backend *Backend) *DocumentDriver {
	return &DocumentDriver{backend: backend}
}

// Name returns "badger".
func (d *DocumentDriver) Name() string {
	return "badger"
}

// Missing returns nil; a local backend needs no credentials.
func (d *DocumentDriver) Missing(cfg document.Config) []string {
	if d.backend == nil {
		return []string{"badger backend"}
	}
	return nil
}

// Connect returns a client over the backend.
func (d *DocumentDriver) Connect(ctx context.Context, cfg document.Config) (document.Client, error) {
	if d.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return &documentClient{backend: d.backend}, nil
}

type documentClient struct {
	backend *Backend
}

func (c *documentClient) CreateDatabase(ctx context.Context, name string) error {
	return createMarker(c.backend, makeDatabaseKey(name), []byte(name))
}

func (c *documentClient) Database(name string) document.Database {
	return &documentDatabase{backend: c.backend, name: name}
}

// Close is a no-op; the backend outlives its clients.
func (c *documentClient) Close() error {
	return nil
}

type documentDatabase struct {
	backend *Backend
	name    string
}

func (d *documentDatabase) CreateCollection(ctx context.Context, name string, spec document.CollectionSpec) error {
	value, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	return d.backend.WithTx(func(tx *badger.Txn) error {
		ok, err := exists(tx, makeDatabaseKey(d.name))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("database %q: %w", d.name, storage.ErrNotFound)
		}
		key := makeCollectionKey(d.name, name)
		ok, err = exists(tx, key)
		if err != nil {
			return err
		}
		if ok {
			return storage.ErrContainerExists
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return commit(tx, storage.ErrContainerExists)
	}, true)
}

func (d *documentDatabase) Collection(name string) document.Collection {
	return &documentCollection{backend: d.backend, database: d.name, name: name}
}

type documentCollection struct {
	backend  *Backend
	database string
	name     string
}

func (c *documentCollection) key(partition, id string) []byte {
	return makeDocumentKey(c.database, c.name, partition, id)
}

func (c *documentCollection) Create(ctx context.Context, partition, id string, doc []byte) error {
	key := c.key(partition, id)
	return c.backend.WithTx(func(tx *badger.Txn) error {
		ok, err := exists(tx, key)
		if err != nil {
			return err
		}
		if ok {
			return storage.ErrConflict
		}
		if err := tx.Set(key, doc); err != nil {
			return err
		}
		return commit(tx, storage.ErrConflict)
	}, true)
}

func (c *documentCollection) Read(ctx context.Context, partition, id string) ([]byte, error) {
	var doc []byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = read(tx, c.key(partition, id))
		return err
	}, false)
	return doc, err
}

func (c *documentCollection) Replace(ctx context.Context, partition, id string, doc []byte) error {
	key := c.key(partition, id)
	return c.backend.WithTx(func(tx *badger.Txn) error {
		ok, err := exists(tx, key)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNotFound
		}
		if err := tx.Set(key, doc); err != nil {
			return err
		}
		return commit(tx, nil)
	}, true)
}

func (c *documentCollection) Delete(ctx context.Context, partition, id string) error {
	key := c.key(partition, id)
	return c.backend.WithTx(func(tx *badger.Txn) error {
		ok, err := exists(tx, key)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNotFound
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return commit(tx, storage.ErrNotFound)
	}, true)
}

type queryRow struct {
	fields map[string]any
	doc    []byte
}

// Query scans the partition prefix, or the whole collection for
// cross-partition queries, then filters, orders and pages in memory.
func (c *documentCollection) Query(ctx context.Context, q document.Query) ([][]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	prefix := makeCollectionPrefix(c.database, c.name)
	if !q.CrossPartition {
		prefix = makePartitionPrefix(c.database, c.name, q.Partition)
	}

	var rows []queryRow
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, prefix, true, func(key, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var fields map[string]any
			if err := json.Unmarshal(value, &fields); err != nil {
				return fmt.Errorf("document %s: %w: %w", key, storage.ErrSerializationFailed, err)
			}
			if q.Matches(fields) {
				rows = append(rows, queryRow{fields: fields, doc: value})
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	if q.OrderBy != "" {
		slices.SortStableFunc(rows, func(a, b queryRow) int {
			cmp := strings.Compare(sortValue(a.fields, q.OrderBy), sortValue(b.fields, q.OrderBy))
			if q.Descending {
				return -cmp
			}
			return cmp
		})
	}

	if q.Offset >= len(rows) {
		return [][]byte{}, nil
	}
	rows = rows[q.Offset:]
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	docs := make([][]byte, len(rows))
	for i, row := range rows {
		docs[i] = row.doc
	}
	return docs, nil
}

// sortValue returns the string form of a field for ordering. Ordered fields
// are fixed-width strings, so lexical order is the intended order.
func sortValue(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// createMarker writes a provisioning marker, returning
// storage.ErrContainerExists if it is already present.
func createMarker(backend *Backend, key, value []byte) error {
	return backend.WithTx(func(tx *badger.Txn) error {
		ok, err := exists(tx, key)
		if err != nil {
			return err
		}
		if ok {
			return storage.ErrContainerExists
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return commit(tx, storage.ErrContainerExists)
	}, true)
}

// commit commits tx. A transaction conflict means a concurrent writer touched
// the same key first; it is reported as onConflict when that is set.
func commit(tx *badger.Txn, onConflict error) error {
	err := tx.Commit()
	if errors.Is(err, badger.ErrConflict) && onConflict != nil {
		return onConflict
	}
	return err
}
