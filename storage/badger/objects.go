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
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/petclinic/storage"
	"github.com/poiesic/petclinic/storage/object"
)

// ObjectDriver implements object.Driver on a Backend. Each object is stored
// as a body key plus a metadata record key, written in one transaction.
type ObjectDriver struct {
	backend *Backend
}

var _ object.Driver = (*ObjectDriver)(nil)

// NewObjectDriver creates an ObjectDriver. The caller owns backend.
func NewObjectDriver(backend *Backend) *ObjectDriver {
	return &ObjectDriver{backend: backend}
}

// Name returns "badger".
func (d *ObjectDriver) Name() string {
	return "badger"
}

// Missing returns nil; a local backend needs no credentials.
func (d *ObjectDriver) Missing(cfg object.Config) []string {
	if d.backend == nil {
		return []string{"badger backend"}
	}
	return nil
}

// Connect returns a service over the backend.
func (d *ObjectDriver) Connect(ctx context.Context, cfg object.Config) (object.Service, error) {
	if d.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return &objectService{backend: d.backend}, nil
}

type objectService struct {
	backend *Backend
}

func (s *objectService) CreateContainer(ctx context.Context, name string) error {
	return createMarker(s.backend, makeContainerKey(name), []byte(name))
}

func (s *objectService) Container(name string) object.Container {
	return &objectContainer{backend: s.backend, name: name}
}

// Close is a no-op; the backend outlives its services.
func (s *objectService) Close() error {
	return nil
}

// objectRecord is the value stored under an object's metadata key.
type objectRecord struct {
	ETag     string            `json:"etag"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// contentETag returns a short content hash of body.
func contentETag(body []byte) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type objectContainer struct {
	backend *Backend
	name    string
}

func (c *objectContainer) Upload(ctx context.Context, name string, body []byte, metadata map[string]string) error {
	record, err := json.Marshal(objectRecord{ETag: contentETag(body), Metadata: metadata})
	if err != nil {
		return err
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeObjectKey(c.name, name), body); err != nil {
			return err
		}
		if err := tx.Set(makeObjectMetaKey(c.name, name), record); err != nil {
			return err
		}
		return commit(tx, nil)
	}, true)
}

func (c *objectContainer) Download(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		body, err = read(tx, makeObjectKey(c.name, name))
		return err
	}, false)
	return body, err
}

func (c *objectContainer) Delete(ctx context.Context, name string) error {
	key := makeObjectKey(c.name, name)
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
		if err := tx.Delete(makeObjectMetaKey(c.name, name)); err != nil {
			return err
		}
		return commit(tx, storage.ErrNotFound)
	}, true)
}

// List walks the metadata records, so objects come back in name order.
func (c *objectContainer) List(ctx context.Context, includeMetadata bool) ([]object.ObjectInfo, error) {
	prefix := makeObjectMetaKey(c.name, "")
	var objects []object.ObjectInfo
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, prefix, true, func(key, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record objectRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("object record %s: %w: %w", key, storage.ErrSerializationFailed, err)
			}
			info := object.ObjectInfo{
				Name: string(bytes.TrimPrefix(key, prefix)),
				ETag: record.ETag,
			}
			if includeMetadata {
				info.Metadata = record.Metadata
			}
			objects = append(objects, info)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return objects, nil
}
