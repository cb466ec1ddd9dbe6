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


// Package mongodb provides a MongoDB driver for the document store.
//
// A partition is emulated with a compound _id of {partition, id}, so ids are
// unique per partition as they are in a partitioned document database, and
// the partition key field doubles as a filter for scoped queries.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/petclinic/storage"
	"github.com/poiesic/petclinic/storage/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// namespaceExists is the server error code for creating a collection that
// already exists.
const namespaceExists = 48

const disconnectTimeout = 10 * time.Second

// Driver implements document.Driver for MongoDB.
//
// Config.Endpoint is the connection URI. Config.Key, when set, is used as the
// password for the user named in the URI.
type Driver struct{}

var _ document.Driver = (*Driver)(nil)

// NewDriver creates a MongoDB document driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Name returns "mongo".
func (d *Driver) Name() string {
	return "mongo"
}

// Missing reports an absent endpoint.
func (d *Driver) Missing(cfg document.Config) []string {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return []string{"endpoint"}
	}
	return nil
}

// Connect builds a client. The driver connects to the server lazily, so
// network failures surface from the first operation.
func (d *Driver) Connect(ctx context.Context, cfg document.Config) (document.Client, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &mongoClient{
		client:         client,
		partitionField: partitionField(cfg.PartitionKeyPath),
	}, nil
}

// clientOptions turns cfg into client options, reporting an unusable URI as a
// configuration error.
func clientOptions(cfg document.Config) (*options.ClientOptions, error) {
	opts := options.Client().ApplyURI(cfg.Endpoint)
	if cfg.Key != "" {
		cred := options.Credential{Password: cfg.Key, PasswordSet: true}
		if opts.Auth != nil {
			cred.Username = opts.Auth.Username
			cred.AuthSource = opts.Auth.AuthSource
			cred.AuthMechanism = opts.Auth.AuthMechanism
		}
		opts.SetAuth(cred)
	}
	if err := opts.Validate(); err != nil {
		return nil, &storage.ConfigurationError{Component: "mongo driver", Err: err}
	}
	return opts, nil
}

// partitionField converts a partition key path such as "/appointment_date"
// to a top-level field name.
func partitionField(path string) string {
	return strings.TrimPrefix(path, "/")
}

type mongoClient struct {
	client         *mongo.Client
	partitionField string
}

// CreateDatabase is a no-op; MongoDB creates databases on first write.
func (c *mongoClient) CreateDatabase(ctx context.Context, name string) error {
	return nil
}

func (c *mongoClient) Database(name string) document.Database {
	return &database{db: c.client.Database(name), partitionField: c.partitionField}
}

func (c *mongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

type database struct {
	db             *mongo.Database
	partitionField string
}

// CreateCollection creates the collection. Throughput has no MongoDB
// counterpart and is ignored.
func (d *database) CreateCollection(ctx context.Context, name string, spec document.CollectionSpec) error {
	err := d.db.CreateCollection(ctx, name)
	if isNamespaceExists(err) {
		return storage.ErrContainerExists
	}
	return err
}

func (d *database) Collection(name string) document.Collection {
	return &collection{coll: d.db.Collection(name), partitionField: d.partitionField}
}

func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.HasErrorCode(namespaceExists)
}

type collection struct {
	coll           *mongo.Collection
	partitionField string
}

// documentKey returns the compound _id of a document.
func documentKey(partition, id string) bson.D {
	return bson.D{{Key: "partition", Value: partition}, {Key: "id", Value: id}}
}

// toBSON converts a JSON document to BSON with its compound _id first.
func toBSON(doc []byte, partition, id string) (bson.D, error) {
	var fields bson.D
	if err := bson.UnmarshalExtJSON(doc, false, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	out := make(bson.D, 0, len(fields)+1)
	out = append(out, bson.E{Key: "_id", Value: documentKey(partition, id)})
	for _, f := range fields {
		if f.Key != "_id" {
			out = append(out, f)
		}
	}
	return out, nil
}

// fromBSON converts a stored document back to JSON without its _id.
func fromBSON(raw bson.Raw) ([]byte, error) {
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	out := make(bson.D, 0, len(fields))
	for _, f := range fields {
		if f.Key != "_id" {
			out = append(out, f)
		}
	}
	doc, err := bson.MarshalExtJSON(out, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return doc, nil
}

func (c *collection) Create(ctx context.Context, partition, id string, doc []byte) error {
	d, err := toBSON(doc, partition, id)
	if err != nil {
		return err
	}
	_, err = c.coll.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrConflict
	}
	return err
}

func (c *collection) Read(ctx context.Context, partition, id string) ([]byte, error) {
	raw, err := c.coll.FindOne(ctx, bson.D{{Key: "_id", Value: documentKey(partition, id)}}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw)
}

func (c *collection) Replace(ctx context.Context, partition, id string, doc []byte) error {
	d, err := toBSON(doc, partition, id)
	if err != nil {
		return err
	}
	result, err := c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: documentKey(partition, id)}}, d)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *collection) Delete(ctx context.Context, partition, id string) error {
	result, err := c.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: documentKey(partition, id)}})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *collection) Query(ctx context.Context, q document.Query) ([][]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cursor, err := c.coll.Find(ctx, buildFilter(q, c.partitionField), buildFindOptions(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := [][]byte{}
	for cursor.Next(ctx) {
		doc, err := fromBSON(cursor.Current)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// buildFilter translates the partition scope and equality filters of q.
func buildFilter(q document.Query, partitionField string) bson.D {
	filter := bson.D{}
	if !q.CrossPartition {
		filter = append(filter, bson.E{Key: partitionField, Value: q.Partition})
	}
	for _, f := range q.Filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	return filter
}

// buildFindOptions translates ordering and paging of q.
func buildFindOptions(q document.Query) *options.FindOptions {
	opts := options.Find()
	if q.OrderBy != "" {
		direction := 1
		if q.Descending {
			direction = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: direction}})
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return opts
}
