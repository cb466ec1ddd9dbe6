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


// Package document implements storage.AppointmentStore over a partitioned
// document collection.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/petclinic/core"
	"github.com/poiesic/petclinic/storage"
)

const component = "document store"

var (
	// ErrDriverRequired is returned by NewStore when no driver is given.
	ErrDriverRequired = errors.New("document driver is required")

	// ErrUnsupportedPartitionKey is returned by NewStore for a partition key
	// path other than DefaultPartitionKeyPath. Appointments are always
	// partitioned by their date.
	ErrUnsupportedPartitionKey = errors.New("unsupported partition key path")
)

// Store is a storage.AppointmentStore backed by a document collection
// partitioned by appointment_date.
//
// The client, database and collection are created on first use and cached.
// Provisioning runs until it succeeds once; a failed attempt is retried by the
// next operation.
type Store struct {
	cfg    Config
	driver Driver
	logger *slog.Logger
	clock  func() time.Time

	mu          sync.Mutex
	client      Client
	database    Database
	collection  Collection
	provisioned bool
}

var _ storage.AppointmentStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", component)
		return nil
	}
}

// WithClock sets the time source used to stamp updated_at.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		s.clock = clock
		return nil
	}
}

// NewStore creates a Store. It performs no I/O; missing credentials are
// reported by the first operation.
func NewStore(cfg Config, driver Driver, opts ...Option) (*Store, error) {
	if driver == nil {
		return nil, ErrDriverRequired
	}
	cfg.normalize()
	if cfg.PartitionKeyPath != DefaultPartitionKeyPath {
		return nil, fmt.Errorf("%w: %q (only %q is supported)",
			ErrUnsupportedPartitionKey, cfg.PartitionKeyPath, DefaultPartitionKeyPath)
	}

	s := &Store{
		cfg:    cfg,
		driver: driver,
		logger: slog.Default().With("component", component),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// EnsureReady builds the client chain and provisions the database and
// collection if that has not yet succeeded.
func (s *Store) EnsureReady(ctx context.Context) error {
	_, err := s.ready(ctx)
	return err
}

func (s *Store) ready(ctx context.Context) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provisioned {
		return s.collection, nil
	}

	if missing := s.driver.Missing(s.cfg); len(missing) > 0 {
		return nil, &storage.ConfigurationError{Component: component, Missing: missing}
	}

	if s.client == nil {
		client, err := s.driver.Connect(ctx, s.cfg)
		if err != nil {
			s.logger.Error("error connecting", "driver", s.driver.Name(), "err", err)
			return nil, storage.WrapStoreError("connect", err)
		}
		s.client = client
	}
	if s.database == nil {
		s.database = s.client.Database(s.cfg.Database)
	}

	if err := s.client.CreateDatabase(ctx, s.cfg.Database); err != nil && !errors.Is(err, storage.ErrContainerExists) {
		s.logger.Error("error provisioning database", "database", s.cfg.Database, "err", err)
		return nil, storage.WrapStoreError("provision database", err)
	}
	spec := CollectionSpec{PartitionKeyPath: s.cfg.PartitionKeyPath, Throughput: s.cfg.Throughput}
	if err := s.database.CreateCollection(ctx, s.cfg.Collection, spec); err != nil && !errors.Is(err, storage.ErrContainerExists) {
		s.logger.Error("error provisioning collection", "collection", s.cfg.Collection, "err", err)
		return nil, storage.WrapStoreError("provision collection", err)
	}

	s.collection = s.database.Collection(s.cfg.Collection)
	s.provisioned = true
	s.logger.Info("document collection ready",
		"driver", s.driver.Name(),
		"database", s.cfg.Database,
		"collection", s.cfg.Collection)
	return s.collection, nil
}

// CreateAppointment inserts a, keyed by its id within its appointment_date
// partition.
func (s *Store) CreateAppointment(ctx context.Context, a *core.Appointment) (*core.Appointment, error) {
	if err := core.ValidateAppointment(a); err != nil {
		return nil, err
	}
	coll, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := storage.MarshalAppointment(a)
	if err != nil {
		return nil, storage.WrapStoreError("create appointment", err)
	}
	if err := coll.Create(ctx, a.AppointmentDate, a.ID, doc); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("%w: appointment %s on %s", storage.ErrConflict, a.ID, a.AppointmentDate)
		}
		s.logger.Error("error creating appointment", "id", a.ID, "err", err)
		return nil, storage.WrapStoreError("create appointment", err)
	}

	s.logger.Debug("created appointment", "id", a.ID, "partition", a.AppointmentDate)
	return a, nil
}

// GetAppointment reads one appointment. Returns nil, nil when it is absent from
// the partition.
func (s *Store) GetAppointment(ctx context.Context, id, partition string) (*core.Appointment, error) {
	if id == "" || partition == "" {
		return nil, fmt.Errorf("%w: id and partition are required", storage.ErrInvalidQuery)
	}
	coll, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := coll.Read(ctx, partition, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("appointment not found", "id", id, "partition", partition)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("error reading appointment", "id", id, "err", err)
		return nil, storage.WrapStoreError("get appointment", err)
	}

	a, err := storage.UnmarshalAppointment(doc)
	if err != nil {
		return nil, storage.WrapStoreError("get appointment", err)
	}
	return a, nil
}

// ListAppointmentsByDate returns the appointments of one date ordered by
// appointment_time.
func (s *Store) ListAppointmentsByDate(ctx context.Context, partition string) ([]*core.Appointment, error) {
	if partition == "" {
		return nil, fmt.Errorf("%w: partition is required", storage.ErrInvalidQuery)
	}
	return s.query(ctx, "list appointments by date", Query{
		Partition: partition,
		OrderBy:   "appointment_time",
	})
}

// ListAppointments returns appointments from every date, newest first by
// created_at. Offset and limit are applied by the backend; limit <= 0 returns
// every appointment after offset.
func (s *Store) ListAppointments(ctx context.Context, limit, offset int) ([]*core.Appointment, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset %d", storage.ErrInvalidQuery, offset)
	}
	return s.query(ctx, "list appointments", Query{
		CrossPartition: true,
		OrderBy:        "created_at",
		Descending:     true,
		Offset:         offset,
		Limit:          limit,
	})
}

// FindAppointment looks an appointment up by id across every partition.
// Returns nil, nil if none holds it.
func (s *Store) FindAppointment(ctx context.Context, id string) (*core.Appointment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", storage.ErrInvalidQuery)
	}
	found, err := s.query(ctx, "find appointment", Query{
		CrossPartition: true,
		Filters:        []Filter{{Field: "id", Value: id}},
		Limit:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (s *Store) query(ctx context.Context, op string, q Query) ([]*core.Appointment, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	coll, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := coll.Query(ctx, q)
	if err != nil {
		s.logger.Error("error querying appointments", "op", op, "err", err)
		return nil, storage.WrapStoreError(op, err)
	}

	results := make([]*core.Appointment, 0, len(docs))
	for _, doc := range docs {
		a, err := storage.UnmarshalAppointment(doc)
		if err != nil {
			return nil, storage.WrapStoreError(op, err)
		}
		results = append(results, a)
	}
	s.logger.Debug("queried appointments", "op", op, "count", len(results))
	return results, nil
}

// UpdateAppointment applies patch to the stored appointment and replaces it.
// There is no concurrency token; concurrent updates are last-writer-wins.
func (s *Store) UpdateAppointment(ctx context.Context, id, partition string, patch *core.AppointmentPatch) (*core.Appointment, error) {
	if err := core.ValidateAppointmentPatch(patch); err != nil {
		return nil, err
	}
	existing, err := s.GetAppointment(ctx, id, partition)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: appointment %s on %s", storage.ErrNotFound, id, partition)
	}

	patch.Apply(existing, s.clock())
	doc, err := storage.MarshalAppointment(existing)
	if err != nil {
		return nil, storage.WrapStoreError("update appointment", err)
	}

	coll, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	if err := coll.Replace(ctx, partition, id, doc); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: appointment %s on %s", storage.ErrNotFound, id, partition)
		}
		s.logger.Error("error replacing appointment", "id", id, "err", err)
		return nil, storage.WrapStoreError("update appointment", err)
	}

	s.logger.Debug("updated appointment", "id", id, "partition", partition)
	return existing, nil
}

// DeleteAppointment removes one appointment. Returns false if it was absent.
func (s *Store) DeleteAppointment(ctx context.Context, id, partition string) (bool, error) {
	if id == "" || partition == "" {
		return false, fmt.Errorf("%w: id and partition are required", storage.ErrInvalidQuery)
	}
	coll, err := s.ready(ctx)
	if err != nil {
		return false, err
	}

	if err := coll.Delete(ctx, partition, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("appointment not found for delete", "id", id, "partition", partition)
			return false, nil
		}
		s.logger.Error("error deleting appointment", "id", id, "err", err)
		return false, storage.WrapStoreError("delete appointment", err)
	}

	s.logger.Debug("deleted appointment", "id", id, "partition", partition)
	return true, nil
}

// Close releases the client if one was created. The store may not be used
// afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.database = nil
	s.collection = nil
	s.provisioned = false
	return err
}
