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


// Package object implements storage.PetStore over a flat object container,
// one JSON object per pet with a small metadata map used to filter scans.
package object

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/petclinic/core"
	"github.com/poiesic/petclinic/storage"
)

const component = "object store"

var (
	// ErrDriverRequired is returned by NewStore when no driver is given.
	ErrDriverRequired = errors.New("object driver is required")
)

// Store is a storage.PetStore backed by an object container.
//
// Listing and filtering are linear scans. Object metadata lets ListPetsByField
// skip downloading bodies that cannot match, but the decoded body always has
// the final say.
type Store struct {
	cfg    Config
	driver Driver
	logger *slog.Logger
	pool   *ants.Pool

	mu          sync.Mutex
	service     Service
	container   Container
	initialized bool
}

var _ storage.PetStore = (*Store)(nil)

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

// NewStore creates a Store. It performs no I/O; missing credentials are
// reported by the first operation.
func NewStore(cfg Config, driver Driver, opts ...Option) (*Store, error) {
	if driver == nil {
		return nil, ErrDriverRequired
	}
	cfg.normalize()

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg:    cfg,
		driver: driver,
		logger: slog.Default().With("component", component),
		pool:   pool,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return s, nil
}

// EnsureReady builds the service client and creates the container if that
// has not yet succeeded.
func (s *Store) EnsureReady(ctx context.Context) error {
	_, err := s.ready(ctx)
	return err
}

func (s *Store) ready(ctx context.Context) (Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return s.container, nil
	}

	if missing := s.driver.Missing(s.cfg); len(missing) > 0 {
		return nil, &storage.ConfigurationError{Component: component, Missing: missing}
	}

	if s.service == nil {
		service, err := s.driver.Connect(ctx, s.cfg)
		if err != nil {
			s.logger.Error("error connecting", "driver", s.driver.Name(), "err", err)
			return nil, storage.WrapStoreError("connect", err)
		}
		s.service = service
	}

	if err := s.service.CreateContainer(ctx, s.cfg.Container); err != nil {
		if !errors.Is(err, storage.ErrContainerExists) {
			s.logger.Error("error creating container", "container", s.cfg.Container, "err", err)
			return nil, storage.WrapStoreError("provision container", err)
		}
		s.logger.Debug("container already exists", "container", s.cfg.Container)
	}

	s.container = s.service.Container(s.cfg.Container)
	s.initialized = true
	s.logger.Info("object container ready", "driver", s.driver.Name(), "container", s.cfg.Container)
	return s.container, nil
}

// CreatePet writes p as <id>.json with its metadata, replacing any existing
// object for the same id.
func (s *Store) CreatePet(ctx context.Context, p *core.Pet) (*core.Pet, error) {
	if err := core.ValidatePet(p); err != nil {
		return nil, err
	}
	c, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	body, err := storage.MarshalPet(p)
	if err != nil {
		return nil, storage.WrapStoreError("create pet", err)
	}
	if err := c.Upload(ctx, storage.PetObjectName(p.ID), body, storage.PetMetadata(p)); err != nil {
		s.logger.Error("error uploading pet", "id", p.ID, "err", err)
		return nil, storage.WrapStoreError("create pet", err)
	}

	s.logger.Debug("created pet", "id", p.ID)
	return p, nil
}

// GetPet reads one pet. Returns nil, nil if there is no object for id.
func (s *Store) GetPet(ctx context.Context, id string) (*core.Pet, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", storage.ErrInvalidQuery)
	}
	c, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.Download(ctx, storage.PetObjectName(id))
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("pet not found", "id", id)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("error downloading pet", "id", id, "err", err)
		return nil, storage.WrapStoreError("get pet", err)
	}

	p, err := storage.UnmarshalPet(body)
	if err != nil {
		s.logger.Error("error decoding pet", "id", id, "err", err)
		return nil, storage.WrapStoreError("get pet", err)
	}
	return p, nil
}

// ListPets decodes pets in listing order until limit have been read
// (limit <= 0 reads all), then sorts them by created_at descending. Objects
// that fail to decode, or disappear before download, are logged and skipped.
func (s *Store) ListPets(ctx context.Context, limit int) ([]*core.Pet, error) {
	c, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	objects, err := c.List(ctx, false)
	if err != nil {
		s.logger.Error("error listing pets", "err", err)
		return nil, storage.WrapStoreError("list pets", err)
	}
	names := s.petObjectNames(objects)

	pets := []*core.Pet{}
	for start := 0; start < len(names); {
		// Download only what is still needed; a skipped object is replaced by
		// the next one in listing order.
		n := len(names) - start
		if limit > 0 {
			n = min(n, limit-len(pets))
		}
		batch, err := s.fetch(ctx, c, names[start:start+n])
		if err != nil {
			return nil, storage.WrapStoreError("list pets", err)
		}
		for _, p := range batch {
			if p != nil {
				pets = append(pets, p)
			}
		}
		start += n
		if limit > 0 && len(pets) >= limit {
			break
		}
	}

	s.logger.Debug("listed pets", "objects", len(names), "decoded", len(pets))
	sortNewestFirst(pets)
	return pets, nil
}

// ListPetsByField returns every pet whose field equals value, ignoring case,
// ordered by created_at descending.
//
// For fields mirrored in metadata, objects whose metadata carries the key and
// does not match are never downloaded. Objects without the key are downloaded
// and checked. Other fields are checked on every decoded body.
func (s *Store) ListPetsByField(ctx context.Context, field, value string) ([]*core.Pet, error) {
	if _, ok := (&core.Pet{}).Field(field); !ok {
		return nil, fmt.Errorf("%w: unknown pet field %q", storage.ErrInvalidQuery, field)
	}
	c, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	metaKey, inMetadata := storage.MetadataKey(field)
	objects, err := c.List(ctx, inMetadata)
	if err != nil {
		s.logger.Error("error listing pets", "field", field, "err", err)
		return nil, storage.WrapStoreError("list pets by field", err)
	}

	var candidates []string
	skipped := 0
	for _, obj := range objects {
		if _, ok := storage.PetIDFromObjectName(obj.Name); !ok {
			continue
		}
		if inMetadata {
			if v, ok := obj.Metadata[metaKey]; ok && !strings.EqualFold(v, value) {
				skipped++
				continue
			}
		}
		candidates = append(candidates, obj.Name)
	}

	fetched, err := s.fetch(ctx, c, candidates)
	if err != nil {
		return nil, storage.WrapStoreError("list pets by field", err)
	}
	pets := []*core.Pet{}
	for _, p := range fetched {
		if p == nil {
			continue
		}
		if v, _ := p.Field(field); strings.EqualFold(v, value) {
			pets = append(pets, p)
		}
	}

	s.logger.Debug("filtered pets",
		"field", field,
		"metadata", inMetadata,
		"skippedByMetadata", skipped,
		"downloaded", len(candidates),
		"matched", len(pets))
	sortNewestFirst(pets)
	return pets, nil
}

// DeletePet removes a pet's object. Returns false if there was none.
func (s *Store) DeletePet(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: id is required", storage.ErrInvalidQuery)
	}
	c, err := s.ready(ctx)
	if err != nil {
		return false, err
	}

	if err := c.Delete(ctx, storage.PetObjectName(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("pet not found for delete", "id", id)
			return false, nil
		}
		s.logger.Error("error deleting pet", "id", id, "err", err)
		return false, storage.WrapStoreError("delete pet", err)
	}

	s.logger.Debug("deleted pet", "id", id)
	return true, nil
}

// Close releases the download pool and the service client.
// The store should not be used after calling Close.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool.Release()
	if s.service == nil {
		return nil
	}
	err := s.service.Close()
	s.service = nil
	s.container = nil
	s.initialized = false
	return err
}

func (s *Store) petObjectNames(objects []ObjectInfo) []string {
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if _, ok := storage.PetIDFromObjectName(obj.Name); !ok {
			s.logger.Debug("skipping non-pet object", "name", obj.Name)
			continue
		}
		names = append(names, obj.Name)
	}
	return names
}

// fetch downloads and decodes names on the worker pool. The result is index
// aligned with names; entries that vanished or could not be decoded are nil.
// Any other download failure, or cancellation of ctx, fails the whole fetch.
func (s *Store) fetch(ctx context.Context, c Container, names []string) ([]*core.Pet, error) {
	pets := make([]*core.Pet, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			pets[i], errs[i] = s.download(ctx, c, name)
		}
		if err := s.pool.Submit(task); err != nil {
			s.logger.Warn("download pool unavailable, downloading inline", "err", err)
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return pets, nil
}

func (s *Store) download(ctx context.Context, c Container, name string) (*core.Pet, error) {
	body, err := c.Download(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("pet object removed before download", "name", name)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("error downloading pet object", "name", name, "err", err)
		return nil, err
	}
	p, err := storage.UnmarshalPet(body)
	if err != nil {
		s.logger.Warn("failed to decode pet object", "name", name, "err", err)
		return nil, nil
	}
	return p, nil
}

func sortNewestFirst(pets []*core.Pet) {
	slices.SortStableFunc(pets, func(a, b *core.Pet) int {
		return strings.Compare(b.CreatedAt, a.CreatedAt)
	})
}
