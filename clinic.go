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


package petclinic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/petclinic/config"
	"github.com/poiesic/petclinic/storage"
	"github.com/poiesic/petclinic/storage/badger"
	"github.com/poiesic/petclinic/storage/blobstore"
	"github.com/poiesic/petclinic/storage/document"
	"github.com/poiesic/petclinic/storage/mongodb"
	"github.com/poiesic/petclinic/storage/object"
)

// Clinic owns the appointment and pet stores and whatever backend they share.
type Clinic struct {
	backend      *badger.Backend
	appointments storage.AppointmentStore
	pets         storage.PetStore
	logger       *slog.Logger
}

// Option configures a Clinic.
type Option func(*clinicOptions)

type clinicOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to the clinic and both stores.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clinicOptions) {
		o.logger = logger
	}
}

// Open builds both stores from cfg. Nothing is provisioned and no remote
// service is contacted; the embedded database is opened when either store
// uses it.
func Open(cfg *config.Config, opts ...Option) (*Clinic, error) {
	options := &clinicOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var backend *badger.Backend
	if cfg.UsesBadger() {
		var err error
		backend, err = badger.OpenBackend(cfg.BadgerPath, cfg.BadgerPath == "")
		if err != nil {
			return nil, fmt.Errorf("opening badger backend: %w", err)
		}
	}

	docDriver, err := newDocumentDriver(cfg.DocumentBackend, backend)
	if err != nil {
		closeBackend(backend)
		return nil, err
	}
	appointments, err := document.NewStore(cfg.Document, docDriver,
		document.WithLogger(options.logger.With("store", "appointments")))
	if err != nil {
		closeBackend(backend)
		return nil, err
	}

	objDriver, err := newObjectDriver(cfg.ObjectBackend, backend)
	if err != nil {
		appointments.Close()
		closeBackend(backend)
		return nil, err
	}
	pets, err := object.NewStore(cfg.Object, objDriver,
		object.WithLogger(options.logger.With("store", "pets")))
	if err != nil {
		appointments.Close()
		closeBackend(backend)
		return nil, err
	}

	options.logger.Debug("clinic stores ready",
		"document_backend", docDriver.Name(), "object_backend", objDriver.Name())

	return &Clinic{
		backend:      backend,
		appointments: appointments,
		pets:         pets,
		logger:       options.logger,
	}, nil
}

// newDocumentDriver selects the appointment store driver by name.
func newDocumentDriver(name string, backend *badger.Backend) (document.Driver, error) {
	switch name {
	case config.BackendBadger, "":
		return badger.NewDocumentDriver(backend), nil
	case config.BackendMongo:
		return mongodb.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unknown document backend: %q (supported: badger, mongo)", name)
	}
}

// newObjectDriver selects the pet store driver by name.
func newObjectDriver(name string, backend *badger.Backend) (object.Driver, error) {
	switch name {
	case config.BackendBadger, "":
		return badger.NewObjectDriver(backend), nil
	case config.BackendAzure:
		return blobstore.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unknown object backend: %q (supported: badger, azblob)", name)
	}
}

func closeBackend(backend *badger.Backend) {
	if backend != nil {
		backend.Close()
	}
}

// Appointments returns the appointment store.
func (c *Clinic) Appointments() storage.AppointmentStore {
	return c.appointments
}

// Pets returns the pet store.
func (c *Clinic) Pets() storage.PetStore {
	return c.pets
}

// Provision runs the ensure-exists steps of both stores now instead of on
// first use. Both are attempted; their errors are joined.
func (c *Clinic) Provision(ctx context.Context) error {
	var errs []error
	if err := c.appointments.EnsureReady(ctx); err != nil {
		errs = append(errs, fmt.Errorf("appointments: %w", err))
	}
	if err := c.pets.EnsureReady(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pets: %w", err))
	}
	return errors.Join(errs...)
}

// Close closes the pet store, the appointment store and the shared backend,
// in that order. Every close is attempted; their errors are joined.
func (c *Clinic) Close() error {
	var errs []error
	if err := c.pets.Close(); err != nil {
		c.logger.Error("error closing pet store", "err", err)
		errs = append(errs, err)
	}
	if err := c.appointments.Close(); err != nil {
		c.logger.Error("error closing appointment store", "err", err)
		errs = append(errs, err)
	}
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			c.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
