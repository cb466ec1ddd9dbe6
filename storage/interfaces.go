package storage

import (
	"context"

	"github.com/poiesic/petclinic/core"
)

// Provisioner is implemented by stores that create their backing database,
// collection or container on first use.
type Provisioner interface {
	// EnsureReady builds the store's client and runs its ensure-exists steps.
	// Every public operation calls it; calling it directly provisions eagerly.
	EnsureReady(ctx context.Context) error
}

// AppointmentStore persists appointments in a partitioned document collection.
// The partition key is the appointment date (YYYY-MM-DD).
// Implementations must be thread-safe and support concurrent access.
type AppointmentStore interface {
	Provisioner

	// CreateAppointment inserts a new appointment and returns it as stored.
	// Returns ErrConflict if the id already exists in its partition.
	CreateAppointment(ctx context.Context, a *core.Appointment) (*core.Appointment, error)

	// GetAppointment reads one appointment by id within a partition.
	// Returns nil, nil if it does not exist there.
	GetAppointment(ctx context.Context, id, partition string) (*core.Appointment, error)

	// ListAppointmentsByDate returns every appointment in one partition,
	// ordered by appointment_time ascending.
	ListAppointmentsByDate(ctx context.Context, partition string) ([]*core.Appointment, error)

	// ListAppointments returns appointments across all partitions, ordered by
	// created_at descending, skipping offset and returning at most limit.
	ListAppointments(ctx context.Context, limit, offset int) ([]*core.Appointment, error)

	// UpdateAppointment reads the appointment, applies patch and replaces it.
	// Returns ErrNotFound if it does not exist. Concurrent updates are last-writer-wins.
	UpdateAppointment(ctx context.Context, id, partition string, patch *core.AppointmentPatch) (*core.Appointment, error)

	// DeleteAppointment removes one appointment. Returns false if it did not exist.
	DeleteAppointment(ctx context.Context, id, partition string) (bool, error)

	// FindAppointment looks an appointment up by id alone, across partitions.
	// Returns nil, nil if no partition holds it.
	FindAppointment(ctx context.Context, id string) (*core.Appointment, error)

	// Close releases the underlying client, if one was created.
	Close() error
}

// PetStore persists pets as one JSON object per id in a flat container.
// Implementations must be thread-safe and support concurrent access.
type PetStore interface {
	Provisioner

	// CreatePet writes the pet, replacing any object with the same id.
	CreatePet(ctx context.Context, p *core.Pet) (*core.Pet, error)

	// GetPet reads one pet by id. Returns nil, nil if it does not exist.
	GetPet(ctx context.Context, id string) (*core.Pet, error)

	// ListPets returns up to limit pets (limit <= 0 for all), ordered by
	// created_at descending. Objects that cannot be read or decoded are skipped.
	ListPets(ctx context.Context, limit int) ([]*core.Pet, error)

	// ListPetsByField returns every pet whose field equals value, ignoring case.
	ListPetsByField(ctx context.Context, field, value string) ([]*core.Pet, error)

	// DeletePet removes a pet. Returns false if it did not exist.
	DeletePet(ctx context.Context, id string) (bool, error)

	// Close releases the underlying client, if one was created.
	Close() error
}
