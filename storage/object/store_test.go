package object_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/petclinic/core"
	"github.com/poiesic/petclinic/storage"
	"github.com/poiesic/petclinic/storage/badger"
	"github.com/poiesic/petclinic/storage/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDriver wraps a driver, requiring credentials like a hosted
// account when strict is set, and recording connects, container creations
// and downloads. createFailures makes that many CreateContainer calls fail;
// downloadHook, when set, replaces the result of every Download.
type recordingDriver struct {
	object.Driver
	strict         bool
	connects       atomic.Int32
	creates        atomic.Int32
	createFailures int32
	downloadHook   func(ctx context.Context, name string) error

	mu        sync.Mutex
	downloads []string
}

func (d *recordingDriver) Missing(cfg object.Config) []string {
	if d.strict && !cfg.HasCredentials() {
		return []string{"connection string or account name and key"}
	}
	return d.Driver.Missing(cfg)
}

func (d *recordingDriver) Connect(ctx context.Context, cfg object.Config) (object.Service, error) {
	d.connects.Add(1)
	svc, err := d.Driver.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &recordingService{Service: svc, driver: d}, nil
}

func (d *recordingDriver) downloaded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.downloads...)
}

type recordingService struct {
	object.Service
	driver *recordingDriver
}

func (s *recordingService) CreateContainer(ctx context.Context, name string) error {
	if s.driver.creates.Add(1) <= s.driver.createFailures {
		return errors.New("service unavailable")
	}
	return s.Service.CreateContainer(ctx, name)
}

func (s *recordingService) Container(name string) object.Container {
	return &recordingContainer{Container: s.Service.Container(name), driver: s.driver}
}

type recordingContainer struct {
	object.Container
	driver *recordingDriver
}

func (c *recordingContainer) Download(ctx context.Context, name string) ([]byte, error) {
	c.driver.mu.Lock()
	c.driver.downloads = append(c.driver.downloads, name)
	c.driver.mu.Unlock()
	if c.driver.downloadHook != nil {
		if err := c.driver.downloadHook(ctx, name); err != nil {
			return nil, err
		}
	}
	return c.Container.Download(ctx, name)
}

type fixture struct {
	store  *object.Store
	driver *recordingDriver
	raw    object.Container
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	base := badger.NewObjectDriver(backend)
	driver := &recordingDriver{Driver: base}
	store, err := object.NewStore(object.DefaultConfig(), driver)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.EnsureReady(ctx))

	svc, err := base.Connect(ctx, object.DefaultConfig())
	require.NoError(t, err)
	return &fixture{store: store, driver: driver, raw: svc.Container(object.DefaultContainer)}
}

var createdBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func pet(id, name, species string, n int) *core.Pet {
	ts := core.Timestamp(createdBase.Add(time.Duration(n) * time.Hour))
	return &core.Pet{
		ID:         id,
		Name:       name,
		Species:    species,
		Breed:      "Mixed",
		Age:        n,
		Color:      "brown",
		OwnerName:  "Sam",
		OwnerEmail: "sam@example.com",
		OwnerPhone: "5550001111",
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

func ids(pets []*core.Pet) []string {
	out := make([]string, len(pets))
	for i, p := range pets {
		out[i] = p.ID
	}
	return out
}

func TestNewStore_RequiresDriver(t *testing.T) {
	_, err := object.NewStore(object.DefaultConfig(), nil)
	assert.ErrorIs(t, err, object.ErrDriverRequired)
}

func TestStore_LazyInitialization(t *testing.T) {
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	driver := &recordingDriver{Driver: badger.NewObjectDriver(backend)}
	store, err := object.NewStore(object.DefaultConfig(), driver)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, int32(0), driver.connects.Load())

	ctx := context.Background()
	_, err = store.GetPet(ctx, "p1")
	require.NoError(t, err)
	_, err = store.ListPets(ctx, 10)
	require.NoError(t, err)
	_, err = store.CreatePet(ctx, pet("p1", "Rex", "Dog", 1))
	require.NoError(t, err)
	assert.Equal(t, int32(1), driver.connects.Load())
	assert.Equal(t, int32(1), driver.creates.Load())
}

func TestStore_ProvisioningRetriedAfterFailure(t *testing.T) {
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	driver := &recordingDriver{Driver: badger.NewObjectDriver(backend), createFailures: 1}
	store, err := object.NewStore(object.DefaultConfig(), driver)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.ListPets(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.False(t, storage.IsConfigurationError(err))

	pets, err := store.ListPets(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pets)
	require.NoError(t, store.EnsureReady(ctx))

	assert.Equal(t, int32(1), driver.connects.Load())
	assert.Equal(t, int32(2), driver.creates.Load())
}

func TestStore_ConfigurationError(t *testing.T) {
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	driver := &recordingDriver{Driver: badger.NewObjectDriver(backend), strict: true}
	store, err := object.NewStore(object.Config{AccountName: "clinic"}, driver)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.CreatePet(ctx, pet("p1", "Rex", "Dog", 1))
	assert.True(t, storage.IsConfigurationError(err))
	_, err = store.ListPetsByField(ctx, "species", "dog")
	assert.True(t, storage.IsConfigurationError(err))
	assert.Equal(t, int32(0), driver.connects.Load())
}

func TestStore_CreateGetDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rex := pet("p1", "Rex", "Dog", 1)
	_, err := f.store.CreatePet(ctx, rex)
	require.NoError(t, err)

	got, err := f.store.GetPet(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, rex, got)

	// Create replaces.
	renamed := pet("p1", "Max", "Dog", 1)
	_, err = f.store.CreatePet(ctx, renamed)
	require.NoError(t, err)
	got, err = f.store.GetPet(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Max", got.Name)

	deleted, err := f.store.DeletePet(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = f.store.GetPet(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = f.store.DeletePet(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_DeletedPetLeavesListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreatePet(ctx, pet("p1", "Rex", "Dog", 1))
	require.NoError(t, err)
	_, err = f.store.CreatePet(ctx, pet("p2", "Fido", "Dog", 2))
	require.NoError(t, err)

	deleted, err := f.store.DeletePet(ctx, "p1")
	require.NoError(t, err)
	require.True(t, deleted)

	all, err := f.store.ListPets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids(all))

	dogs, err := f.store.ListPetsByField(ctx, "species", "dog")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids(dogs))
}

func TestStore_ConcurrentCreates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.store.CreatePet(ctx, pet(fmt.Sprintf("p%02d", i), "Pet", "Dog", i))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "create %d", i)
	}
	for i := range n {
		got, err := f.store.GetPet(ctx, fmt.Sprintf("p%02d", i))
		require.NoError(t, err)
		require.NotNil(t, got, "pet %d", i)
	}
	all, err := f.store.ListPets(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestStore_CreateWritesMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreatePet(ctx, pet("p1", "Rex", "Dog", 1))
	require.NoError(t, err)

	objects, err := f.raw.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "p1.json", objects[0].Name)
	assert.Equal(t, "Rex", objects[0].Metadata[storage.MetaPetName])
	assert.Equal(t, "Dog", objects[0].Metadata[storage.MetaSpecies])
	assert.Equal(t, "Sam", objects[0].Metadata[storage.MetaOwnerName])
}

func TestStore_GetCorruptPet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.raw.Upload(ctx, "bad.json", []byte("{not json"), nil))

	_, err := f.store.GetPet(ctx, "bad")
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}

func TestStore_ListPets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := f.store.CreatePet(ctx, pet(fmt.Sprintf("p%d", i), "Pet", "Dog", i))
		require.NoError(t, err)
	}

	all, err := f.store.ListPets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p3", "p2", "p1", "p0"}, ids(all))

	limited, err := f.store.ListPets(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
	for i := 1; i < len(limited); i++ {
		assert.GreaterOrEqual(t, limited[i-1].CreatedAt, limited[i].CreatedAt)
	}
}

func TestStore_ListPetsSkipsCorruptObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreatePet(ctx, pet("p1", "Rex", "Dog", 1))
	require.NoError(t, err)
	_, err = f.store.CreatePet(ctx, pet("p3", "Tom", "Cat", 3))
	require.NoError(t, err)
	// Sorts between the two valid objects in listing order.
	require.NoError(t, f.raw.Upload(ctx, "p2.json", []byte("garbage"), nil))
	require.NoError(t, f.raw.Upload(ctx, "readme.txt", []byte("not a pet"), nil))

	all, err := f.store.ListPets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1"}, ids(all))

	// A skipped object does not count against the limit.
	limited, err := f.store.ListPets(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1"}, ids(limited))
}

func TestStore_ListPetsByField_CaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreatePet(ctx, pet("p1", "Rex", "Dog", 1))
	require.NoError(t, err)
	_, err = f.store.CreatePet(ctx, pet("p2", "Tom", "Cat", 2))
	require.NoError(t, err)

	dogs, err := f.store.ListPetsByField(ctx, "species", "dog")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(dogs))

	// The metadata short-circuit avoids downloading the cat.
	assert.Equal(t, []string{"p1.json"}, f.driver.downloaded())

	byName, err := f.store.ListPetsByField(ctx, "name", "TOM")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids(byName))
}

func TestStore_ListPetsByField_WithoutMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreatePet(ctx, pet("p1", "Rex", "Dog", 1))
	require.NoError(t, err)

	// Written by another client with no metadata at all.
	body, err := storage.MarshalPet(pet("p2", "Fido", "DOG", 2))
	require.NoError(t, err)
	require.NoError(t, f.raw.Upload(ctx, "p2.json", body, nil))

	// Metadata says Dog but the body was changed out of band.
	stale, err := storage.MarshalPet(pet("p3", "Tom", "Cat", 3))
	require.NoError(t, err)
	require.NoError(t, f.raw.Upload(ctx, "p3.json", stale, map[string]string{storage.MetaSpecies: "Dog"}))

	dogs, err := f.store.ListPetsByField(ctx, "species", "Dog")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids(dogs))
}

func TestStore_ListPetsByField_NonMetadataField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	black := pet("p1", "Rex", "Dog", 1)
	black.Color = "Black"
	_, err := f.store.CreatePet(ctx, black)
	require.NoError(t, err)
	_, err = f.store.CreatePet(ctx, pet("p2", "Tom", "Cat", 2))
	require.NoError(t, err)

	found, err := f.store.ListPetsByField(ctx, "color", "black")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(found))
	assert.ElementsMatch(t, []string{"p1.json", "p2.json"}, f.driver.downloaded())

	_, err = f.store.ListPetsByField(ctx, "nickname", "rex")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestStore_ListFailsOnDownloadError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := range 3 {
		_, err := f.store.CreatePet(ctx, pet(fmt.Sprintf("p%d", i), "Pet", "Dog", i))
		require.NoError(t, err)
	}

	denied := errors.New("authorization failure")
	f.driver.downloadHook = func(_ context.Context, name string) error {
		if name == "p1.json" {
			return denied
		}
		return nil
	}

	_, err := f.store.ListPets(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.ErrorIs(t, err, denied)

	_, err = f.store.ListPetsByField(ctx, "species", "dog")
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.ErrorIs(t, err, denied)
}

func TestStore_ListFailsWhenCancelled(t *testing.T) {
	f := newFixture(t)

	for i := range 3 {
		_, err := f.store.CreatePet(context.Background(), pet(fmt.Sprintf("p%d", i), "Pet", "Dog", i))
		require.NoError(t, err)
	}

	for _, list := range []func(context.Context) ([]*core.Pet, error){
		func(ctx context.Context) ([]*core.Pet, error) { return f.store.ListPets(ctx, 0) },
		func(ctx context.Context) ([]*core.Pet, error) { return f.store.ListPetsByField(ctx, "species", "dog") },
	} {
		ctx, cancel := context.WithCancel(context.Background())
		f.driver.downloadHook = func(ctx context.Context, _ string) error {
			cancel()
			return ctx.Err()
		}
		pets, err := list(ctx)
		assert.Nil(t, pets)
		assert.ErrorIs(t, err, storage.ErrStore)
		assert.ErrorIs(t, err, context.Canceled)
		cancel()
	}
}

func TestStore_ListSkipsObjectsRemovedDuringScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := range 3 {
		_, err := f.store.CreatePet(ctx, pet(fmt.Sprintf("p%d", i), "Pet", "Dog", i))
		require.NoError(t, err)
	}
	f.driver.downloadHook = func(_ context.Context, name string) error {
		if name == "p1.json" {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return nil
	}

	all, err := f.store.ListPets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p0"}, ids(all))
}

func TestStore_NonASCIINamesRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	zoe := pet("p1", "Zoë", "Cat", 1)
	zoe.OwnerName = "José"
	_, err := f.store.CreatePet(ctx, zoe)
	require.NoError(t, err)
	_, err = f.store.CreatePet(ctx, pet("p2", "Rex", "Dog", 2))
	require.NoError(t, err)

	objects, err := f.raw.List(ctx, true)
	require.NoError(t, err)
	for _, obj := range objects {
		if obj.Name == "p1.json" {
			assert.NotContains(t, obj.Metadata, storage.MetaPetName)
			assert.NotContains(t, obj.Metadata, storage.MetaOwnerName)
			assert.Equal(t, "Cat", obj.Metadata[storage.MetaSpecies])
		}
	}

	got, err := f.store.GetPet(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, zoe, got)

	byName, err := f.store.ListPetsByField(ctx, "name", "ZOË")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(byName))

	byOwner, err := f.store.ListPetsByField(ctx, "owner_name", "josé")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(byOwner))
}
