package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/poiesic/petclinic/storage"
	"github.com/poiesic/petclinic/storage/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const azuriteConnectionString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;" +
	"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
	"BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func TestDriver_Missing(t *testing.T) {
	d := NewDriver()

	assert.Empty(t, d.Missing(object.Config{ConnectionString: azuriteConnectionString}))
	assert.Empty(t, d.Missing(object.Config{AccountName: "clinic", AccountKey: "c2VjcmV0"}))
	assert.Equal(t, []string{"account key"}, d.Missing(object.Config{AccountName: "clinic"}))
	assert.Equal(t, []string{"account name", "account key"}, d.Missing(object.DefaultConfig()))
}

func TestDriver_Connect(t *testing.T) {
	d := NewDriver()
	ctx := context.Background()

	t.Run("connection string", func(t *testing.T) {
		svc, err := d.Connect(ctx, object.Config{ConnectionString: azuriteConnectionString})
		require.NoError(t, err)
		assert.NotNil(t, svc.Container("pets"))
		assert.NoError(t, svc.Close())
	})

	t.Run("shared key", func(t *testing.T) {
		svc, err := d.Connect(ctx, object.Config{AccountName: "clinic", AccountKey: "c2VjcmV0"})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("malformed connection string", func(t *testing.T) {
		_, err := d.Connect(ctx, object.Config{ConnectionString: "nonsense"})
		require.Error(t, err)
		assert.True(t, storage.IsConfigurationError(err))
	})

	t.Run("key that is not base64", func(t *testing.T) {
		_, err := d.Connect(ctx, object.Config{AccountName: "clinic", AccountKey: "not base64!"})
		require.Error(t, err)
		assert.True(t, storage.IsConfigurationError(err))
	})
}

func TestServiceURL(t *testing.T) {
	assert.Equal(t, "https://clinic.blob.core.windows.net/", serviceURL("clinic"))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	notFound := classify(&azcore.ResponseError{ErrorCode: "BlobNotFound"})
	assert.ErrorIs(t, notFound, storage.ErrNotFound)

	exists := classify(&azcore.ResponseError{ErrorCode: "ContainerAlreadyExists"})
	assert.ErrorIs(t, exists, storage.ErrContainerExists)

	other := &azcore.ResponseError{ErrorCode: "AuthorizationFailure"}
	assert.Same(t, other, classify(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}

func TestMetadataConversion(t *testing.T) {
	assert.Nil(t, toServiceMetadata(nil))

	out := toServiceMetadata(map[string]string{storage.MetaSpecies: "Dog"})
	require.Contains(t, out, storage.MetaSpecies)
	assert.Equal(t, "Dog", *out[storage.MetaSpecies])

	assert.Nil(t, fromServiceMetadata(nil))
	back := fromServiceMetadata(map[string]*string{
		"Species":  to.Ptr("Dog"),
		"pet_name": to.Ptr("Rex"),
		"empty":    nil,
	})
	assert.Equal(t, map[string]string{"species": "Dog", "pet_name": "Rex"}, back)
}
