package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{
		Component: "document store",
		Missing:   []string{"COSMOS_DB_ENDPOINT", "COSMOS_DB_KEY"},
	}

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrStore)
	assert.True(t, IsConfigurationError(err))
	assert.True(t, IsConfigurationError(fmt.Errorf("create appointment: %w", err)))
	assert.Equal(t, "document store: configuration error: missing COSMOS_DB_ENDPOINT, COSMOS_DB_KEY", err.Error())

	cause := errors.New("bad connection string")
	wrapped := &ConfigurationError{Component: "object store", Err: cause}
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "bad connection string")
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &StoreError{Op: "get appointment", Err: cause}

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsConfigurationError(err))
	assert.Equal(t, "get appointment: store error: connection reset", err.Error())
}

func TestWrapStoreError(t *testing.T) {
	assert.NoError(t, WrapStoreError("op", nil))

	cause := errors.New("timeout")
	wrapped := WrapStoreError("list pets", cause)
	var storeErr *StoreError
	assert.ErrorAs(t, wrapped, &storeErr)
	assert.Equal(t, "list pets", storeErr.Op)

	// Already-classified errors are not wrapped twice.
	assert.Same(t, wrapped, WrapStoreError("outer", wrapped))

	cfgErr := &ConfigurationError{Component: "object store"}
	assert.Same(t, error(cfgErr), WrapStoreError("create pet", cfgErr))
}
