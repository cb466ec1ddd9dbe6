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


package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	// Store operations translate it into a nil result or false; drivers return it.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a record with the same id already exists in its partition.
	ErrConflict = errors.New("record already exists")

	// ErrConfiguration indicates that a store is missing required settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrStore indicates any other backend failure.
	ErrStore = errors.New("store error")

	// ErrContainerExists is returned by drivers when an ensure-exists step
	// finds the database, collection or container already present.
	ErrContainerExists = errors.New("container already exists")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)

// ConfigurationError reports the settings a store needs but was not given.
// It is returned by the first operation that needs a client, and by every
// later one until the configuration is fixed.
type ConfigurationError struct {
	Component string
	Missing   []string
	Err       error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Component, ErrConfiguration)
	if len(e.Missing) > 0 {
		msg += ": missing " + strings.Join(e.Missing, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// StoreError wraps a backend failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrStore, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// WrapStoreError wraps err as a StoreError for op. Nil stays nil, and errors
// that already carry a configuration or store classification pass through.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return err
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsConfigurationError reports whether err is, or wraps, a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
