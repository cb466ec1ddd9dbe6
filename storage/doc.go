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


// Package storage provides the storage abstraction layer for petclinic.
//
// This package defines the store contracts that decouple persistence from the
// HTTP and CLI surfaces, along with the shared error taxonomy and the JSON
// record encoding.
//
// # Architecture
//
// Two stores sit behind these contracts:
//
//   - AppointmentStore: a partitioned document collection (storage/document),
//     partitioned by appointment_date
//   - PetStore: a flat object container holding one <id>.json object per pet
//     (storage/object)
//
// Each store talks to its backend through a small driver interface. Drivers
// exist for BadgerDB (storage/badger, local and in-memory), MongoDB
// (storage/mongodb) and Azure Blob Storage (storage/blobstore).
//
// # Lazy Initialization
//
// Constructing a store performs no I/O. The client and the ensure-exists steps
// for the database, collection or container run on the first operation. A
// store with missing credentials constructs fine and reports a
// ConfigurationError from that first operation.
//
// # Errors
//
// Point reads and deletes report absence as a nil record or false, never as an
// error. Other failures are classified:
//
//	if storage.IsConfigurationError(err) {
//	    // settings are missing or unusable
//	}
//	if errors.Is(err, storage.ErrStore) {
//	    // backend failure
//	}
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent access
// from multiple goroutines. Concurrent updates to the same record are
// last-writer-wins.
package storage
