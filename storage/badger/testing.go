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


package badger

import (
	"github.com/poiesic/petclinic/storage/document"
	"github.com/poiesic/petclinic/storage/object"
)

// NewMemoryStores creates in-memory appointment and pet stores for testing.
// Returns appointments, pets, backend, and error.
// Caller must close both stores and then the backend when done.
func NewMemoryStores() (*document.Store, *object.Store, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	appointments, err := document.NewStore(document.DefaultConfig(), NewDocumentDriver(backend))
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	pets, err := object.NewStore(object.DefaultConfig(), NewObjectDriver(backend))
	if err != nil {
		appointments.Close()
		backend.Close()
		return nil, nil, nil, err
	}

	return appointments, pets, backend, nil
}
