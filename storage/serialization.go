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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/petclinic/core"
)

// Pet object metadata keys. Values mirror the body fields they are named after.
const (
	MetaPetName   = "pet_name"
	MetaSpecies   = "species"
	MetaBreed     = "breed"
	MetaOwnerName = "owner_name"
	MetaCreatedAt = "created_at"
)

const petObjectSuffix = ".json"

// MarshalAppointment serializes an Appointment to its JSON document form.
func MarshalAppointment(a *core.Appointment) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalAppointment deserializes an Appointment document. Unknown fields,
// such as backend system properties, are ignored.
func UnmarshalAppointment(data []byte) (*core.Appointment, error) {
	var a core.Appointment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &a, nil
}

// MarshalPet serializes a Pet to its JSON object body.
func MarshalPet(p *core.Pet) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalPet deserializes a Pet object body.
func UnmarshalPet(data []byte) (*core.Pet, error) {
	var p core.Pet
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &p, nil
}

// PetMetadata returns the object metadata written alongside a pet body.
// Object metadata travels as HTTP headers, so values that are not printable
// ASCII are left out; filters fall back to the body for a missing key.
func PetMetadata(p *core.Pet) map[string]string {
	meta := make(map[string]string, 5)
	for key, value := range map[string]string{
		MetaPetName:   p.Name,
		MetaSpecies:   p.Species,
		MetaBreed:     p.Breed,
		MetaOwnerName: p.OwnerName,
		MetaCreatedAt: p.CreatedAt,
	} {
		if headerSafe(value) {
			meta[key] = value
		}
	}
	return meta
}

func headerSafe(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// MetadataKey maps a pet field name to the metadata key that mirrors it.
// The second result is false for fields that are never in metadata.
func MetadataKey(field string) (string, bool) {
	switch field {
	case "name":
		return MetaPetName, true
	case "species":
		return MetaSpecies, true
	case "breed":
		return MetaBreed, true
	case "owner_name":
		return MetaOwnerName, true
	case "created_at":
		return MetaCreatedAt, true
	}
	return "", false
}

// PetObjectName returns the object name a pet is stored under.
func PetObjectName(id string) string {
	return id + petObjectSuffix
}

// PetIDFromObjectName reverses PetObjectName. The second result is false for
// objects that do not follow the pet naming scheme.
func PetIDFromObjectName(name string) (string, bool) {
	id, ok := strings.CutSuffix(name, petObjectSuffix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
