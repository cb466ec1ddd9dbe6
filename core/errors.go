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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidAppointment indicates an Appointment failed validation.
	ErrInvalidAppointment = errors.New("invalid appointment")

	// ErrInvalidPet indicates a Pet failed validation.
	ErrInvalidPet = errors.New("invalid pet")

	// ErrMissingFields indicates one or more required fields are empty.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidDate indicates a date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date, use YYYY-MM-DD")

	// ErrInvalidTime indicates a time is not in 24-hour HH:MM form.
	ErrInvalidTime = errors.New("invalid time, use HH:MM")

	// ErrInvalidDuration indicates duration_minutes is outside 15..240.
	ErrInvalidDuration = errors.New("duration must be between 15 and 240 minutes")

	// ErrInvalidStatus indicates an unknown AppointmentStatus value.
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrFieldTooLong indicates a string field exceeds its maximum length.
	ErrFieldTooLong = errors.New("field too long")

	// ErrFieldTooShort indicates a string field is below its minimum length.
	ErrFieldTooShort = errors.New("field too short")

	// ErrNegativeNumber indicates age or weight is negative.
	ErrNegativeNumber = errors.New("value must be a positive number")

	// ErrInvalidEmail indicates an email address without an '@'.
	ErrInvalidEmail = errors.New("invalid email address")
)
