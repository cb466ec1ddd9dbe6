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

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidateCreateAppointment validates an appointment creation request.
//
// Validation rules:
//   - patient_name, patient_email, patient_phone, doctor_name, appointment_date,
//     appointment_time and appointment_type must not be empty
//   - appointment_date must be YYYY-MM-DD, appointment_time must be HH:MM
//   - duration_minutes, when present, must be within 15..240
//   - string lengths follow the clinic form limits (notes at most 500)
func ValidateCreateAppointment(req *CreateAppointmentRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidAppointment)
	}

	missing := missingFields(
		"patient_name", req.PatientName,
		"patient_email", req.PatientEmail,
		"patient_phone", req.PatientPhone,
		"doctor_name", req.DoctorName,
		"appointment_date", req.AppointmentDate,
		"appointment_time", req.AppointmentTime,
		"appointment_type", req.AppointmentType,
	)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %w: %s", ErrInvalidAppointment, ErrMissingFields, strings.Join(missing, ", "))
	}

	if err := ValidateDate(req.AppointmentDate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
	}
	if err := ValidateTime(req.AppointmentTime); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
	}
	if req.DurationMinutes != nil {
		if err := ValidateDuration(*req.DurationMinutes); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}

	checks := []struct {
		field    string
		value    string
		min, max int
	}{
		{"patient_name", req.PatientName, 2, 100},
		{"patient_email", req.PatientEmail, 5, 100},
		{"patient_phone", req.PatientPhone, 10, 15},
		{"doctor_name", req.DoctorName, 2, 100},
		{"appointment_type", req.AppointmentType, 3, 50},
	}
	for _, c := range checks {
		if err := checkLength(c.field, c.value, c.min, c.max); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}
	if req.Notes != nil {
		if err := checkLength("notes", *req.Notes, 0, 500); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}
	return nil
}

// ValidateAppointment validates a stored appointment record. The store relies on
// ID and the partition key being present and well formed.
func ValidateAppointment(a *Appointment) error {
	if a == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidAppointment)
	}
	if a.ID == "" {
		return fmt.Errorf("%w: %w: id", ErrInvalidAppointment, ErrMissingFields)
	}
	if err := ValidateDate(a.AppointmentDate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
	}
	if a.Status != "" {
		if err := ValidateStatus(a.Status); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}
	return nil
}

// ValidateAppointmentPatch validates the fields present in a patch.
func ValidateAppointmentPatch(p *AppointmentPatch) error {
	if p == nil {
		return fmt.Errorf("%w: patch is nil", ErrInvalidAppointment)
	}
	if p.AppointmentTime != nil {
		if err := ValidateTime(*p.AppointmentTime); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}
	if p.DurationMinutes != nil {
		if err := ValidateDuration(*p.DurationMinutes); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}
	if p.Status != nil {
		if err := ValidateStatus(*p.Status); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}
	if p.Notes != nil {
		if err := checkLength("notes", *p.Notes, 0, 500); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAppointment, err)
		}
	}
	return nil
}

// ValidatePetRequest validates a pet creation request. Type errors are
// collected rather than reported one at a time.
//
// Validation rules:
//   - name, species, age, owner_name, owner_email and owner_phone are required
//   - age and weight must not be negative
//   - owner_email must contain '@'
//   - name is at most 100 characters
func ValidatePetRequest(req *CreatePetRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidPet)
	}

	missing := missingFields(
		"name", req.Name,
		"species", req.Species,
		"owner_name", req.OwnerName,
		"owner_email", req.OwnerEmail,
		"owner_phone", req.OwnerPhone,
	)
	if req.Age == nil {
		missing = append(missing, "age")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %w: %s", ErrInvalidPet, ErrMissingFields, strings.Join(missing, ", "))
	}

	var errs []error
	if *req.Age < 0 {
		errs = append(errs, fmt.Errorf("age: %w", ErrNegativeNumber))
	}
	if req.Weight != nil && *req.Weight < 0 {
		errs = append(errs, fmt.Errorf("weight: %w", ErrNegativeNumber))
	}
	if !strings.Contains(req.OwnerEmail, "@") {
		errs = append(errs, fmt.Errorf("owner_email: %w", ErrInvalidEmail))
	}
	if err := checkLength("name", req.Name, 0, 100); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPet, errors.Join(errs...))
	}
	return nil
}

// ValidatePet validates a stored pet record.
func ValidatePet(p *Pet) error {
	if p == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidPet)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: %w: id", ErrInvalidPet, ErrMissingFields)
	}
	if p.Age < 0 {
		return fmt.Errorf("%w: age: %w", ErrInvalidPet, ErrNegativeNumber)
	}
	if p.Weight < 0 {
		return fmt.Errorf("%w: weight: %w", ErrInvalidPet, ErrNegativeNumber)
	}
	return nil
}

// ValidateDate checks that s is a calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return nil
}

// ValidateTime checks that s is a 24-hour HH:MM time.
func ValidateTime(s string) error {
	if _, err := time.Parse(TimeLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return nil
}

// ValidateDuration checks that minutes is within 15..240.
func ValidateDuration(minutes int) error {
	if minutes < 15 || minutes > 240 {
		return fmt.Errorf("%w: value %d", ErrInvalidDuration, minutes)
	}
	return nil
}

// ValidateStatus checks that status is one of the known lifecycle states.
func ValidateStatus(status AppointmentStatus) error {
	switch status {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// missingFields takes name/value pairs and returns the names whose value is
// blank.
func missingFields(pairs ...string) []string {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	return missing
}

func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		return fmt.Errorf("%s: %w (minimum %d)", field, ErrFieldTooShort, min)
	}
	if n > max {
		return fmt.Errorf("%s: %w (maximum %d)", field, ErrFieldTooLong, max)
	}
	return nil
}
