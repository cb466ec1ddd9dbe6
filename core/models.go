package core

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire layout of created_at and updated_at.
// Fixed-width so that lexical order matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// DateLayout is the layout of appointment_date (the partition key).
const DateLayout = "2006-01-02"

// TimeLayout is the layout of appointment_time.
const TimeLayout = "15:04"

// DefaultDurationMinutes is applied when a request omits duration_minutes.
const DefaultDurationMinutes = 30

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// Timestamp formats t in the wire layout, always in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Appointment is a clinic appointment. AppointmentDate is the partition key:
// point reads and deletes need it alongside ID.
type Appointment struct {
	ID              string            `json:"id"`
	PatientName     string            `json:"patient_name"`
	PatientEmail    string            `json:"patient_email"`
	PatientPhone    string            `json:"patient_phone"`
	DoctorName      string            `json:"doctor_name"`
	AppointmentDate string            `json:"appointment_date"`
	AppointmentTime string            `json:"appointment_time"`
	DurationMinutes int               `json:"duration_minutes"`
	AppointmentType string            `json:"appointment_type"`
	Status          AppointmentStatus `json:"status"`
	Notes           *string           `json:"notes"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// CreateAppointmentRequest carries the caller-supplied appointment fields.
type CreateAppointmentRequest struct {
	PatientName     string  `json:"patient_name"`
	PatientEmail    string  `json:"patient_email"`
	PatientPhone    string  `json:"patient_phone"`
	DoctorName      string  `json:"doctor_name"`
	AppointmentDate string  `json:"appointment_date"`
	AppointmentTime string  `json:"appointment_time"`
	DurationMinutes *int    `json:"duration_minutes"`
	AppointmentType string  `json:"appointment_type"`
	Notes           *string `json:"notes"`
}

// NewAppointment builds a scheduled Appointment from a request, assigning a
// fresh ID and both timestamps.
func NewAppointment(req *CreateAppointmentRequest, now time.Time) *Appointment {
	duration := DefaultDurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	ts := Timestamp(now)
	return &Appointment{
		ID:              NewID(),
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
		DoctorName:      req.DoctorName,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		DurationMinutes: duration,
		AppointmentType: req.AppointmentType,
		Status:          StatusScheduled,
		Notes:           req.Notes,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

// AppointmentPatch holds the fields an update may change. Nil fields are left
// untouched. ID and AppointmentDate are not patchable; a new partition key
// would mean a different document.
type AppointmentPatch struct {
	PatientName     *string            `json:"patient_name,omitempty"`
	PatientEmail    *string            `json:"patient_email,omitempty"`
	PatientPhone    *string            `json:"patient_phone,omitempty"`
	DoctorName      *string            `json:"doctor_name,omitempty"`
	AppointmentTime *string            `json:"appointment_time,omitempty"`
	DurationMinutes *int               `json:"duration_minutes,omitempty"`
	AppointmentType *string            `json:"appointment_type,omitempty"`
	Status          *AppointmentStatus `json:"status,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
}

// Apply merges the non-nil patch fields into a and stamps UpdatedAt.
func (p *AppointmentPatch) Apply(a *Appointment, now time.Time) {
	if p.PatientName != nil {
		a.PatientName = *p.PatientName
	}
	if p.PatientEmail != nil {
		a.PatientEmail = *p.PatientEmail
	}
	if p.PatientPhone != nil {
		a.PatientPhone = *p.PatientPhone
	}
	if p.DoctorName != nil {
		a.DoctorName = *p.DoctorName
	}
	if p.AppointmentTime != nil {
		a.AppointmentTime = *p.AppointmentTime
	}
	if p.DurationMinutes != nil {
		a.DurationMinutes = *p.DurationMinutes
	}
	if p.AppointmentType != nil {
		a.AppointmentType = *p.AppointmentType
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		notes := *p.Notes
		a.Notes = &notes
	}
	a.UpdatedAt = Timestamp(now)
}

// Pet is a pet record held in the object store, one object per ID.
type Pet struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Species      string  `json:"species"`
	Breed        string  `json:"breed"`
	Age          int     `json:"age"`
	Color        string  `json:"color"`
	Weight       float64 `json:"weight"`
	OwnerName    string  `json:"owner_name"`
	OwnerEmail   string  `json:"owner_email"`
	OwnerPhone   string  `json:"owner_phone"`
	MedicalNotes string  `json:"medical_notes"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// CreatePetRequest carries the caller-supplied pet fields.
// Age and Weight are pointers so that "absent" can be told from zero.
type CreatePetRequest struct {
	Name         string   `json:"name"`
	Species      string   `json:"species"`
	Breed        string   `json:"breed"`
	Age          *int     `json:"age"`
	Color        string   `json:"color"`
	Weight       *float64 `json:"weight"`
	OwnerName    string   `json:"owner_name"`
	OwnerEmail   string   `json:"owner_email"`
	OwnerPhone   string   `json:"owner_phone"`
	MedicalNotes string   `json:"medical_notes"`
}

// NewPet builds a Pet from a request, assigning a fresh ID and both timestamps.
func NewPet(req *CreatePetRequest, now time.Time) *Pet {
	ts := Timestamp(now)
	pet := &Pet{
		ID:           NewID(),
		Name:         req.Name,
		Species:      req.Species,
		Breed:        req.Breed,
		Color:        req.Color,
		OwnerName:    req.OwnerName,
		OwnerEmail:   req.OwnerEmail,
		OwnerPhone:   req.OwnerPhone,
		MedicalNotes: req.MedicalNotes,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if req.Age != nil {
		pet.Age = *req.Age
	}
	if req.Weight != nil {
		pet.Weight = *req.Weight
	}
	return pet
}

// Field returns the string form of a named Pet field, keyed by its JSON name.
// The second result is false for unknown names.
func (p *Pet) Field(name string) (string, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "species":
		return p.Species, true
	case "breed":
		return p.Breed, true
	case "age":
		return strconv.Itoa(p.Age), true
	case "color":
		return p.Color, true
	case "weight":
		return strconv.FormatFloat(p.Weight, 'f', -1, 64), true
	case "owner_name":
		return p.OwnerName, true
	case "owner_email":
		return p.OwnerEmail, true
	case "owner_phone":
		return p.OwnerPhone, true
	case "medical_notes":
		return p.MedicalNotes, true
	case "created_at":
		return p.CreatedAt, true
	case "updated_at":
		return p.UpdatedAt, true
	}
	return "", false
}
