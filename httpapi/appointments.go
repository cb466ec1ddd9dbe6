package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/petclinic/core"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (s *Server) createAppointment(c *gin.Context) {
	var req core.CreateAppointmentRequest
	if !bindBody(c, &req) {
		return
	}
	if err := core.ValidateCreateAppointment(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.appointments.CreateAppointment(c.Request.Context(), core.NewAppointment(&req, s.clock()))
	if err != nil {
		s.storeFailure(c, err, databaseBackend, "Failed to create appointment. Please try again.")
		return
	}
	s.logger.Info("created appointment", "id", created.ID, "date", created.AppointmentDate)
	ok(c, http.StatusCreated, "Appointment created successfully", created)
}

// listAppointments serves one date partition when ?date= is given and a
// newest-first page across all dates otherwise.
func (s *Server) listAppointments(c *gin.Context) {
	limit, offset := defaultListLimit, 0
	var err error
	if v, present := c.GetQuery("limit"); present {
		if limit, err = strconv.Atoi(v); err != nil {
			fail(c, http.StatusBadRequest, "Invalid query parameters. Limit and offset must be integers.")
			return
		}
	}
	if v, present := c.GetQuery("offset"); present {
		if offset, err = strconv.Atoi(v); err != nil {
			fail(c, http.StatusBadRequest, "Invalid query parameters. Limit and offset must be integers.")
			return
		}
	}
	if limit < 1 || limit > maxListLimit {
		fail(c, http.StatusBadRequest, "Limit must be between 1 and 1000")
		return
	}
	if offset < 0 {
		fail(c, http.StatusBadRequest, "Offset must be non-negative")
		return
	}

	ctx := c.Request.Context()
	var appointments []*core.Appointment
	if date := c.Query("date"); date != "" {
		if core.ValidateDate(date) != nil {
			fail(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
			return
		}
		appointments, err = s.appointments.ListAppointmentsByDate(ctx, date)
	} else {
		appointments, err = s.appointments.ListAppointments(ctx, limit, offset)
	}
	if err != nil {
		s.storeFailure(c, err, databaseBackend, "Failed to retrieve appointments. Please try again.")
		return
	}
	okList(c, fmt.Sprintf("Retrieved %d appointments successfully", len(appointments)), appointments)
}

// partitionParam reads the required ?date= partition key.
func partitionParam(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		fail(c, http.StatusBadRequest, "Appointment date query parameter is required (format: YYYY-MM-DD)")
		return "", false
	}
	if core.ValidateDate(date) != nil {
		fail(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return "", false
	}
	return date, true
}

func (s *Server) getAppointment(c *gin.Context) {
	id := c.Param("id")
	date, valid := partitionParam(c)
	if !valid {
		return
	}

	appointment, err := s.appointments.GetAppointment(c.Request.Context(), id, date)
	if err != nil {
		s.storeFailure(c, err, databaseBackend, "Failed to retrieve appointment. Please try again.")
		return
	}
	if appointment == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("Appointment with ID %s not found for date %s", id, date))
		return
	}
	ok(c, http.StatusOK, "Appointment retrieved successfully", appointment)
}

// appointmentUpdate is a PATCH body. The identity fields are only decoded
// so that attempts to change them can be rejected.
type appointmentUpdate struct {
	core.AppointmentPatch
	ID              *string `json:"id"`
	AppointmentDate *string `json:"appointment_date"`
}

func (s *Server) updateAppointment(c *gin.Context) {
	id := c.Param("id")
	date, valid := partitionParam(c)
	if !valid {
		return
	}
	var update appointmentUpdate
	if !bindBody(c, &update) {
		return
	}
	if update.ID != nil || update.AppointmentDate != nil {
		fail(c, http.StatusBadRequest, "Appointment id and appointment_date cannot be changed")
		return
	}
	if err := core.ValidateAppointmentPatch(&update.AppointmentPatch); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.appointments.UpdateAppointment(c.Request.Context(), id, date, &update.AppointmentPatch)
	if err != nil {
		s.storeFailure(c, err, databaseBackend, "Failed to update appointment. Please try again.")
		return
	}
	ok(c, http.StatusOK, "Appointment updated successfully", updated)
}

// deleteAppointment finds the partition of id with a cross-partition lookup,
// then deletes within that partition.
func (s *Server) deleteAppointment(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	appointment, err := s.appointments.FindAppointment(ctx, id)
	if err != nil {
		s.storeFailure(c, err, databaseBackend, "Failed to delete appointment. Please try again.")
		return
	}
	if appointment == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("Appointment with ID %s not found", id))
		return
	}
	if appointment.AppointmentDate == "" {
		s.logger.Error("appointment missing partition key", "id", id)
		fail(c, http.StatusInternalServerError, "Invalid appointment data")
		return
	}

	deleted, err := s.appointments.DeleteAppointment(ctx, id, appointment.AppointmentDate)
	if err != nil {
		s.storeFailure(c, err, databaseBackend, "Failed to delete appointment. Please try again.")
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, fmt.Sprintf("Appointment with ID %s not found", id))
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("Appointment with ID %s deleted successfully", id), gin.H{
		"id":               id,
		"appointment_date": appointment.AppointmentDate,
	})
}
