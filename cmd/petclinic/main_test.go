package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/petclinic"
	"github.com/poiesic/petclinic/config"
	"github.com/poiesic/petclinic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// run executes the CLI against a database at dir and returns its stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	full := append([]string{"petclinic",
		"--log-level", "error",
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"--db", dir,
	}, args...)
	err := app.Run(full)
	return out.String(), err
}

// seed writes one appointment and one pet into the database at dir.
func seed(t *testing.T, dir string) (*core.Appointment, *core.Pet) {
	t.Helper()
	clinic, err := petclinic.Open(config.NewConfig(config.WithBadgerPath(dir)))
	require.NoError(t, err)
	defer clinic.Close()

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	appt, err := clinic.Appointments().CreateAppointment(ctx, core.NewAppointment(&core.CreateAppointmentRequest{
		PatientName:     "Rex",
		PatientEmail:    "sam@example.com",
		PatientPhone:    "5550001111",
		DoctorName:      "Dr. Lee",
		AppointmentDate: "2024-03-15",
		AppointmentTime: "14:30",
		AppointmentType: "checkup",
	}, now))
	require.NoError(t, err)

	age := 3
	pet, err := clinic.Pets().CreatePet(ctx, core.NewPet(&core.CreatePetRequest{
		Name:       "Rex",
		Species:    "Dog",
		Age:        &age,
		OwnerName:  "Sam",
		OwnerEmail: "sam@example.com",
		OwnerPhone: "5550001111",
	}, now))
	require.NoError(t, err)
	return appt, pet
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	for _, level := range []string{"debug", "info", "WARN", "error"} {
		app := newApp()
		app.Commands = nil
		app.Action = func(*cli.Context) error { return nil }
		require.NoError(t, app.Run([]string{"petclinic", "--log-level", level}), level)
	}

	app := newApp()
	err := app.Run([]string{"petclinic", "--log-level", "verbose", "provision"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestProvisionCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	out, err := run(t, dir, "provision")
	require.NoError(t, err)
	assert.Contains(t, out, "Stores provisioned")

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestInvalidBackend(t *testing.T) {
	_, err := run(t, t.TempDir(), "--document-backend", "cosmos", "provision")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document backend")
}

func TestProvisionWithoutCredentials(t *testing.T) {
	_, err := run(t, t.TempDir(), "--object-backend", "azblob", "provision")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestAppointmentCommands(t *testing.T) {
	dir := t.TempDir()
	appt, _ := seed(t, dir)

	out, err := run(t, dir, "appointments", "list")
	require.NoError(t, err)
	var listed []*core.Appointment
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, appt.ID, listed[0].ID)

	out, err = run(t, dir, "appointments", "list", "--date", "2024-03-16")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	out, err = run(t, dir, "appointments", "get", "--date", "2024-03-15", appt.ID)
	require.NoError(t, err)
	var got core.Appointment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, *appt, got)

	_, err = run(t, dir, "appointments", "get", appt.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")

	_, err = run(t, dir, "appointments", "get", "--date", "2024-03-16", appt.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out, err = run(t, dir, "appointments", "delete", appt.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted appointment "+appt.ID+" (2024-03-15)")

	_, err = run(t, dir, "appointments", "delete", appt.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = run(t, dir, "appointments", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id argument")
}

func TestPetCommands(t *testing.T) {
	dir := t.TempDir()
	_, pet := seed(t, dir)

	out, err := run(t, dir, "pets", "list")
	require.NoError(t, err)
	var listed []*core.Pet
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, pet.ID, listed[0].ID)

	out, err = run(t, dir, "pets", "list", "--field", "species", "--value", "cat")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = run(t, dir, "pets", "list", "--field", "species")
	require.Error(t, err)

	out, err = run(t, dir, "pets", "get", pet.ID)
	require.NoError(t, err)
	var got core.Pet
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, *pet, got)

	out, err = run(t, dir, "pets", "delete", pet.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted pet "+pet.ID)

	_, err = run(t, dir, "pets", "get", pet.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
