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


package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/poiesic/petclinic"
	"github.com/poiesic/petclinic/config"
	"github.com/poiesic/petclinic/httpapi"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "petclinic",
		Usage: "Appointment and pet record stores for a veterinary clinic",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file read before the process environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides BADGER_PATH)",
			},
			&cli.StringFlag{
				Name:  "document-backend",
				Usage: "Appointment store backend: badger or mongo (overrides DOCUMENT_BACKEND)",
			},
			&cli.StringFlag{
				Name:  "object-backend",
				Usage: "Pet store backend: badger or azblob (overrides OBJECT_BACKEND)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Listen port (overrides PORT)",
					},
				},
			},
			{
				Name:   "provision",
				Usage:  "Create the database, collection and container if absent",
				Action: provisionCommand,
			},
			{
				Name:  "appointments",
				Usage: "Inspect and remove appointments",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List appointments, newest first, or one date ordered by time",
						Action: listAppointmentsCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Usage: "Maximum number of appointments", Value: 100},
							&cli.IntFlag{Name: "offset", Usage: "Number of appointments to skip"},
							&cli.StringFlag{Name: "date", Usage: "Only this date (YYYY-MM-DD)"},
						},
					},
					{
						Name:      "get",
						Usage:     "Show one appointment",
						ArgsUsage: "<id>",
						Action:    getAppointmentCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "date", Usage: "Appointment date (YYYY-MM-DD)", Required: true},
						},
					},
					{
						Name:      "delete",
						Usage:     "Delete an appointment by id",
						ArgsUsage: "<id>",
						Action:    deleteAppointmentCommand,
					},
				},
			},
			{
				Name:  "pets",
				Usage: "Inspect and remove pets",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List pets, newest first",
						Action: listPetsCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Usage: "Maximum number of pets (0 for all)", Value: 100},
							&cli.StringFlag{Name: "field", Usage: "Filter field, e.g. species, breed, name, owner_name, color"},
							&cli.StringFlag{Name: "value", Usage: "Filter value, compared case-insensitively"},
						},
					},
					{
						Name:      "get",
						Usage:     "Show one pet",
						ArgsUsage: "<id>",
						Action:    getPetCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete a pet by id",
						ArgsUsage: "<id>",
						Action:    deletePetCommand,
					},
				},
			},
		},
	}
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.FromEnv(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.BadgerPath = c.String("db")
	}
	if c.IsSet("document-backend") {
		cfg.DocumentBackend = c.String("document-backend")
	}
	if c.IsSet("object-backend") {
		cfg.ObjectBackend = c.String("object-backend")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openClinic(c *cli.Context) (*petclinic.Clinic, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	clinic, err := petclinic.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stores: %w", err)
	}
	return clinic, cfg, nil
}

func serveCommand(c *cli.Context) error {
	clinic, cfg, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	server, err := httpapi.NewServer(clinic.Appointments(), clinic.Pets())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Document backend: %s\n", cfg.DocumentBackend)
	fmt.Fprintf(os.Stderr, "Object backend: %s\n", cfg.ObjectBackend)
	if cfg.UsesBadger() {
		path := cfg.BadgerPath
		if path == "" {
			path = "(in memory)"
		}
		fmt.Fprintf(os.Stderr, "Database: %s\n", path)
	}
	fmt.Fprintln(os.Stderr)

	return server.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.Port))
}

func provisionCommand(c *cli.Context) error {
	clinic, _, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	if err := clinic.Provision(c.Context); err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "Stores provisioned")
	return nil
}

func listAppointmentsCommand(c *cli.Context) error {
	clinic, _, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	store := clinic.Appointments()
	if date := c.String("date"); date != "" {
		appointments, err := store.ListAppointmentsByDate(c.Context, date)
		if err != nil {
			return err
		}
		return printJSON(c, appointments)
	}
	appointments, err := store.ListAppointments(c.Context, c.Int("limit"), c.Int("offset"))
	if err != nil {
		return err
	}
	return printJSON(c, appointments)
}

func getAppointmentCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	clinic, _, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	appointment, err := clinic.Appointments().GetAppointment(c.Context, id, c.String("date"))
	if err != nil {
		return err
	}
	if appointment == nil {
		return fmt.Errorf("appointment %s not found for date %s", id, c.String("date"))
	}
	return printJSON(c, appointment)
}

func deleteAppointmentCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	clinic, _, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	store := clinic.Appointments()
	appointment, err := store.FindAppointment(c.Context, id)
	if err != nil {
		return err
	}
	if appointment == nil {
		return fmt.Errorf("appointment %s not found", id)
	}
	deleted, err := store.DeleteAppointment(c.Context, id, appointment.AppointmentDate)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("appointment %s not found", id)
	}
	fmt.Fprintf(c.App.Writer, "Deleted appointment %s (%s)\n", id, appointment.AppointmentDate)
	return nil
}

func listPetsCommand(c *cli.Context) error {
	field, value := c.String("field"), c.String("value")
	if (field == "") != (value == "") {
		return fmt.Errorf("--field and --value must be given together")
	}
	clinic, _, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	store := clinic.Pets()
	if field != "" {
		pets, err := store.ListPetsByField(c.Context, field, value)
		if err != nil {
			return err
		}
		return printJSON(c, pets)
	}
	pets, err := store.ListPets(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(c, pets)
}

func getPetCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	clinic, _, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	pet, err := clinic.Pets().GetPet(c.Context, id)
	if err != nil {
		return err
	}
	if pet == nil {
		return fmt.Errorf("pet %s not found", id)
	}
	return printJSON(c, pet)
}

func deletePetCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	clinic, _, err := openClinic(c)
	if err != nil {
		return err
	}
	defer clinic.Close()

	deleted, err := clinic.Pets().DeletePet(c.Context, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("pet %s not found", id)
	}
	fmt.Fprintf(c.App.Writer, "Deleted pet %s\n", id)
	return nil
}

func idArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one id argument")
	}
	return c.Args().First(), nil
}

func printJSON(c *cli.Context, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
