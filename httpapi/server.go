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


// Package httpapi exposes the appointment and pet stores over HTTP.
//
// Every response carries the envelope {success, message, data, count}.
// Malformed input is answered with 400, missing records with 404, and store
// faults with 500. A store that lacks credentials answers 500 with a message
// naming the misconfigured medium.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/petclinic/storage"
)

// ErrStoreRequired is returned by NewServer when a store is nil.
var ErrStoreRequired = errors.New("httpapi: appointment and pet stores are required")

const shutdownTimeout = 10 * time.Second

// Server routes API requests to the stores.
type Server struct {
	appointments storage.AppointmentStore
	pets         storage.PetStore
	logger       *slog.Logger
	clock        func() time.Time
	engine       *gin.Engine
}

// Option is a functional option for configuring a Server.
type Option func(*Server) error

// WithLogger sets a custom logger for the server.
// If not provided, uses slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "httpapi")
		return nil
	}
}

// WithClock sets the time source used to stamp new records.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) error {
		if clock != nil {
			s.clock = clock
		}
		return nil
	}
}

// NewServer creates a Server over the given stores.
func NewServer(appointments storage.AppointmentStore, pets storage.PetStore, opts ...Option) (*Server, error) {
	if appointments == nil || pets == nil {
		return nil, ErrStoreRequired
	}
	s := &Server{
		appointments: appointments,
		pets:         pets,
		logger:       slog.Default().With("component", "httpapi"),
		clock:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware(), loggingMiddleware(s.logger))

	api := r.Group("/api")
	api.GET("/health", s.health)

	appointments := api.Group("/appointments")
	{
		appointments.POST("", s.createAppointment)
		appointments.GET("", s.listAppointments)
		appointments.GET("/:id", s.getAppointment)
		appointments.PATCH("/:id", s.updateAppointment)
		appointments.DELETE("/:id", s.deleteAppointment)
	}

	pets := api.Group("/pets")
	{
		pets.POST("", s.createPet)
		pets.GET("", s.listPets)
		pets.GET("/:id", s.getPet)
		pets.DELETE("/:id", s.deletePet)
	}

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Route not found")
	})
	return r
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "petclinic API is running",
		"status":    "SUCCESS",
		"method":    c.Request.Method,
		"timestamp": s.clock().UTC().Format(time.RFC3339),
	})
}
