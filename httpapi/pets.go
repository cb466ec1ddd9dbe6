package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/petclinic/core"
)

// petFilters are the query parameters accepted by GET /api/pets, in order of
// precedence. Only the first one present applies.
var petFilters = []string{"species", "breed", "name", "owner_name", "color"}

func (s *Server) createPet(c *gin.Context) {
	var req core.CreatePetRequest
	if !bindBody(c, &req) {
		return
	}
	if err := core.ValidatePetRequest(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.pets.CreatePet(c.Request.Context(), core.NewPet(&req, s.clock()))
	if err != nil {
		s.storeFailure(c, err, blobBackend, "Failed to create pet. Please try again.")
		return
	}
	s.logger.Info("created pet", "id", created.ID)
	ok(c, http.StatusCreated, "Pet created successfully", created)
}

// petLimit clamps ?limit= into 1..1000. Anything unusable means the default.
func petLimit(c *gin.Context) int {
	v := c.Query("limit")
	if v == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(v)
	switch {
	case err != nil, n < 1:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}

func (s *Server) listPets(c *gin.Context) {
	ctx := c.Request.Context()

	for _, field := range petFilters {
		value := c.Query(field)
		if value == "" {
			continue
		}
		pets, err := s.pets.ListPetsByField(ctx, field, value)
		if err != nil {
			s.storeFailure(c, err, blobBackend, "Failed to retrieve pets. Please try again.")
			return
		}
		okList(c, fmt.Sprintf("Retrieved %d pets of %s '%s' successfully", len(pets), field, value), pets)
		return
	}

	pets, err := s.pets.ListPets(ctx, petLimit(c))
	if err != nil {
		s.storeFailure(c, err, blobBackend, "Failed to retrieve pets. Please try again.")
		return
	}
	okList(c, fmt.Sprintf("Retrieved %d pets successfully", len(pets)), pets)
}

func (s *Server) getPet(c *gin.Context) {
	id := c.Param("id")
	pet, err := s.pets.GetPet(c.Request.Context(), id)
	if err != nil {
		s.storeFailure(c, err, blobBackend, "Failed to retrieve pet. Please try again.")
		return
	}
	if pet == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("Pet with ID %s not found", id))
		return
	}
	ok(c, http.StatusOK, "Pet retrieved successfully", pet)
}

func (s *Server) deletePet(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	pet, err := s.pets.GetPet(ctx, id)
	if err != nil {
		s.storeFailure(c, err, blobBackend, "Failed to delete pet. Please try again.")
		return
	}
	if pet == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("Pet with ID %s not found", id))
		return
	}

	deleted, err := s.pets.DeletePet(ctx, id)
	if err != nil {
		s.storeFailure(c, err, blobBackend, "Failed to delete pet. Please try again.")
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, fmt.Sprintf("Pet with ID %s not found", id))
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("Pet with ID %s deleted successfully", id), gin.H{
		"id":   id,
		"name": pet.Name,
	})
}
