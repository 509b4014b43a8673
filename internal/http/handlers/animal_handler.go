// Animal catalog HTTP handlers.
//
// This file exposes the catalog endpoints: cached listing and detail,
// filtered search, the adopted-animals report, admin CRUD, and image upload
// to object storage. Detail views also record the caller's browsing history.
package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/http/middleware"
	"github.com/barinakhq/shelter-backend/internal/repo"
	"github.com/barinakhq/shelter-backend/internal/services"
	"github.com/barinakhq/shelter-backend/internal/utils"
)

// maxImageBytes caps image uploads at 8 MiB.
const maxImageBytes = 8 << 20

// AnimalRequest is the JSON payload for creating or updating an animal.
type AnimalRequest struct {
	Name        string `json:"name" binding:"required" example:"Luna"`
	Species     string `json:"species" binding:"required" example:"cat"`
	Age         int    `json:"age" binding:"gte=0" example:"3"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageurl,omitempty"`
	Adopted     bool   `json:"adopted,omitempty"`
}

// ListAnimals godoc
// @ID          listAnimals
// @Summary     List all animals
// @Description Returns the full catalog, served from cache when fresh.
// @Tags        Animals
// @Produce     json
// @Success     200 {array} domain.Animal
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /animals [get]
func (h *Handlers) ListAnimals(c *gin.Context) {
	out, err := h.animalSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// GetAnimal godoc
// @ID          getAnimal
// @Summary     Get one animal
// @Description Returns a single animal and records the view in the caller's
// @Description browsing history.
// @Tags        Animals
// @Produce     json
// @Param       id path int true "Animal ID"
// @Success     200 {object} domain.Animal
// @Failure     404 {object} handlers.ErrorResponse "Animal not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /animals/{id} [get]
func (h *Handlers) GetAnimal(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	a, err := h.animalSvc.Get(c.Request.Context(), id)
	if err != nil {
		if err == services.ErrAnimalNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "animal not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// Browsing history is a side effect of the detail view; failures are
	// irrelevant to the response.
	if uid := middleware.UserID(c); uid != 0 && h.viewSvc != nil {
		_, _ = h.viewSvc.Record(c.Request.Context(), uid, id)
	}

	ok(c, http.StatusOK, a)
}

// SearchAnimals godoc
// @ID          searchAnimals
// @Summary     Search animals
// @Description Filtered, paginated catalog search. Supports q (free text),
// @Description species, adopted (true/false), page, and page_size.
// @Tags        Animals
// @Produce     json
// @Success     200 {object} services.SearchPage
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /animals/search [get]
func (h *Handlers) SearchAnimals(c *gin.Context) {
	f := repo.AnimalFilter{
		Query:   c.Query("q"),
		Species: c.Query("species"),
	}
	if v := c.Query("adopted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "adopted must be true or false")
			return
		}
		f.Adopted = &b
	}
	page := utils.AtoiDefault(c.Query("page"), 1)
	pageSize := utils.AtoiDefault(c.Query("page_size"), 20)

	out, err := h.animalSvc.Search(c.Request.Context(), f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// ListAdoptedAnimals godoc
// @ID          listAdoptedAnimals
// @Summary     List adopted animals with their adopters
// @Tags        Animals
// @Produce     json
// @Success     200 {array} repo.AdoptedAnimal
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /animals/adopted [get]
func (h *Handlers) ListAdoptedAnimals(c *gin.Context) {
	out, err := h.animalSvc.ListAdopted(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// CreateAnimal godoc
// @ID          createAnimal
// @Summary     Create an animal (admin)
// @Tags        Animals
// @Accept      json
// @Produce     json
// @Param       body body handlers.AnimalRequest true "Animal payload"
// @Success     201 {object} domain.Animal
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /animals [post]
func (h *Handlers) CreateAnimal(c *gin.Context) {
	var req AnimalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and species are required")
		return
	}

	a, err := h.animalSvc.Create(c.Request.Context(), &domain.Animal{
		Name:        req.Name,
		Species:     req.Species,
		Age:         req.Age,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Adopted:     req.Adopted,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, a)
}

// UpdateAnimal godoc
// @ID          updateAnimal
// @Summary     Update an animal (admin)
// @Tags        Animals
// @Accept      json
// @Produce     json
// @Param       id   path int true "Animal ID"
// @Param       body body handlers.AnimalRequest true "Animal payload"
// @Success     200 {object} domain.Animal
// @Failure     404 {object} handlers.ErrorResponse "Animal not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /animals/{id} [put]
func (h *Handlers) UpdateAnimal(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	var req AnimalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and species are required")
		return
	}

	a, err := h.animalSvc.Update(c.Request.Context(), id, &domain.Animal{
		Name:        req.Name,
		Species:     req.Species,
		Age:         req.Age,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Adopted:     req.Adopted,
	})
	if err != nil {
		if err == services.ErrAnimalNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "animal not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, a)
}

// DeleteAnimal godoc
// @ID          deleteAnimal
// @Summary     Delete an animal (admin)
// @Tags        Animals
// @Produce     json
// @Param       id path int true "Animal ID"
// @Success     204 {string} string "No Content"
// @Failure     404 {object} handlers.ErrorResponse "Animal not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /animals/{id} [delete]
func (h *Handlers) DeleteAnimal(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	if err := h.animalSvc.Delete(c.Request.Context(), id); err != nil {
		if err == services.ErrAnimalNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "animal not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// UploadAnimalImage godoc
// @ID          uploadAnimalImage
// @Summary     Upload an animal image (admin)
// @Description Stores the multipart "image" file in object storage and
// @Description returns its public URL for use in the animal record.
// @Tags        Animals
// @Accept      multipart/form-data
// @Produce     json
// @Success     201 {object} map[string]string "{\"url\": \"...\"}"
// @Failure     400 {object} handlers.ErrorResponse "Missing or oversized file"
// @Failure     503 {object} handlers.ErrorResponse "Object storage unavailable"
// @Router      /animals/upload [post]
func (h *Handlers) UploadAnimalImage(c *gin.Context) {
	if h.storage == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "object storage is not configured")
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"image\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxImageBytes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image exceeds the 8 MiB limit")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	url, err := h.storage.UploadImage(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, gin.H{"url": url})
}
