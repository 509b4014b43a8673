// Adoption request HTTP handlers.
//
// This file exposes the REST endpoints for the adoption workflow:
//   - POST   /adopt                    (file a request)
//   - GET    /adoption-requests        (admin: list all)
//   - GET    /my-adoption-requests     (requester: list own)
//   - PUT    /adoption-requests/:id    (admin: approve/reject)
//   - DELETE /adoption-requests/:id    (requester: cancel own pending)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barinakhq/shelter-backend/internal/http/middleware"
	"github.com/barinakhq/shelter-backend/internal/services"
)

// CreateAdoptionRequest is the JSON payload for filing an adoption request.
type CreateAdoptionRequest struct {
	// AnimalID identifies the animal to adopt; must be a positive integer.
	AnimalID uint `json:"animal_id" binding:"required" example:"42"`
	// Message is an optional note from the requester to the shelter staff.
	Message string `json:"message,omitempty" example:"We have a big garden."`
}

// ProcessAdoptionRequest is the JSON payload for resolving a pending request.
type ProcessAdoptionRequest struct {
	// Action is either "approve" or "reject".
	Action string `json:"action" binding:"required,oneof=approve reject" example:"approve"`
}

// CreateAdoption godoc
// @ID          createAdoption
// @Summary     File an adoption request
// @Description Creates a pending adoption request for the authenticated user.
// @Tags        Adoptions
// @Accept      json
// @Produce     json
// @Param       body body handlers.CreateAdoptionRequest true "Request payload"
// @Success     201 {object} domain.AdoptionRequest
// @Failure     400 {object} handlers.ErrorResponse "Invalid animal id"
// @Failure     409 {object} handlers.ErrorResponse "Pending request already exists"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /adopt [post]
func (h *Handlers) CreateAdoption(c *gin.Context) {
	var req CreateAdoptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "animal_id must be a positive integer")
		return
	}

	ar, err := h.adoptSvc.Create(c.Request.Context(), middleware.UserID(c), req.AnimalID, req.Message)
	if err != nil {
		switch err {
		case services.ErrInvalidAnimalID:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "animal_id must be a positive integer")
		case services.ErrInvalidAnimal:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "animal does not exist")
		case services.ErrDuplicateRequest:
			fail(c, http.StatusConflict, ErrCodeConflict, "you already have a pending request for this animal")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, ar)
}

// ListAdoptions godoc
// @ID          listAdoptions
// @Summary     List all adoption requests
// @Description Admin view of every request joined with requester and animal.
// @Tags        Adoptions
// @Produce     json
// @Success     200 {array} repo.RequestDetails
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /adoption-requests [get]
func (h *Handlers) ListAdoptions(c *gin.Context) {
	out, err := h.adoptSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// ListMyAdoptions godoc
// @ID          listMyAdoptions
// @Summary     List own adoption requests
// @Description Returns the caller's requests joined with animal details.
// @Tags        Adoptions
// @Produce     json
// @Success     200 {array} repo.RequestDetails
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /my-adoption-requests [get]
func (h *Handlers) ListMyAdoptions(c *gin.Context) {
	out, err := h.adoptSvc.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// ProcessAdoption godoc
// @ID          processAdoption
// @Summary     Approve or reject a pending request
// @Description Resolves a pending request. Approved and rejected are terminal.
// @Tags        Adoptions
// @Accept      json
// @Produce     json
// @Param       id   path int true "Adoption request ID"
// @Param       body body handlers.ProcessAdoptionRequest true "Action payload"
// @Success     200 {object} domain.AdoptionRequest
// @Failure     400 {object} handlers.ErrorResponse "Invalid action"
// @Failure     404 {object} handlers.ErrorResponse "Request not found"
// @Failure     409 {object} handlers.ErrorResponse "Already processed"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /adoption-requests/{id} [put]
func (h *Handlers) ProcessAdoption(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	var req ProcessAdoptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action must be approve or reject")
		return
	}

	ar, err := h.adoptSvc.Process(c.Request.Context(), id, req.Action)
	if err != nil {
		switch err {
		case services.ErrInvalidAction:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action must be approve or reject")
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "adoption request not found")
		case services.ErrAlreadyProcessed:
			fail(c, http.StatusConflict, ErrCodeAlreadyProcessed, "adoption request already processed")
		case services.ErrAnimalNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "animal not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, ar)
}

// CancelAdoption godoc
// @ID          cancelAdoption
// @Summary     Cancel own pending request
// @Description Hard-deletes the caller's pending request. A request that
// @Description exists but is not the caller's pending one yields 409.
// @Tags        Adoptions
// @Produce     json
// @Param       id path int true "Adoption request ID"
// @Success     204 {string} string "No Content"
// @Failure     404 {object} handlers.ErrorResponse "Request not found"
// @Failure     409 {object} handlers.ErrorResponse "Not eligible for cancellation"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /adoption-requests/{id} [delete]
func (h *Handlers) CancelAdoption(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	if err := h.adoptSvc.CancelMine(c.Request.Context(), middleware.UserID(c), id); err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "adoption request not found")
		case services.ErrCancelNotEligible:
			fail(c, http.StatusConflict, ErrCodeNotEligible, "only your own pending requests can be cancelled")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	noContent(c)
}
