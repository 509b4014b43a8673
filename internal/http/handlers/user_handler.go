// Account HTTP handlers.
//
// This file exposes registration, login, logout, the caller's profile and
// browsing history, and the admin user CRUD.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barinakhq/shelter-backend/internal/http/middleware"
	"github.com/barinakhq/shelter-backend/internal/services"
)

// CredentialsRequest is the JSON payload for register and login.
type CredentialsRequest struct {
	Username string `json:"username" binding:"required" example:"ayse"`
	Password string `json:"password" binding:"required,min=6" example:"hunter22"`
}

// UpdateUserRequest is the JSON payload for the admin user update. Empty
// fields are left untouched.
type UpdateUserRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty" binding:"omitempty,oneof=user admin"`
}

// Register godoc
// @ID          register
// @Summary     Register a new account
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body body handlers.CredentialsRequest true "Credentials"
// @Success     201 {object} domain.User
// @Failure     400 {object} handlers.ErrorResponse "Invalid credentials"
// @Failure     409 {object} handlers.ErrorResponse "Username already taken"
// @Router      /register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and a password of at least 6 characters are required")
		return
	}

	u, err := h.userSvc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch err {
		case services.ErrUsernameTaken:
			fail(c, http.StatusConflict, ErrCodeConflict, "username already taken")
		case services.ErrInvalidCredentials:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and a password of at least 6 characters are required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, u)
}

// Login godoc
// @ID          login
// @Summary     Log in and receive a token
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body body handlers.CredentialsRequest true "Credentials"
// @Success     200 {object} services.LoginResult
// @Failure     401 {object} handlers.ErrorResponse "Invalid credentials"
// @Router      /login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}

	res, err := h.userSvc.Login(c.Request.Context(), req.Username, req.Password,
		c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		if err == services.ErrInvalidCredentials {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Expires the caller's session rows. The JWT stays valid until
// @Description its expiry; sessions only drive the active-sessions view.
// @Tags        Users
// @Produce     json
// @Success     204 {string} string "No Content"
// @Router      /logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.userSvc.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Get the caller's profile
// @Tags        Users
// @Produce     json
// @Success     200 {object} domain.User
// @Failure     404 {object} handlers.ErrorResponse "User not found"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.userSvc.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if err == services.ErrUserNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// MyViews godoc
// @ID          myViews
// @Summary     List the caller's viewed animals
// @Tags        Users
// @Produce     json
// @Success     200 {array} domain.Animal
// @Router      /my-views [get]
func (h *Handlers) MyViews(c *gin.Context) {
	out, err := h.viewSvc.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List all users (admin)
// @Tags        Users
// @Produce     json
// @Success     200 {array} domain.User
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	out, err := h.userSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update a user (admin)
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       id   path int true "User ID"
// @Param       body body handlers.UpdateUserRequest true "Partial update"
// @Success     200 {object} domain.User
// @Failure     404 {object} handlers.ErrorResponse "User not found"
// @Failure     409 {object} handlers.ErrorResponse "Username already taken"
// @Router      /users/{id} [put]
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be user or admin")
		return
	}

	u, err := h.userSvc.Update(c.Request.Context(), id, req.Username, req.Password, req.Role)
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case services.ErrUsernameTaken:
			fail(c, http.StatusConflict, ErrCodeConflict, "username already taken")
		case services.ErrInvalidCredentials:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be user or admin")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user (admin)
// @Tags        Users
// @Produce     json
// @Param       id path int true "User ID"
// @Success     204 {string} string "No Content"
// @Failure     404 {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), id); err != nil {
		if err == services.ErrUserNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
