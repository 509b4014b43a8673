// Package services defines the business logic for the shelter application:
// the adoption workflow engine, animal catalog, notifications, users, and
// import/export. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer. The taxonomy follows the error kinds the
// API exposes: validation, conflict, not-found, forbidden, internal.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/repo"
)

// Adoption workflow errors.
var (
	// ErrInvalidAnimalID is returned when a create request carries a missing
	// or non-positive animal identifier.
	ErrInvalidAnimalID = errors.New("animal id must be a positive integer")

	// ErrInvalidAnimal is returned when the target animal vanished between
	// validation and insert (foreign-key violation).
	ErrInvalidAnimal = errors.New("animal does not exist")

	// ErrDuplicateRequest is returned when the user already has a pending
	// request for the same animal, whether caught by the advisory pre-check
	// or by the storage-level unique constraint.
	ErrDuplicateRequest = errors.New("pending request already exists for this animal")

	// ErrRequestNotFound indicates that the adoption request does not exist.
	ErrRequestNotFound = errors.New("adoption request not found")

	// ErrAlreadyProcessed is returned when processing a request that has
	// already left the pending state. Approved and rejected are terminal.
	ErrAlreadyProcessed = errors.New("adoption request already processed")

	// ErrInvalidAction is returned when a process call names an action other
	// than approve or reject.
	ErrInvalidAction = errors.New("action must be approve or reject")

	// ErrCancelNotEligible is returned when a cancel targets a request that
	// exists but is not owned by the caller or is no longer pending.
	ErrCancelNotEligible = errors.New("only your own pending requests can be cancelled")
)

// Catalog and account errors.
var (
	// ErrAnimalNotFound indicates that the requested animal does not exist.
	ErrAnimalNotFound = errors.New("animal not found")

	// ErrNotificationNotFound indicates that the notification does not exist
	// or belongs to another user.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when registering with an occupied name.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned for a failed login. It deliberately
	// does not reveal whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// isForeignKeyViolation detects referential-integrity failures across
// drivers (Postgres SQLSTATE 23503, SQLite message text).
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint") ||
		strings.Contains(msg, "violates foreign key")
}
