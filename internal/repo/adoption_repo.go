// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// AdoptionRequest model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. The service layer maps unique and
//     foreign-key violations to its own sentinel errors.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.AdoptionService) which enforces the state machine, caching,
// and side-effect behavior.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// RequestDetails is an AdoptionRequest joined with requester and animal
// display fields for admin and profile listings.
type RequestDetails struct {
	domain.AdoptionRequest
	RequesterUsername string `json:"requester_username,omitempty"`
	AnimalName        string `json:"animal_name"`
	AnimalSpecies     string `json:"animal_species"`
	AnimalImageURL    string `json:"animal_imageurl"`
}

// CreateRequest inserts a new pending AdoptionRequest row for the given user
// and animal. On success, it returns the persisted request. On failure, it
// returns the raw DB error (including unique or FK violations).
func CreateRequest(ctx context.Context, db *gorm.DB, userID, animalID uint, message string) (*domain.AdoptionRequest, error) {
	ar := &domain.AdoptionRequest{
		UserID:    userID,
		AnimalID:  animalID,
		Message:   message,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ar).Error; err != nil {
		return nil, err
	}
	return ar, nil
}

// GetRequest fetches a single request by ID, or ErrNotFound if missing.
func GetRequest(ctx context.Context, db *gorm.DB, id uint) (*domain.AdoptionRequest, error) {
	var ar domain.AdoptionRequest
	if err := db.WithContext(ctx).First(&ar, id).Error; err != nil {
		return nil, err
	}
	return &ar, nil
}

// ListRequests returns all requests joined with requester and animal details,
// most recent first. Used by the admin dashboard.
func ListRequests(ctx context.Context, db *gorm.DB) ([]RequestDetails, error) {
	var out []RequestDetails
	err := db.WithContext(ctx).
		Table("adoption_requests AS ar").
		Select("ar.*, u.username AS requester_username, a.name AS animal_name, a.species AS animal_species, a.image_url AS animal_image_url").
		Joins("LEFT JOIN users u ON u.id = ar.user_id").
		Joins("LEFT JOIN animals a ON a.id = ar.animal_id").
		Order("ar.created_at DESC").
		Scan(&out).Error
	return out, err
}

// ListRequestsByUser returns all requests filed by userID, most recent first.
func ListRequestsByUser(ctx context.Context, db *gorm.DB, userID uint) ([]domain.AdoptionRequest, error) {
	var out []domain.AdoptionRequest
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListUserRequestsWithAnimal returns userID's requests joined with animal
// display fields, most recent first. Used by the profile view.
func ListUserRequestsWithAnimal(ctx context.Context, db *gorm.DB, userID uint) ([]RequestDetails, error) {
	var out []RequestDetails
	err := db.WithContext(ctx).
		Table("adoption_requests AS ar").
		Select("ar.*, a.name AS animal_name, a.species AS animal_species, a.image_url AS animal_image_url").
		Joins("LEFT JOIN animals a ON a.id = ar.animal_id").
		Where("ar.user_id = ?", userID).
		Order("ar.created_at DESC").
		Scan(&out).Error
	return out, err
}

// HasPendingRequest reports whether userID already has a pending request for
// animalID. This is the advisory fast-path check; the partial unique index is
// what actually guarantees single-pending semantics under races.
func HasPendingRequest(ctx context.Context, db *gorm.DB, userID, animalID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.AdoptionRequest{}).
		Where("user_id = ? AND animal_id = ? AND status = ?", userID, animalID, domain.StatusPending).
		Count(&n).Error
	return n > 0, err
}

// MarkProcessed transitions a request from pending to the given terminal
// status, stamping ProcessedAt. The pending guard is part of the UPDATE
// predicate so the transition is atomic: if zero rows are affected the
// request was missing or already processed, and ErrNotFound is returned;
// the caller distinguishes the two by fetching the row.
func MarkProcessed(ctx context.Context, db *gorm.DB, id uint, status string) (*domain.AdoptionRequest, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.AdoptionRequest{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{"status": status, "processed_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetRequest(ctx, db, id)
}

// DeleteIfOwnerPending hard-deletes the request only when it belongs to
// userID and is still pending. It returns the number of rows removed (0 or 1)
// so the caller can distinguish "nothing eligible" from success.
func DeleteIfOwnerPending(ctx context.Context, db *gorm.DB, id, userID uint) (int64, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, domain.StatusPending).
		Delete(&domain.AdoptionRequest{})
	return res.RowsAffected, res.Error
}
