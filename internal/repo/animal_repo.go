// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Animal
// model, including the idempotent adoption mark used by the workflow engine
// and the filtered search query.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/domain"
)

// AnimalFilter narrows a search over animals. Zero values mean "no filter".
type AnimalFilter struct {
	// Query matches name, species, or description case-insensitively.
	Query string
	// Species matches the species column exactly.
	Species string
	// Adopted filters by adoption state when non-nil.
	Adopted *bool
}

// AdoptedAnimal is an animal joined with its adopter, derived from approved
// adoption requests so the adopter is always known.
type AdoptedAnimal struct {
	domain.Animal
	AdopterUsername string `json:"adopter_username"`
}

// ListAnimals returns all animals ordered by ID.
func ListAnimals(ctx context.Context, db *gorm.DB) ([]domain.Animal, error) {
	var out []domain.Animal
	err := db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// GetAnimal fetches a single animal by ID, or ErrNotFound if missing.
func GetAnimal(ctx context.Context, db *gorm.DB, id uint) (*domain.Animal, error) {
	var a domain.Animal
	if err := db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAnimal inserts a new animal row and returns the persisted record.
func CreateAnimal(ctx context.Context, db *gorm.DB, a *domain.Animal) (*domain.Animal, error) {
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAnimal overwrites the mutable fields of an animal. Returns
// ErrNotFound if the animal does not exist.
func UpdateAnimal(ctx context.Context, db *gorm.DB, id uint, a *domain.Animal) (*domain.Animal, error) {
	res := db.WithContext(ctx).
		Model(&domain.Animal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":        a.Name,
			"species":     a.Species,
			"age":         a.Age,
			"description": a.Description,
			"image_url":   a.ImageURL,
			"adopted":     a.Adopted,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetAnimal(ctx, db, id)
}

// DeleteAnimal removes an animal by ID. Returns ErrNotFound when the row is
// absent.
func DeleteAnimal(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Animal{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAdopted sets the adoption state of an animal, idempotently: when the
// row already carries the target state, it is returned unchanged without a
// write. When adoptedBy is nil only the adopted flag is updated, preserving
// any prior owner attribution.
func MarkAdopted(ctx context.Context, db *gorm.DB, id uint, adopted bool, adoptedBy *uint) (*domain.Animal, error) {
	current, err := GetAnimal(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if current.Adopted == adopted && uintPtrEq(current.AdoptedBy, adoptedBy) {
		return current, nil
	}

	updates := map[string]any{"adopted": adopted}
	if adoptedBy != nil {
		updates["adopted_by"] = *adoptedBy
	}
	if err := db.WithContext(ctx).
		Model(&domain.Animal{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetAnimal(ctx, db, id)
}

// ListAdoptedWithUser returns animals whose adopter is known, derived from
// approved adoption requests. Rows where adopted was set without an owner
// (e.g. by bulk import) are intentionally excluded.
func ListAdoptedWithUser(ctx context.Context, db *gorm.DB) ([]AdoptedAnimal, error) {
	var out []AdoptedAnimal
	err := db.WithContext(ctx).
		Table("adoption_requests AS ar").
		Select("a.*, u.username AS adopter_username").
		Joins("JOIN animals a ON a.id = ar.animal_id").
		Joins("JOIN users u ON u.id = ar.user_id").
		Where("ar.status = ?", domain.StatusApproved).
		Order("ar.processed_at DESC").
		Scan(&out).Error
	return out, err
}

// CountAnimals returns the number of animals matching the filter.
func CountAnimals(ctx context.Context, db *gorm.DB, f AnimalFilter) (int64, error) {
	var total int64
	err := applyFilter(db.WithContext(ctx).Model(&domain.Animal{}), f).Count(&total).Error
	return total, err
}

// SearchAnimals returns a page of animals matching the filter, newest first.
// The caller computes offset and limit (e.g. (page-1)*pageSize).
func SearchAnimals(ctx context.Context, db *gorm.DB, f AnimalFilter, offset, limit int) ([]domain.Animal, error) {
	var out []domain.Animal
	err := applyFilter(db.WithContext(ctx).Model(&domain.Animal{}), f).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// applyFilter composes the WHERE clauses for an AnimalFilter.
func applyFilter(q *gorm.DB, f AnimalFilter) *gorm.DB {
	if s := strings.TrimSpace(f.Query); s != "" {
		// LOWER(...) LIKE keeps the match case-insensitive on both Postgres
		// and the SQLite driver used in tests.
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(species) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if s := strings.TrimSpace(f.Species); s != "" {
		q = q.Where("species = ?", s)
	}
	if f.Adopted != nil {
		q = q.Where("adopted = ?", *f.Adopted)
	}
	return q
}

// uintPtrEq compares two optional uints by value.
func uintPtrEq(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
