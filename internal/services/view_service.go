// Package services – ViewService
//
// Per-user browsing history: recording detail-page views and listing them
// back, most recent first.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// ViewService records and reports which animals a user has viewed.
type ViewService struct {
	DB *gorm.DB
}

// NewViewService constructs a ViewService.
func NewViewService(db *gorm.DB) *ViewService {
	return &ViewService{DB: db}
}

// Record notes that userID viewed animalID. Repeat views refresh the
// timestamp. A view of a nonexistent animal maps to ErrAnimalNotFound.
func (s *ViewService) Record(ctx context.Context, userID, animalID uint) (*domain.UserView, error) {
	if animalID == 0 {
		return nil, ErrInvalidAnimalID
	}
	v, err := repo.UpsertView(ctx, s.DB, userID, animalID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrAnimalNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListMine returns the animals the user has viewed, most recent first.
func (s *ViewService) ListMine(ctx context.Context, userID uint) ([]domain.Animal, error) {
	return repo.ListViewedAnimals(ctx, s.DB, userID)
}

// CountMine returns how many distinct animals the user has viewed.
func (s *ViewService) CountMine(ctx context.Context, userID uint) (int64, error) {
	return repo.CountViews(ctx, s.DB, userID)
}
