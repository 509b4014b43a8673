// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the UserView
// model (per-user animal browsing history).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/barinakhq/shelter-backend/internal/domain"
)

// UpsertView records that userID viewed animalID. Repeat views update the
// existing row's timestamp (ON CONFLICT on the (user, animal) unique index).
func UpsertView(ctx context.Context, db *gorm.DB, userID, animalID uint) (*domain.UserView, error) {
	v := &domain.UserView{
		UserID:   userID,
		AnimalID: animalID,
		ViewedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "animal_id"}},
			DoUpdates: clause.Assignments(map[string]any{"viewed_at": v.ViewedAt}),
		}).
		Create(v).Error
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListViewedAnimals returns the animals userID has viewed, most recent first.
func ListViewedAnimals(ctx context.Context, db *gorm.DB, userID uint) ([]domain.Animal, error) {
	var out []domain.Animal
	err := db.WithContext(ctx).
		Table("user_views AS uv").
		Select("a.*").
		Joins("JOIN animals a ON a.id = uv.animal_id").
		Where("uv.user_id = ?", userID).
		Order("uv.viewed_at DESC").
		Scan(&out).Error
	return out, err
}

// CountViews returns how many distinct animals userID has viewed.
func CountViews(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UserView{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}
