// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User and
// UserSession models.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/domain"
)

// CreateUser inserts a new user row. The password must already be hashed.
func CreateUser(ctx context.Context, db *gorm.DB, username, passwordHash, role string) (*domain.User, error) {
	if role == "" {
		role = "user"
	}
	u := &domain.User{
		Username:  username,
		Password:  passwordHash,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by ID, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername fetches a user by username, or ErrNotFound if missing.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users ordered by ID.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// UpdateUser overwrites a user's mutable fields. Empty values are skipped so
// partial updates do not clobber existing data. Returns the updated row or
// ErrNotFound.
func UpdateUser(ctx context.Context, db *gorm.DB, id uint, username, passwordHash, role string) (*domain.User, error) {
	updates := map[string]any{}
	if username != "" {
		updates["username"] = username
	}
	if passwordHash != "" {
		updates["password"] = passwordHash
	}
	if role != "" {
		updates["role"] = role
	}
	if len(updates) > 0 {
		res := db.WithContext(ctx).
			Model(&domain.User{}).
			Where("id = ?", id).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return GetUser(ctx, db, id)
}

// DeleteUser removes a user by ID. Returns ErrNotFound when the row is
// absent.
func DeleteUser(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

//
// Sessions
//

// CreateSession records an application login for the active-sessions view.
func CreateSession(ctx context.Context, db *gorm.DB, userID uint, userAgent, ip string) (*domain.UserSession, error) {
	now := time.Now().UTC()
	s := &domain.UserSession{
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// TouchSessions bumps last_seen on every live session of userID. Callers
// treat this as best-effort; an error never blocks the request.
func TouchSessions(ctx context.Context, db *gorm.DB, userID uint) error {
	return db.WithContext(ctx).
		Model(&domain.UserSession{}).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, time.Now().UTC()).
		Update("last_seen", time.Now().UTC()).Error
}

// ExpireSessions marks all live sessions of userID as expired (logout).
func ExpireSessions(ctx context.Context, db *gorm.DB, userID uint) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.UserSession{}).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, now).
		Update("expires_at", now).Error
}
