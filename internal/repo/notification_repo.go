// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model. Notifications are append-mostly: after creation only
// the read flag changes, and rows are removed by their recipient or by the
// age-based purge.
package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/domain"
)

// CreateNotification inserts a notification row for userID with a structured
// JSON payload.
func CreateNotification(ctx context.Context, db *gorm.DB, userID uint, typ, title, message string, data datatypes.JSON) (*domain.Notification, error) {
	n := &domain.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotificationsByUser returns userID's notifications, newest first.
func ListNotificationsByUser(ctx context.Context, db *gorm.DB, userID uint) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// CountUnread returns the number of unread notifications for userID.
func CountUnread(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead flags one notification read, scoped to its recipient. Returns
// ErrNotFound when the row is absent or owned by someone else.
func MarkRead(ctx context.Context, db *gorm.DB, id, userID uint) (*domain.Notification, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	var n domain.Notification
	if err := db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flags every unread notification for userID and returns how
// many rows changed.
func MarkAllRead(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// DeleteNotification removes a notification, scoped to its recipient.
// Returns ErrNotFound when nothing was deleted.
func DeleteNotification(ctx context.Context, db *gorm.DB, id, userID uint) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeNotificationsBefore removes all notifications created before the
// cutoff and returns how many rows were deleted.
func PurgeNotificationsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}
