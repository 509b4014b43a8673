// Package services – NotificationService
//
// This file implements the NotificationService, the persisted half of the
// notification side channel. Notify writes a notification row and,
// independently, emits the same payload over the live push channel when the
// recipient has an active connection. The two effects are deliberately
// non-transactional with each other and with the workflow mutation that
// triggered them: persistence can succeed while push is dropped, and the
// user simply sees the notification on their next poll.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/push"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// Notification type tags emitted by the adoption workflow.
const (
	TypeRequestCreated   = "adoption_request_created"
	TypeRequestApproved  = "adoption_approved"
	TypeRequestRejected  = "adoption_rejected"
	TypeRequestCancelled = "adoption_request_cancelled"
	TypeRequestProcessed = "adoption_processed"
)

// PushChannel is the live-delivery surface used by the notification and
// adoption services. Satisfied by *push.Hub.
type PushChannel interface {
	IsConnected(userID uint) bool
	PushTo(userID uint, event string, payload any)
	BroadcastAdmins(event string, payload any)
}

// NotificationService persists per-user notifications and mirrors them to
// the live push channel. All of its own failures are swallowed: a broken
// notification pipeline must never fail the workflow mutation it decorates.
type NotificationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Push delivers live events; may be nil (persistence only).
	Push PushChannel
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, p PushChannel) *NotificationService {
	return &NotificationService{DB: db, Push: p}
}

// Notify persists a notification for userID and pushes the same payload to
// their live connection if present. Errors are logged and swallowed; the
// caller cannot observe them by design.
func (s *NotificationService) Notify(ctx context.Context, userID uint, typ, title, message string, data map[string]any) {
	var payload datatypes.JSON
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = datatypes.JSON(b)
		}
	}

	if _, err := repo.CreateNotification(ctx, s.DB, userID, typ, title, message, payload); err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Str("type", typ).Msg("notification write failed")
	}

	if s.Push != nil && s.Push.IsConnected(userID) {
		s.Push.PushTo(userID, push.EventNotification, map[string]any{
			"type":    typ,
			"title":   title,
			"message": message,
			"data":    data,
		})
	}
}

// ListMine returns the recipient's notifications, newest first.
func (s *NotificationService) ListMine(ctx context.Context, userID uint) ([]domain.Notification, error) {
	return repo.ListNotificationsByUser(ctx, s.DB, userID)
}

// UnreadCount returns how many unread notifications the recipient has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return repo.CountUnread(ctx, s.DB, userID)
}

// MarkRead flags one notification read, scoped to its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*domain.Notification, error) {
	n, err := repo.MarkRead(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// MarkAllRead flags every unread notification for the recipient and returns
// how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return repo.MarkAllRead(ctx, s.DB, userID)
}

// Delete removes a notification, scoped to its recipient.
func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	if err := repo.DeleteNotification(ctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// PurgeOlderThan removes all notifications older than the given number of
// days, returning how many rows were deleted. Used by the admin purge
// endpoint.
func (s *NotificationService) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return repo.PurgeNotificationsBefore(ctx, s.DB, cutoff)
}
