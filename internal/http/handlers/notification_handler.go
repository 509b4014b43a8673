// Notification HTTP handlers.
//
// This file exposes the persisted notification feed: listing, unread count,
// read flags, deletion, and the admin retention purge.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barinakhq/shelter-backend/internal/http/middleware"
	"github.com/barinakhq/shelter-backend/internal/services"
	"github.com/barinakhq/shelter-backend/internal/utils"
)

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List own notifications
// @Tags        Notifications
// @Produce     json
// @Success     200 {array} domain.Notification
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	out, err := h.notifSvc.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}

// UnreadCount godoc
// @ID          unreadCount
// @Summary     Count own unread notifications
// @Tags        Notifications
// @Produce     json
// @Success     200 {object} map[string]int64 "{\"unread\": 3}"
// @Router      /notifications/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.notifSvc.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"unread": n})
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark one notification read
// @Tags        Notifications
// @Produce     json
// @Param       id path int true "Notification ID"
// @Success     200 {object} domain.Notification
// @Failure     404 {object} handlers.ErrorResponse "Notification not found"
// @Router      /notifications/{id}/read [put]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	n, err := h.notifSvc.MarkRead(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		if err == services.ErrNotificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, n)
}

// MarkAllNotificationsRead godoc
// @ID          markAllNotificationsRead
// @Summary     Mark every notification read
// @Tags        Notifications
// @Produce     json
// @Success     200 {object} map[string]int64 "{\"updated\": 5}"
// @Router      /notifications/read-all [put]
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notifSvc.MarkAllRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"updated": n})
}

// DeleteNotification godoc
// @ID          deleteNotification
// @Summary     Delete one notification
// @Tags        Notifications
// @Produce     json
// @Param       id path int true "Notification ID"
// @Success     204 {string} string "No Content"
// @Failure     404 {object} handlers.ErrorResponse "Notification not found"
// @Router      /notifications/{id} [delete]
func (h *Handlers) DeleteNotification(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	if err := h.notifSvc.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		if err == services.ErrNotificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// PurgeNotifications godoc
// @ID          purgeNotifications
// @Summary     Purge old notifications (admin)
// @Description Deletes notifications older than ?days (default 30).
// @Tags        Notifications
// @Produce     json
// @Success     200 {object} map[string]int64 "{\"deleted\": 120}"
// @Router      /notifications/purge [delete]
func (h *Handlers) PurgeNotifications(c *gin.Context) {
	days := utils.AtoiDefault(c.Query("days"), 30)
	n, err := h.notifSvc.PurgeOlderThan(c.Request.Context(), days)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": n})
}
