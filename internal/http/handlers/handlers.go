// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the Handlers aggregate and small shared helpers. Every
// handler is transport-thin: it validates input, delegates to a service, and
// translates service errors into HTTP results.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/services"
	"github.com/barinakhq/shelter-backend/internal/storage"
)

// Handlers bundles the services behind the HTTP surface.
type Handlers struct {
	adoptSvc  *services.AdoptionService
	animalSvc *services.AnimalService
	userSvc   *services.UserService
	notifSvc  *services.NotificationService
	viewSvc   *services.ViewService
	bulkSvc   *services.ImportExportService

	cache   *cache.Store
	storage *storage.Client
	db      *gorm.DB
}

// New constructs the Handlers aggregate. storage may be nil when object
// storage is not configured; the image upload endpoint then returns 503.
func New(
	adoptSvc *services.AdoptionService,
	animalSvc *services.AnimalService,
	userSvc *services.UserService,
	notifSvc *services.NotificationService,
	viewSvc *services.ViewService,
	bulkSvc *services.ImportExportService,
	store *cache.Store,
	objects *storage.Client,
	db *gorm.DB,
) *Handlers {
	return &Handlers{
		adoptSvc:  adoptSvc,
		animalSvc: animalSvc,
		userSvc:   userSvc,
		notifSvc:  notifSvc,
		viewSvc:   viewSvc,
		bulkSvc:   bulkSvc,
		cache:     store,
		storage:   objects,
		db:        db,
	}
}

// pathID parses the named path parameter as a positive uint id. The second
// return value reports success; the caller writes the 400 response.
func pathID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
