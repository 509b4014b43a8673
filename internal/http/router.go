// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, and rate limiting, then mounts the public, authenticated, and admin
// route groups plus the websocket push endpoint.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (websocket and metrics excluded)
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS
//  10. Security headers
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/auth"
	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/config"
	"github.com/barinakhq/shelter-backend/internal/http/handlers"
	"github.com/barinakhq/shelter-backend/internal/http/middleware"
	"github.com/barinakhq/shelter-backend/internal/push"
	"github.com/barinakhq/shelter-backend/internal/pubsub"
	"github.com/barinakhq/shelter-backend/internal/services"
	"github.com/barinakhq/shelter-backend/internal/storage"
)

// Deps bundles everything the router needs. Built once in main and passed
// down; all dependencies are injected so tests can swap them.
type Deps struct {
	DB      *gorm.DB
	Cache   *cache.Store
	Tokens  *auth.Manager
	Hub     *push.Hub
	Bus     *pubsub.Publisher
	Storage *storage.Client
	Config  config.Config
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.HandleMethodNotAllowed = true
	cfg := d.Config

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (16 MiB; bulk import is the largest payload)
	r.Use(limitBody(16 << 20))

	// 6) Response compression; the websocket upgrade and Prometheus text
	// format must stay uncompressed.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (allow all when none configured, for dev setups)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 10) Hardening headers
	r.Use(middleware.SecurityHeaders())

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: services ← repo/db/cache/bus/hub
	notifSvc := services.NewNotificationService(d.DB, d.Hub)
	adoptSvc := services.NewAdoptionService(d.DB, notifSvc, d.Cache, d.Bus, d.Hub)
	animalSvc := services.NewAnimalService(d.DB, d.Cache, d.Bus, cfg.Cache.ListTTL, cfg.Cache.SearchTTL)
	userSvc := services.NewUserService(d.DB, d.Tokens)
	viewSvc := services.NewViewService(d.DB)
	bulkSvc := services.NewImportExportService(d.DB, d.Cache)

	h := handlers.New(adoptSvc, animalSvc, userSvc, notifSvc, viewSvc, bulkSvc, d.Cache, d.Storage, d.DB)

	// Websocket push channel; authentication happens in-band via the token
	// handshake, so the HTTP middleware chain stays out of the upgrade.
	r.GET("/ws", func(c *gin.Context) { d.Hub.ServeWS(c.Writer, c.Request) })

	// Liveness/readiness
	r.GET("/health", h.Health)
	r.GET("/health/db", h.HealthDB)

	api := groupWithPrefix(r, cfg.APIBasePath)

	// Public surface
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	public := api.Group("", middleware.AuthenticateOptional(d.Tokens))
	{
		public.GET("/animals", h.ListAnimals)
		public.GET("/animals/search", h.SearchAnimals)
		public.GET("/animals/adopted", h.ListAdoptedAnimals)
		public.GET("/animals/:id", h.GetAnimal)
	}

	// Authenticated surface
	authed := api.Group("", middleware.Authenticate(d.Tokens, d.DB))
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/me", h.Me)
		authed.GET("/my-views", h.MyViews)

		authed.POST("/adopt", h.CreateAdoption)
		authed.GET("/my-adoption-requests", h.ListMyAdoptions)
		authed.DELETE("/adoption-requests/:id", h.CancelAdoption)

		authed.GET("/notifications", h.ListNotifications)
		authed.GET("/notifications/unread-count", h.UnreadCount)
		authed.PUT("/notifications/read-all", h.MarkAllNotificationsRead)
		authed.PUT("/notifications/:id/read", h.MarkNotificationRead)
		authed.DELETE("/notifications/:id", h.DeleteNotification)
	}

	// Admin surface
	admin := api.Group("", middleware.Authenticate(d.Tokens, d.DB), middleware.RequireAdmin())
	{
		admin.GET("/adoption-requests", h.ListAdoptions)
		admin.PUT("/adoption-requests/:id", h.ProcessAdoption)

		admin.POST("/animals", h.CreateAnimal)
		admin.PUT("/animals/:id", h.UpdateAnimal)
		admin.DELETE("/animals/:id", h.DeleteAnimal)
		admin.POST("/animals/upload", h.UploadAnimalImage)
		admin.POST("/animals/import", h.ImportAnimals)
		admin.GET("/animals/export", h.ExportAnimalsCSV)
		admin.GET("/animals/export.xlsx", h.ExportAnimalsXLSX)

		admin.GET("/users", h.ListUsers)
		admin.PUT("/users/:id", h.UpdateUser)
		admin.DELETE("/users/:id", h.DeleteUser)

		admin.DELETE("/notifications/purge", h.PurgeNotifications)

		admin.GET("/cache/stats", h.CacheStats)
		admin.DELETE("/cache/clear", h.CacheClear)
		admin.POST("/cache/warm", h.CacheWarm)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap fail on body read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
