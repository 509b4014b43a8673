// Package domain defines the persistence models for users, animals, adoption
// requests, notifications, user views, and sessions. These types are mapped
// with GORM and form the core data layer of the shelter application.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Adoption request lifecycle statuses. A request starts as pending and is
// resolved exactly once: approved or rejected by an admin, or deleted by the
// owning requester while still pending.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// User represents an account able to browse animals and file adoption
// requests. Role is either "user" or "admin"; admins process requests.
type User struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	Username  string    `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex"`
	Password  string    `json:"-"          gorm:"type:varchar(128);not null"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;default:'user';check:role IN ('user','admin')"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Animal represents a shelter animal available for adoption.
//
// Invariant: when an approval flows through the adoption workflow,
// Adopted=true implies AdoptedBy is set. Bulk import may set Adopted without
// an owner; that inconsistency is tolerated and filtered out by the
// adopted-with-user view.
type Animal struct {
	ID          uint      `json:"id"          gorm:"primaryKey"`
	Name        string    `json:"name"        gorm:"type:varchar(128);not null"`
	Species     string    `json:"species"     gorm:"type:varchar(64);not null;index"`
	Age         int       `json:"age"`
	Description string    `json:"description" gorm:"type:text"`
	ImageURL    string    `json:"imageurl"    gorm:"type:text"`
	Adopted     bool      `json:"adopted"     gorm:"not null;default:false;index"`
	AdoptedBy   *uint     `json:"adopted_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Animal.
func (Animal) TableName() string { return "animals" }

// AdoptionRequest expresses a user's intent to adopt a specific animal.
//
// Fields:
//   - UserID / AnimalID: requester and target; both enforced by FK.
//   - Status: pending | approved | rejected. Only pending requests may be
//     processed or cancelled; approved/rejected are terminal.
//   - ProcessedAt: set when the request leaves pending.
//
// The partial unique index on (user_id, animal_id) scoped to pending status
// guarantees at most one live request per pair even under concurrent creates;
// the service-level pre-check exists only to give a friendlier fast-path
// error.
type AdoptionRequest struct {
	ID          uint       `json:"id"           gorm:"primaryKey"`
	UserID      uint       `json:"user_id"      gorm:"not null;index;uniqueIndex:ux_pending_request,where:status = 'pending'"`
	AnimalID    uint       `json:"animal_id"    gorm:"not null;index;uniqueIndex:ux_pending_request,where:status = 'pending'"`
	Message     string     `json:"message"      gorm:"type:text"`
	Status      string     `json:"status"       gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','approved','rejected')"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`

	// FK associations; requests are cascade-deleted with their user/animal.
	User   User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Animal Animal `json:"-" gorm:"foreignKey:AnimalID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AdoptionRequest.
func (AdoptionRequest) TableName() string { return "adoption_requests" }

// Notification is a persisted per-user message created as a side effect of
// workflow events. Only the read flag is ever updated after creation.
type Notification struct {
	ID        uint           `json:"id"         gorm:"primaryKey"`
	UserID    uint           `json:"user_id"    gorm:"not null;index"`
	Type      string         `json:"type"       gorm:"type:varchar(48);not null"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null"`
	Message   string         `json:"message"    gorm:"type:text;not null"`
	Data      datatypes.JSON `json:"data"       gorm:"type:jsonb"`
	Read      bool           `json:"read"       gorm:"not null;default:false;index"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// UserView records that a user viewed an animal's detail page. One row per
// (user, animal); repeat views bump ViewedAt.
type UserView struct {
	ID       uint      `json:"id"        gorm:"primaryKey"`
	UserID   uint      `json:"user_id"   gorm:"not null;uniqueIndex:ux_user_view"`
	AnimalID uint      `json:"animal_id" gorm:"not null;uniqueIndex:ux_user_view"`
	ViewedAt time.Time `json:"viewed_at"`

	User   User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Animal Animal `json:"-" gorm:"foreignKey:AnimalID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for UserView.
func (UserView) TableName() string { return "user_views" }

// UserSession tracks an application login for the active-sessions view.
// Rows are written on login, touched on authenticated requests, and expired
// on logout. They carry no authorization weight; the JWT does.
type UserSession struct {
	ID        uint       `json:"id"         gorm:"primaryKey"`
	UserID    uint       `json:"user_id"    gorm:"not null;index"`
	UserAgent string     `json:"user_agent" gorm:"type:text"`
	IP        string     `json:"ip"         gorm:"type:varchar(64)"`
	CreatedAt time.Time  `json:"created_at"`
	LastSeen  time.Time  `json:"last_seen"`
	ExpiresAt *time.Time `json:"expires_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for UserSession.
func (UserSession) TableName() string { return "user_sessions" }
