package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:adoptsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Password: "x", Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedAnimal(t *testing.T, db *gorm.DB, name string) *domain.Animal {
	t.Helper()
	a := &domain.Animal{Name: name, Species: "cat"}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed animal: %v", err)
	}
	return a
}

// fakeCache records invalidation patterns.
type fakeCache struct {
	mu       sync.Mutex
	patterns []string
	err      error
}

func (f *fakeCache) Invalidate(_ context.Context, pattern string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.patterns = append(f.patterns, pattern)
	return 1, nil
}

func (f *fakeCache) invalidated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.patterns...)
}

// fakeBus records published events by channel name.
type fakeBus struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBus) record(ev string) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}
func (f *fakeBus) AdoptionApproved(_ context.Context, _, _, _ uint) { f.record("approved") }
func (f *fakeBus) AdoptionRejected(_ context.Context, _, _, _ uint, _ string) {
	f.record("rejected")
}
func (f *fakeBus) AnimalAdopted(_ context.Context, _, _ uint) { f.record("adopted") }
func (f *fakeBus) AnimalUpdated(_ context.Context, _ uint)    { f.record("updated") }

func (f *fakeBus) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// fakePush records deliveries and admin broadcasts.
type fakePush struct {
	mu         sync.Mutex
	connected  map[uint]bool
	delivered  []uint
	broadcasts int
}

func (f *fakePush) IsConnected(userID uint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected[userID]
}
func (f *fakePush) PushTo(userID uint, _ string, _ any) {
	f.mu.Lock()
	f.delivered = append(f.delivered, userID)
	f.mu.Unlock()
}
func (f *fakePush) BroadcastAdmins(_ string, _ any) {
	f.mu.Lock()
	f.broadcasts++
	f.mu.Unlock()
}

func newAdoptionFixture(t *testing.T) (*AdoptionService, *gorm.DB, *fakeCache, *fakeBus, *fakePush) {
	t.Helper()
	db := newTestDB(t)
	fc := &fakeCache{}
	fb := &fakeBus{}
	fp := &fakePush{connected: map[uint]bool{}}
	notif := NewNotificationService(db, fp)
	svc := NewAdoptionService(db, notif, fc, fb, fp)
	return svc, db, fc, fb, fp
}

func TestAdoption_Create_Pending(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")

	ar, err := svc.Create(context.Background(), u.ID, a.ID, "please")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ar.Status != domain.StatusPending {
		t.Fatalf("status = %q; want pending", ar.Status)
	}
	if ar.ProcessedAt != nil {
		t.Fatalf("processed_at should be nil on create")
	}

	// The requester got a persisted notification.
	var n int64
	db.Model(&domain.Notification{}).Where("user_id = ? AND type = ?", u.ID, TypeRequestCreated).Count(&n)
	if n != 1 {
		t.Fatalf("notification count = %d; want 1", n)
	}
}

func TestAdoption_Create_InvalidAnimalID(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")

	if _, err := svc.Create(context.Background(), u.ID, 0, ""); !errors.Is(err, ErrInvalidAnimalID) {
		t.Fatalf("expected ErrInvalidAnimalID, got %v", err)
	}
}

func TestAdoption_Create_MissingAnimal(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")

	_, err := svc.Create(context.Background(), u.ID, 9999, "")
	if !errors.Is(err, ErrInvalidAnimal) {
		t.Fatalf("expected ErrInvalidAnimal, got %v", err)
	}
}

func TestAdoption_Create_DuplicatePending(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")

	if _, err := svc.Create(context.Background(), u.ID, a.ID, ""); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), u.ID, a.ID, ""); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
}

func TestAdoption_Create_AllowedAfterResolution(t *testing.T) {
	// A resolved (rejected) request must not block a new one: the unique
	// index is scoped to pending status.
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")

	ar, err := svc.Create(context.Background(), u.ID, a.ID, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Process(context.Background(), ar.ID, ActionReject); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := svc.Create(context.Background(), u.ID, a.ID, "second try"); err != nil {
		t.Fatalf("create after rejection: %v", err)
	}
}

func TestAdoption_Process_Approve(t *testing.T) {
	svc, db, fc, fb, fp := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	ar, _ := svc.Create(context.Background(), u.ID, a.ID, "")

	updated, err := svc.Process(context.Background(), ar.ID, ActionApprove)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != domain.StatusApproved {
		t.Fatalf("status = %q; want approved", updated.Status)
	}
	if updated.ProcessedAt == nil {
		t.Fatalf("processed_at not set")
	}

	// The animal left the adoptable pool, attributed to the requester.
	var got domain.Animal
	if err := db.First(&got, a.ID).Error; err != nil {
		t.Fatalf("load animal: %v", err)
	}
	if !got.Adopted || got.AdoptedBy == nil || *got.AdoptedBy != u.ID {
		t.Fatalf("animal = adopted:%v by:%v; want adopted by %d", got.Adopted, got.AdoptedBy, u.ID)
	}

	// Caches were invalidated: list pattern and the animal's own entry.
	pats := fc.invalidated()
	if len(pats) != 2 || pats[0] != cache.PatternAnimalLists || pats[1] != cache.AnimalKey(a.ID) {
		t.Fatalf("invalidated = %v", pats)
	}

	// Bus carried both the adoption and the catalog-change event.
	evs := fb.published()
	if len(evs) != 2 || evs[0] != "approved" || evs[1] != "adopted" {
		t.Fatalf("published = %v", evs)
	}

	// Admins were broadcast to.
	if fp.broadcasts != 1 {
		t.Fatalf("broadcasts = %d; want 1", fp.broadcasts)
	}

	// Requester has an approval notification.
	var n int64
	db.Model(&domain.Notification{}).Where("user_id = ? AND type = ?", u.ID, TypeRequestApproved).Count(&n)
	if n != 1 {
		t.Fatalf("approval notifications = %d; want 1", n)
	}
}

func TestAdoption_Process_Reject_LeavesAnimal(t *testing.T) {
	svc, db, _, fb, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	ar, _ := svc.Create(context.Background(), u.ID, a.ID, "")

	updated, err := svc.Process(context.Background(), ar.ID, ActionReject)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if updated.Status != domain.StatusRejected {
		t.Fatalf("status = %q; want rejected", updated.Status)
	}

	var got domain.Animal
	db.First(&got, a.ID)
	if got.Adopted {
		t.Fatalf("rejected request must not mark the animal adopted")
	}

	evs := fb.published()
	if len(evs) != 1 || evs[0] != "rejected" {
		t.Fatalf("published = %v", evs)
	}
}

func TestAdoption_Process_Terminal(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	ar, _ := svc.Create(context.Background(), u.ID, a.ID, "")

	if _, err := svc.Process(context.Background(), ar.ID, ActionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// Re-processing in either direction is refused.
	if _, err := svc.Process(context.Background(), ar.ID, ActionApprove); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if _, err := svc.Process(context.Background(), ar.ID, ActionReject); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestAdoption_Process_InvalidAction(t *testing.T) {
	svc, _, _, _, _ := newAdoptionFixture(t)
	if _, err := svc.Process(context.Background(), 1, "archive"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestAdoption_Process_NotFound(t *testing.T) {
	svc, _, _, _, _ := newAdoptionFixture(t)
	if _, err := svc.Process(context.Background(), 424242, ActionApprove); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestAdoption_Process_CacheFailureDoesNotFail(t *testing.T) {
	svc, db, fc, _, _ := newAdoptionFixture(t)
	fc.err = errors.New("redis down")
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	ar, _ := svc.Create(context.Background(), u.ID, a.ID, "")

	if _, err := svc.Process(context.Background(), ar.ID, ActionApprove); err != nil {
		t.Fatalf("cache outage must not fail the transition: %v", err)
	}
}

func TestAdoption_CancelMine_Pending(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	ar, _ := svc.Create(context.Background(), u.ID, a.ID, "")

	if err := svc.CancelMine(context.Background(), u.ID, ar.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Hard delete: no trace left.
	var n int64
	db.Model(&domain.AdoptionRequest{}).Where("id = ?", ar.ID).Count(&n)
	if n != 0 {
		t.Fatalf("request still present after cancel")
	}

	// And the requester may immediately file again.
	if _, err := svc.Create(context.Background(), u.ID, a.ID, "again"); err != nil {
		t.Fatalf("re-create after cancel: %v", err)
	}
}

func TestAdoption_CancelMine_NotOwner(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	owner := seedUser(t, db, "owner", "user")
	other := seedUser(t, db, "other", "user")
	a := seedAnimal(t, db, "Luna")
	ar, _ := svc.Create(context.Background(), owner.ID, a.ID, "")

	if err := svc.CancelMine(context.Background(), other.ID, ar.ID); !errors.Is(err, ErrCancelNotEligible) {
		t.Fatalf("expected ErrCancelNotEligible, got %v", err)
	}
}

func TestAdoption_CancelMine_Processed(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	ar, _ := svc.Create(context.Background(), u.ID, a.ID, "")
	if _, err := svc.Process(context.Background(), ar.ID, ActionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := svc.CancelMine(context.Background(), u.ID, ar.ID); !errors.Is(err, ErrCancelNotEligible) {
		t.Fatalf("expected ErrCancelNotEligible, got %v", err)
	}
}

func TestAdoption_CancelMine_Missing(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u := seedUser(t, db, "u1", "user")

	if err := svc.CancelMine(context.Background(), u.ID, 424242); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestAdoption_List_Views(t *testing.T) {
	svc, db, _, _, _ := newAdoptionFixture(t)
	u1 := seedUser(t, db, "u1", "user")
	u2 := seedUser(t, db, "u2", "user")
	a := seedAnimal(t, db, "Luna")
	b := seedAnimal(t, db, "Rex")

	if _, err := svc.Create(context.Background(), u1.ID, a.ID, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), u2.ID, b.ID, ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list = %d rows; want 2", len(all))
	}

	mine, err := svc.ListMine(context.Background(), u1.ID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 || mine[0].AnimalName != "Luna" {
		t.Fatalf("mine = %+v; want the Luna request only", mine)
	}
}
