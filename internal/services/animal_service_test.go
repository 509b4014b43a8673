package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// newCachedAnimalService wires the service to a real cache.Store backed by
// miniredis so caching behavior is observable through the store's counters.
func newCachedAnimalService(t *testing.T) (*AnimalService, *cache.Store, *fakeBus) {
	t.Helper()
	db := newTestDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := cache.New(client)
	fb := &fakeBus{}
	return NewAnimalService(db, store, fb, 5*time.Minute, time.Minute), store, fb
}

func TestAnimal_List_CachesResult(t *testing.T) {
	svc, store, _ := newCachedAnimalService(t)
	seedAnimal(t, svc.DB, "Luna")
	seedAnimal(t, svc.DB, "Rex")

	first, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("list = %d; want 2", len(first))
	}
	if s := store.Stats(); s.Misses != 1 || s.Sets != 1 {
		t.Fatalf("after cold read: %+v", s)
	}

	second, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("warm list: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("warm list = %d; want 2", len(second))
	}
	if s := store.Stats(); s.Hits != 1 {
		t.Fatalf("after warm read: %+v", s)
	}
}

func TestAnimal_Mutation_InvalidatesAndAnnounces(t *testing.T) {
	svc, store, fb := newCachedAnimalService(t)
	a := seedAnimal(t, svc.DB, "Luna")

	// Warm the list cache, then mutate.
	if _, err := svc.List(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}

	a.Name = "Luna II"
	if _, err := svc.Update(context.Background(), a.ID, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	if evs := fb.published(); len(evs) != 1 || evs[0] != "updated" {
		t.Fatalf("published = %v", evs)
	}

	// The next list read must miss and observe the new name.
	store.ResetStats()
	out, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list after update: %v", err)
	}
	if s := store.Stats(); s.Misses != 1 {
		t.Fatalf("expected a cache miss after invalidation: %+v", s)
	}
	if out[0].Name != "Luna II" {
		t.Fatalf("name = %q; want updated value", out[0].Name)
	}
}

func TestAnimal_Get_NotFound(t *testing.T) {
	svc, _, _ := newCachedAnimalService(t)
	if _, err := svc.Get(context.Background(), 424242); !errors.Is(err, ErrAnimalNotFound) {
		t.Fatalf("expected ErrAnimalNotFound, got %v", err)
	}
}

func TestAnimal_Search_FilterAndPagination(t *testing.T) {
	svc, _, _ := newCachedAnimalService(t)
	db := svc.DB
	for _, a := range []domain.Animal{
		{Name: "Luna", Species: "cat"},
		{Name: "Rex", Species: "dog"},
		{Name: "Lucky", Species: "dog", Adopted: true},
		{Name: "Misty", Species: "cat"},
	} {
		aa := a
		if err := db.Create(&aa).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	adopted := false
	page, err := svc.Search(context.Background(), repo.AnimalFilter{Species: "dog", Adopted: &adopted}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 || len(page.Animals) != 1 || page.Animals[0].Name != "Rex" {
		t.Fatalf("search = %+v; want Rex only", page)
	}

	// Free-text query is case-insensitive.
	page, err = svc.Search(context.Background(), repo.AnimalFilter{Query: "lU"}, 1, 10)
	if err != nil {
		t.Fatalf("query search: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("query total = %d; want 2 (Luna, Lucky)", page.Total)
	}

	// Pagination clamps and pages.
	page, err = svc.Search(context.Background(), repo.AnimalFilter{}, 2, 3)
	if err != nil {
		t.Fatalf("paged search: %v", err)
	}
	if page.Total != 4 || len(page.Animals) != 1 {
		t.Fatalf("page 2 = total %d, rows %d; want 4/1", page.Total, len(page.Animals))
	}
}

func TestAnimal_Search_CachesPerQuery(t *testing.T) {
	svc, store, _ := newCachedAnimalService(t)
	seedAnimal(t, svc.DB, "Luna")

	if _, err := svc.Search(context.Background(), repo.AnimalFilter{Query: "lun"}, 1, 10); err != nil {
		t.Fatalf("search: %v", err)
	}
	store.ResetStats()
	if _, err := svc.Search(context.Background(), repo.AnimalFilter{Query: "lun"}, 1, 10); err != nil {
		t.Fatalf("repeat search: %v", err)
	}
	if s := store.Stats(); s.Hits != 1 {
		t.Fatalf("identical query should hit: %+v", s)
	}

	// A different filter gets its own entry.
	if _, err := svc.Search(context.Background(), repo.AnimalFilter{Query: "rex"}, 1, 10); err != nil {
		t.Fatalf("other search: %v", err)
	}
	if s := store.Stats(); s.Misses != 1 {
		t.Fatalf("different query should miss: %+v", s)
	}
}

func TestAnimal_Delete_NotFound(t *testing.T) {
	svc, _, _ := newCachedAnimalService(t)
	if err := svc.Delete(context.Background(), 424242); !errors.Is(err, ErrAnimalNotFound) {
		t.Fatalf("expected ErrAnimalNotFound, got %v", err)
	}
}

func TestAnimal_ListAdopted_RequiresKnownAdopter(t *testing.T) {
	svc, _, _ := newCachedAnimalService(t)
	db := svc.DB
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	// Adopted without a workflow run (e.g. bulk import): excluded.
	orphan := &domain.Animal{Name: "Ghost", Species: "cat", Adopted: true}
	if err := db.Create(orphan).Error; err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	notif := NewNotificationService(db, nil)
	adopt := NewAdoptionService(db, notif, nil, nil, nil)
	ar, err := adopt.Create(context.Background(), u.ID, a.ID, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := adopt.Process(context.Background(), ar.ID, ActionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}

	out, err := svc.ListAdopted(context.Background())
	if err != nil {
		t.Fatalf("list adopted: %v", err)
	}
	if len(out) != 1 || out[0].AdopterUsername != "u1" {
		t.Fatalf("adopted = %+v; want Luna adopted by u1", out)
	}
}

func TestAnimal_WarmListCache(t *testing.T) {
	svc, store, _ := newCachedAnimalService(t)
	seedAnimal(t, svc.DB, "Luna")

	n, err := svc.WarmListCache(context.Background())
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	if n != 1 {
		t.Fatalf("warmed %d; want 1", n)
	}
	store.ResetStats()
	if _, err := svc.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if s := store.Stats(); s.Hits != 1 {
		t.Fatalf("list after warm should hit: %+v", s)
	}
}
