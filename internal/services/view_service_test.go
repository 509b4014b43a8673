package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barinakhq/shelter-backend/internal/domain"
)

func TestView_Record_And_ListMine(t *testing.T) {
	db := newTestDB(t)
	svc := NewViewService(db)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")
	b := seedAnimal(t, db, "Rex")

	if _, err := svc.Record(context.Background(), u.ID, a.ID); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := svc.Record(context.Background(), u.ID, b.ID); err != nil {
		t.Fatalf("record: %v", err)
	}

	out, err := svc.ListMine(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("views = %d; want 2", len(out))
	}

	n, err := svc.CountMine(context.Background(), u.ID)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v; want 2", n, err)
	}
}

func TestView_Record_RepeatBumpsTimestamp(t *testing.T) {
	db := newTestDB(t)
	svc := NewViewService(db)
	u := seedUser(t, db, "u1", "user")
	a := seedAnimal(t, db, "Luna")

	if _, err := svc.Record(context.Background(), u.ID, a.ID); err != nil {
		t.Fatalf("record: %v", err)
	}
	var first domain.UserView
	db.Where("user_id = ? AND animal_id = ?", u.ID, a.ID).First(&first)

	time.Sleep(10 * time.Millisecond)
	if _, err := svc.Record(context.Background(), u.ID, a.ID); err != nil {
		t.Fatalf("repeat record: %v", err)
	}

	var rows int64
	db.Model(&domain.UserView{}).Where("user_id = ?", u.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("rows = %d; want 1 (upsert)", rows)
	}
	var second domain.UserView
	db.Where("user_id = ? AND animal_id = ?", u.ID, a.ID).First(&second)
	if !second.ViewedAt.After(first.ViewedAt) {
		t.Fatalf("viewed_at not bumped: %v vs %v", first.ViewedAt, second.ViewedAt)
	}
}

func TestView_Record_InvalidTargets(t *testing.T) {
	db := newTestDB(t)
	svc := NewViewService(db)
	u := seedUser(t, db, "u1", "user")

	if _, err := svc.Record(context.Background(), u.ID, 0); !errors.Is(err, ErrInvalidAnimalID) {
		t.Fatalf("zero id: got %v", err)
	}
	if _, err := svc.Record(context.Background(), u.ID, 424242); !errors.Is(err, ErrAnimalNotFound) {
		t.Fatalf("missing animal: got %v", err)
	}
}
