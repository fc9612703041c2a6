package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"projector-tracker/internal/domain"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestMemoryUserRepositoryUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	if err := repo.Create(ctx, domain.User{ID: "u1", Email: "ana@uni.edu", Username: "ana", IsActive: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, domain.User{ID: "u2", Email: "ANA@uni.edu"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if err := repo.Create(ctx, domain.User{ID: "u3", Email: "other@uni.edu", Username: "ana"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate username, got %v", err)
	}

	u, err := repo.GetByEmail(ctx, "Ana@Uni.edu")
	if err != nil || u.ID != "u1" {
		t.Fatalf("expected u1 by case-insensitive email, got %+v err=%v", u, err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestMemoryOTPRepositoryUpsertResetsAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOTPRepository()
	rec := domain.OtpRecord{Email: "a@b.c", Purpose: domain.OTPPurposeLogin, CodeHash: "h1", ExpiresAt: base.Add(10 * time.Minute), UpdatedAt: base}

	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n, err := repo.IncrementAttempts(ctx, "a@b.c", domain.OTPPurposeLogin); err != nil || n != 1 {
		t.Fatalf("expected 1 attempt, got %d err=%v", n, err)
	}

	rec.CodeHash = "h2"
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := repo.Get(ctx, "a@b.c", domain.OTPPurposeLogin)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CodeHash != "h2" || got.Attempts != 0 {
		t.Fatalf("expected replaced code with reset attempts, got %+v", got)
	}

	if _, err := repo.Get(ctx, "a@b.c", domain.OTPPurposeVerify); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("purposes must be independent, got %v", err)
	}

	removed, err := repo.DeleteExpired(ctx, base.Add(10*time.Minute))
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 expired record removed, got %d err=%v", removed, err)
	}
}

func TestMemoryEquipmentRepositoryCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEquipmentRepository()
	e := domain.Equipment{ID: "p1", Name: "Epson", Brand: "Epson", SerialNumber: "SN1", Status: domain.EquipmentAvailable, IsActive: true}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, domain.Equipment{ID: "p2", SerialNumber: "SN1"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate serial, got %v", err)
	}

	if err := e.CheckOut("u1", base); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := repo.Update(ctx, e, domain.EquipmentAvailable); err != nil {
		t.Fatalf("update: %v", err)
	}

	// un segundo escritor con la vista vieja pierde
	stale := e
	stale.Status = domain.EquipmentMaintenance
	stale.CurrentUserID = nil
	if err := repo.Update(ctx, stale, domain.EquipmentAvailable); !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected stale state, got %v", err)
	}

	got, err := repo.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.EquipmentCheckedOut || got.CurrentUserID == nil || *got.CurrentUserID != "u1" {
		t.Fatalf("expected first write to survive, got %+v", got)
	}
}

func TestMemoryBookingRepositoryListBlocking(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()
	mk := func(id string, startH, endH int, status domain.BookingStatus) domain.Booking {
		return domain.Booking{
			ID:          id,
			EquipmentID: "p1",
			StartTime:   base.Add(time.Duration(startH) * time.Hour),
			EndTime:     base.Add(time.Duration(endH) * time.Hour),
			Status:      status,
		}
	}
	for _, b := range []domain.Booking{
		mk("b1", 1, 2, domain.BookingPending),
		mk("b2", 2, 3, domain.BookingCancelled),
		mk("b3", 4, 5, domain.BookingActive),
	} {
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("create %s: %v", b.ID, err)
		}
	}

	got, err := repo.ListBlocking(ctx, "p1", domain.Interval{Start: base.Add(90 * time.Minute), End: base.Add(5 * time.Hour)})
	if err != nil {
		t.Fatalf("list blocking: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b1" || got[1].ID != "b3" {
		t.Fatalf("expected b1 and b3 ordered by start, got %+v", got)
	}

	got, err = repo.ListBlocking(ctx, "p1", domain.Interval{Start: base.Add(2 * time.Hour), End: base.Add(4 * time.Hour)})
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no blocking bookings in the gap, got %+v err=%v", got, err)
	}

	if err := repo.UpdateStatus(ctx, "b1", domain.BookingPending, domain.BookingCancelled, base); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := repo.UpdateStatus(ctx, "b1", domain.BookingPending, domain.BookingCancelled, base); !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected stale state on second cancel, got %v", err)
	}

	list, err := repo.List(ctx, domain.BookingFilter{Status: domain.BookingCancelled})
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 cancelled bookings, got %d err=%v", len(list), err)
	}
}

func TestMemoryActivityRepositoryOrderingAndStats(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryActivityRepository()
	for i, action := range []domain.ActivityAction{domain.ActionCheckOut, domain.ActionCheckIn, domain.ActionCheckOut} {
		err := repo.Create(ctx, domain.Activity{
			ID:          string(rune('a' + i)),
			UserID:      "u1",
			EquipmentID: "p1",
			Action:      action,
			CreatedAt:   base.Add(time.Duration(i) * 24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	recent, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "c" || recent[1].ID != "b" {
		t.Fatalf("expected newest first, got %+v", recent)
	}

	byAction, err := repo.CountByAction(ctx)
	if err != nil {
		t.Fatalf("count by action: %v", err)
	}
	if len(byAction) != 2 ||
		byAction[0] != (domain.ActionCount{Action: domain.ActionCheckOut, Count: 2}) ||
		byAction[1] != (domain.ActionCount{Action: domain.ActionCheckIn, Count: 1}) {
		t.Fatalf("unexpected action counts: %+v", byAction)
	}

	days, err := repo.CountByDay(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("count by day: %v", err)
	}
	if len(days) != 2 ||
		days[0] != (domain.DayCount{Day: "2025-03-11", Count: 1}) ||
		days[1] != (domain.DayCount{Day: "2025-03-12", Count: 1}) {
		t.Fatalf("unexpected day counts: %+v", days)
	}
}
