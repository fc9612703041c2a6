package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"projector-tracker/internal/domain"
)

func TestBookingService_OverlapDetection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	arun := f.addUser(t, "arun", "arun@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "Projector CSE-101")

	first, err := f.booking.Create(ctx, priya, BookingInput{EquipmentID: p.ID, StartTime: at(10, 0), EndTime: at(12, 0), Purpose: "Lecture"})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if first.Status != domain.BookingPending || first.Equipment == nil || first.Equipment.Name != "Projector CSE-101" || first.User == nil || first.User.ID != "priya" {
		t.Fatalf("unexpected booking view: %+v", first)
	}

	if _, err := f.booking.Create(ctx, arun, BookingInput{EquipmentID: p.ID, StartTime: at(11, 0), EndTime: at(13, 0), Purpose: "Lab"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected overlap conflict, got %v", err)
	}
	if _, err := f.booking.Create(ctx, arun, BookingInput{EquipmentID: p.ID, StartTime: at(12, 0), EndTime: at(13, 0), Purpose: "Lab"}); err != nil {
		t.Fatalf("touching interval must be accepted: %v", err)
	}

	// reserva futura: el equipo sigue disponible
	view, err := f.equip.Get(ctx, p.ID)
	if err != nil || view.Status != domain.EquipmentAvailable {
		t.Fatalf("expected available projector, got %s (%v)", view.Status, err)
	}

	acts, _ := f.activities.ListByUser(ctx, "priya")
	if len(acts) != 1 || acts[0].Action != domain.ActionBooked || acts[0].Notes != "Booked Projector CSE-101 for Lecture" {
		t.Fatalf("unexpected booking activity: %+v", acts)
	}
}

func TestBookingService_OtherEquipmentDoesNotConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	p1 := f.addProjector(t, admin, "P-1")
	p2 := f.addProjector(t, admin, "P-2")

	in := BookingInput{EquipmentID: p1.ID, StartTime: at(10, 0), EndTime: at(12, 0), Purpose: "Lecture"}
	if _, err := f.booking.Create(ctx, priya, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	in.EquipmentID = p2.ID
	if _, err := f.booking.Create(ctx, priya, in); err != nil {
		t.Fatalf("same slot on another projector must be accepted: %v", err)
	}
}

func TestBookingService_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	cases := []struct {
		name string
		in   BookingInput
		want error
	}{
		{"unknown equipment", BookingInput{EquipmentID: "missing", StartTime: at(10, 0), EndTime: at(11, 0), Purpose: "x"}, domain.ErrNotFound},
		{"end before start", BookingInput{EquipmentID: p.ID, StartTime: at(11, 0), EndTime: at(10, 0), Purpose: "x"}, domain.ErrValidation},
		{"empty interval", BookingInput{EquipmentID: p.ID, StartTime: at(10, 0), EndTime: at(10, 0), Purpose: "x"}, domain.ErrValidation},
		{"missing times", BookingInput{EquipmentID: p.ID, Purpose: "x"}, domain.ErrValidation},
		{"missing purpose", BookingInput{EquipmentID: p.ID, StartTime: at(10, 0), EndTime: at(11, 0), Purpose: "  "}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.booking.Create(ctx, priya, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBookingService_CancelRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	arun := f.addUser(t, "arun", "arun@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	b, err := f.booking.Create(ctx, priya, BookingInput{EquipmentID: p.ID, StartTime: at(10, 0), EndTime: at(12, 0), Purpose: "Lecture"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.booking.Cancel(ctx, arun, b.ID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for another faculty, got %v", err)
	}
	cancelled, err := f.booking.Cancel(ctx, priya, b.ID, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.BookingCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if _, err := f.booking.Cancel(ctx, priya, b.ID, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second cancel, got %v", err)
	}
	if _, err := f.booking.Cancel(ctx, priya, "missing", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// una reserva cancelada ya no bloquea el intervalo
	if _, err := f.booking.Create(ctx, arun, BookingInput{EquipmentID: p.ID, StartTime: at(11, 0), EndTime: at(12, 0), Purpose: "Lab"}); err != nil {
		t.Fatalf("cancelled booking must not block: %v", err)
	}

	f.notifier.Wait()
	if len(f.sender.sentTo("priya@cse.edu")) != 2 {
		t.Fatalf("expected booking and cancellation emails for priya")
	}
}

func TestBookingService_AdminCancelsAnyBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	b, err := f.booking.Create(ctx, priya, BookingInput{EquipmentID: p.ID, StartTime: at(10, 0), EndTime: at(12, 0), Purpose: "Lecture"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.booking.Cancel(ctx, admin, b.ID, "room unavailable"); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	acts, _ := f.activities.ListByUser(ctx, "nikhil")
	if len(acts) == 0 || acts[0].Action != domain.ActionCancelled || acts[0].Notes != "room unavailable" {
		t.Fatalf("expected cancel activity by admin, got %+v", acts)
	}
}

func TestBookingService_CurrentBookingMarksEquipment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	b, err := f.booking.Create(ctx, priya, BookingInput{EquipmentID: p.ID, StartTime: fixtureStart.Add(-30 * time.Minute), EndTime: fixtureStart.Add(time.Hour), Purpose: "Seminar"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, _ := f.equip.Get(ctx, p.ID)
	if view.Status != domain.EquipmentBooked {
		t.Fatalf("expected booked, got %s", view.Status)
	}
	if _, err := f.equip.CheckOut(ctx, priya, p.ID, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected booked projector to refuse checkout, got %v", err)
	}

	if _, err := f.booking.Cancel(ctx, priya, b.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	view, _ = f.equip.Get(ctx, p.ID)
	if view.Status != domain.EquipmentAvailable {
		t.Fatalf("expected available after cancel, got %s", view.Status)
	}
}

func TestBookingService_CancelAfterEndReleasesEquipment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	b, err := f.booking.Create(ctx, priya, BookingInput{EquipmentID: p.ID, StartTime: fixtureStart.Add(-10 * time.Minute), EndTime: fixtureStart.Add(time.Hour), Purpose: "Seminar"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.advance(2 * time.Hour)

	if _, err := f.booking.Cancel(ctx, priya, b.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	view, _ := f.equip.Get(ctx, p.ID)
	if view.Status != domain.EquipmentAvailable {
		t.Fatalf("expected available after cancelling an ended booking, got %s", view.Status)
	}
	if _, err := f.equip.CheckOut(ctx, priya, p.ID, ""); err != nil {
		t.Fatalf("checkout after release: %v", err)
	}
}

func TestBookingService_CancelKeepsMarkOfCurrentBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	arun := f.addUser(t, "arun", "arun@cse.edu", domain.RoleFaculty)
	rajesh := f.addUser(t, "rajesh", "rajesh@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	if _, err := f.equip.CheckOut(ctx, priya, p.ID, ""); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// creada con el equipo prestado: no lo marca
	early, err := f.booking.Create(ctx, arun, BookingInput{EquipmentID: p.ID, StartTime: fixtureStart.Add(-10 * time.Minute), EndTime: fixtureStart.Add(20 * time.Minute), Purpose: "Lab"})
	if err != nil {
		t.Fatalf("create early: %v", err)
	}
	f.clock.advance(30 * time.Minute)
	if _, err := f.equip.CheckIn(ctx, priya, p.ID, ""); err != nil {
		t.Fatalf("checkin: %v", err)
	}
	now := f.clock.now()
	current, err := f.booking.Create(ctx, rajesh, BookingInput{EquipmentID: p.ID, StartTime: now, EndTime: now.Add(time.Hour), Purpose: "Lecture"})
	if err != nil {
		t.Fatalf("create current: %v", err)
	}

	if _, err := f.booking.Cancel(ctx, arun, early.ID, ""); err != nil {
		t.Fatalf("cancel early: %v", err)
	}
	view, _ := f.equip.Get(ctx, p.ID)
	if view.Status != domain.EquipmentBooked {
		t.Fatalf("expected booked while another booking is running, got %s", view.Status)
	}

	if _, err := f.booking.Cancel(ctx, rajesh, current.ID, ""); err != nil {
		t.Fatalf("cancel current: %v", err)
	}
	view, _ = f.equip.Get(ctx, p.ID)
	if view.Status != domain.EquipmentAvailable {
		t.Fatalf("expected available, got %s", view.Status)
	}
}

func TestBookingService_CurrentBookingKeepsMaintenance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	maintenance := domain.EquipmentMaintenance
	if _, err := f.equip.Update(ctx, admin, p.ID, EquipmentPatch{Status: &maintenance}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.booking.Create(ctx, priya, BookingInput{EquipmentID: p.ID, StartTime: fixtureStart, EndTime: fixtureStart.Add(time.Hour), Purpose: "Seminar"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	view, _ := f.equip.Get(ctx, p.ID)
	if view.Status != domain.EquipmentMaintenance {
		t.Fatalf("expected maintenance to be kept, got %s", view.Status)
	}
}

func TestBookingService_ListFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(t, "nikhil", fixtureAdminEmail, domain.RoleAdmin)
	priya := f.addUser(t, "priya", "priya@cse.edu", domain.RoleFaculty)
	arun := f.addUser(t, "arun", "arun@cse.edu", domain.RoleFaculty)
	p := f.addProjector(t, admin, "P-1")

	for i, actor := range []domain.Actor{priya, arun, priya} {
		start := at(9+2*i, 0)
		if _, err := f.booking.Create(ctx, actor, BookingInput{EquipmentID: p.ID, StartTime: start, EndTime: start.Add(time.Hour), Purpose: "Class"}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	all, err := f.booking.List(ctx, domain.BookingFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 bookings, got %d (%v)", len(all), err)
	}
	if !all[0].StartTime.Equal(at(13, 0)) {
		t.Fatalf("expected newest start first, got %s", all[0].StartTime)
	}
	mine, _ := f.booking.List(ctx, domain.BookingFilter{UserID: "priya"})
	if len(mine) != 2 {
		t.Fatalf("expected 2 bookings for priya, got %d", len(mine))
	}
	if _, err := f.booking.List(ctx, domain.BookingFilter{Status: "archived"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation for unknown status, got %v", err)
	}

	got, err := f.booking.Get(ctx, mine[0].ID)
	if err != nil || got.ID != mine[0].ID {
		t.Fatalf("get: %+v (%v)", got, err)
	}
}
