package domain

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestIntervalOverlapsHalfOpen(t *testing.T) {
	base := Interval{Start: at(10, 0), End: at(12, 0)}

	cases := []struct {
		name string
		in   Interval
		want bool
	}{
		{"tail overlap", Interval{at(11, 0), at(13, 0)}, true},
		{"head overlap", Interval{at(9, 0), at(10, 30)}, true},
		{"contained", Interval{at(10, 30), at(11, 0)}, true},
		{"containing", Interval{at(9, 0), at(13, 0)}, true},
		{"identical", Interval{at(10, 0), at(12, 0)}, true},
		{"touching end", Interval{at(12, 0), at(13, 0)}, false},
		{"touching start", Interval{at(8, 0), at(10, 0)}, false},
		{"disjoint", Interval{at(14, 0), at(15, 0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.in); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
			if got := tc.in.Overlaps(base); got != tc.want {
				t.Fatalf("reverse Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIntervalContains(t *testing.T) {
	i := Interval{Start: at(10, 0), End: at(12, 0)}
	if !i.Contains(at(10, 0)) || !i.Contains(at(11, 59)) {
		t.Fatalf("expected start and inner instants to be contained")
	}
	if i.Contains(at(12, 0)) || i.Contains(at(9, 59)) {
		t.Fatalf("expected end and earlier instants to be excluded")
	}
}

func TestBookingCoveredCreation(t *testing.T) {
	running := Booking{StartTime: at(10, 0), EndTime: at(12, 0), CreatedAt: at(10, 30)}
	if !running.CoveredCreation() {
		t.Fatalf("booking created inside its interval must report it")
	}
	future := Booking{StartTime: at(10, 0), EndTime: at(12, 0), CreatedAt: at(9, 0)}
	if future.CoveredCreation() {
		t.Fatalf("booking created before its start must not report it")
	}
}

func TestFirstConflictIgnoresOtherEquipmentAndTerminalBookings(t *testing.T) {
	existing := []Booking{
		{ID: "b1", EquipmentID: "p2", StartTime: at(10, 0), EndTime: at(12, 0), Status: BookingPending},
		{ID: "b2", EquipmentID: "p1", StartTime: at(10, 0), EndTime: at(12, 0), Status: BookingCancelled},
		{ID: "b3", EquipmentID: "p1", StartTime: at(10, 0), EndTime: at(12, 0), Status: BookingCompleted},
	}
	if _, found := FirstConflict(existing, "p1", Interval{at(11, 0), at(13, 0)}); found {
		t.Fatalf("expected no conflict")
	}

	existing = append(existing, Booking{ID: "b4", EquipmentID: "p1", StartTime: at(10, 0), EndTime: at(12, 0), Status: BookingActive})
	got, found := FirstConflict(existing, "p1", Interval{at(11, 0), at(13, 0)})
	if !found || got.ID != "b4" {
		t.Fatalf("expected conflict with b4, got %q found=%v", got.ID, found)
	}
}

func TestBookingStatusPredicates(t *testing.T) {
	if !BookingPending.Blocking() || !BookingActive.Blocking() || BookingCancelled.Blocking() {
		t.Fatalf("unexpected blocking predicates")
	}
	if !BookingCompleted.Terminal() || !BookingCancelled.Terminal() {
		t.Fatalf("completed and cancelled must be terminal")
	}
	if BookingStatus("nope").Valid() {
		t.Fatalf("unknown status must be invalid")
	}
}

func TestResendStateConsume(t *testing.T) {
	var r ResendState
	now := at(9, 0)
	for i := 0; i < 3; i++ {
		if !r.Consume(now.Add(time.Duration(i)*time.Minute), time.Hour, 3) {
			t.Fatalf("resend %d should be allowed", i+1)
		}
	}
	if r.Consume(now.Add(59*time.Minute), time.Hour, 3) || r.Count != 3 {
		t.Fatalf("fourth resend in window should be denied, count=%d", r.Count)
	}

	if !r.Consume(now.Add(time.Hour), time.Hour, 3) {
		t.Fatalf("window should reset after an hour")
	}
	if r.Count != 1 || !r.WindowStart.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected fresh window, got count=%d start=%v", r.Count, r.WindowStart)
	}
}

func TestOtpRecordPredicates(t *testing.T) {
	rec := OtpRecord{ExpiresAt: at(10, 10), Attempts: 4}
	if rec.Expired(at(10, 9)) || !rec.Expired(at(10, 10)) {
		t.Fatalf("expiry must be reached at ExpiresAt")
	}
	if rec.Locked(5) {
		t.Fatalf("4 attempts must not lock")
	}
	rec.Attempts = 5
	if !rec.Locked(5) {
		t.Fatalf("5 attempts must lock")
	}
}

func TestEmailHelpers(t *testing.T) {
	if got := NormalizeEmail("  Jane.Doe@UNI.edu "); got != "jane.doe@uni.edu" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
	if got := EmailLocalPart("Jane.Doe@uni.edu"); got != "jane.doe" {
		t.Fatalf("EmailLocalPart = %q", got)
	}
}
