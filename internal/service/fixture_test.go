package service

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/email"
	"projector-tracker/internal/repository"
)

type recordingSender struct {
	mu       sync.Mutex
	msgs     []email.Message
	accepted bool
	err      error
}

func (r *recordingSender) Send(_ context.Context, msg email.Message) (email.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return email.Receipt{}, r.err
	}
	r.msgs = append(r.msgs, msg)
	return email.Receipt{Accepted: r.accepted, TransportID: "test"}, nil
}

func (r *recordingSender) sentTo(to string) []email.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []email.Message
	for _, m := range r.msgs {
		if m.To == to {
			out = append(out, m)
		}
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock      *fakeClock
	users      *repository.MemoryUserRepository
	otps       *repository.MemoryOTPRepository
	equipment  *repository.MemoryEquipmentRepository
	bookings   *repository.MemoryBookingRepository
	activities *repository.MemoryActivityRepository
	sender     *recordingSender
	notifier   *Notifier
	tokens     *JWTService
	auth       *AuthService
	equip      *EquipmentService
	booking    *BookingService
	activity   *ActivityService
}

const fixtureAdminEmail = "admin@cse.edu"

// 2025-03-10 08:00 UTC
var fixtureStart = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:      &fakeClock{t: fixtureStart},
		users:      repository.NewMemoryUserRepository(),
		otps:       repository.NewMemoryOTPRepository(),
		equipment:  repository.NewMemoryEquipmentRepository(),
		bookings:   repository.NewMemoryBookingRepository(),
		activities: repository.NewMemoryActivityRepository(),
		sender:     &recordingSender{},
	}
	f.notifier = NewNotifier(f.sender, nil, nil)
	f.tokens = NewJWTService("test-secret", time.Hour, 24*time.Hour)
	f.tokens.store = newMemorySessionStore(f.clock.now)
	f.tokens.now = f.clock.now

	limiter := newOTPRateLimiter(10*time.Minute, 3, f.clock.now)
	f.auth = NewAuthService(nil, f.users, f.otps, f.tokens, f.notifier, limiter, nil, AuthSettings{
		OTPTTL:         10 * time.Minute,
		OTPMaxAttempts: 5,
		ResendMax:      3,
		ResendWindow:   time.Hour,
		PreviewEnabled: true,
		BaseURL:        "http://localhost:5173/",
		BcryptCost:     bcrypt.MinCost,
	})
	f.auth.now = f.clock.now

	f.activity = NewActivityService(nil, f.activities, f.users, f.equipment, nil)
	f.activity.now = f.clock.now
	f.equip = NewEquipmentService(nil, f.equipment, f.users, f.activity, f.notifier, nil, fixtureAdminEmail)
	f.equip.now = f.clock.now
	f.booking = NewBookingService(nil, f.bookings, f.equipment, f.users, f.activity, f.notifier, nil)
	f.booking.now = f.clock.now
	t.Cleanup(f.notifier.Wait)
	return f
}

func (f *fixture) addUser(t *testing.T, id, emailAddr string, role domain.Role) domain.Actor {
	t.Helper()
	now := f.clock.now()
	err := f.users.Create(context.Background(), domain.User{
		ID:         id,
		Name:       strings.ToUpper(id[:1]) + id[1:],
		Email:      emailAddr,
		Role:       role,
		IsActive:   true,
		IsVerified: true,
		VerifiedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return domain.Actor{UserID: id, Email: emailAddr, Role: role}
}

func (f *fixture) addProjector(t *testing.T, admin domain.Actor, name string) domain.EquipmentView {
	t.Helper()
	view, err := f.equip.Create(context.Background(), admin, EquipmentInput{Name: name, Brand: "Epson", Model: "EB-X05"})
	if err != nil {
		t.Fatalf("create projector: %v", err)
	}
	return view
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("no token in link %q", link)
	}
	return token
}

// at devuelve la hora h:m del día del fixture.
func at(h, m int) time.Time {
	return time.Date(fixtureStart.Year(), fixtureStart.Month(), fixtureStart.Day(), h, m, 0, 0, time.UTC)
}
