package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"projector-tracker/internal/domain"
)

// Implementaciones en memoria para STORAGE_DRIVER=memory y tests.
// Respetan las mismas reglas de unicidad y devuelven pgx.ErrNoRows como las Pg*.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return ErrDuplicate
	}
	if r.conflictLocked(user) {
		return ErrDuplicate
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) conflictLocked(user domain.User) bool {
	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(u.Email, user.Email) {
			return true
		}
		if user.Username != "" && u.Username == user.Username {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if username != "" && u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *MemoryUserRepository) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MemoryUserRepository) ListActive(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	if r.conflictLocked(user) {
		return ErrDuplicate
	}
	r.users[user.ID] = user
	return nil
}

type otpKey struct {
	email   string
	purpose domain.OTPPurpose
}

type MemoryOTPRepository struct {
	mu      sync.Mutex
	records map[otpKey]domain.OtpRecord
}

func NewMemoryOTPRepository() *MemoryOTPRepository {
	return &MemoryOTPRepository{records: make(map[otpKey]domain.OtpRecord)}
}

func (r *MemoryOTPRepository) Upsert(_ context.Context, rec domain.OtpRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := otpKey{email: rec.Email, purpose: rec.Purpose}
	if prev, ok := r.records[key]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = rec.UpdatedAt
	}
	rec.Attempts = 0
	rec.Verified = false
	r.records[key] = rec
	return nil
}

func (r *MemoryOTPRepository) Get(_ context.Context, email string, purpose domain.OTPPurpose) (domain.OtpRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[otpKey{email: email, purpose: purpose}]
	if !ok {
		return domain.OtpRecord{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (r *MemoryOTPRepository) IncrementAttempts(_ context.Context, email string, purpose domain.OTPPurpose) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := otpKey{email: email, purpose: purpose}
	rec, ok := r.records[key]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	rec.Attempts++
	r.records[key] = rec
	return rec.Attempts, nil
}

func (r *MemoryOTPRepository) Delete(_ context.Context, email string, purpose domain.OTPPurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, otpKey{email: email, purpose: purpose})
	return nil
}

func (r *MemoryOTPRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, key)
			n++
		}
	}
	return n, nil
}

type MemoryEquipmentRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Equipment
}

func NewMemoryEquipmentRepository() *MemoryEquipmentRepository {
	return &MemoryEquipmentRepository{items: make(map[string]domain.Equipment)}
}

func cloneEquipment(e domain.Equipment) domain.Equipment {
	if e.Specifications.Connectivity != nil {
		e.Specifications.Connectivity = append([]string(nil), e.Specifications.Connectivity...)
	}
	return e
}

func (r *MemoryEquipmentRepository) serialTakenLocked(e domain.Equipment) bool {
	if e.SerialNumber == "" {
		return false
	}
	for id, other := range r.items {
		if id != e.ID && other.SerialNumber == e.SerialNumber {
			return true
		}
	}
	return false
}

func (r *MemoryEquipmentRepository) Create(_ context.Context, e domain.Equipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[e.ID]; ok || r.serialTakenLocked(e) {
		return ErrDuplicate
	}
	r.items[e.ID] = cloneEquipment(e)
	return nil
}

func (r *MemoryEquipmentRepository) GetByID(_ context.Context, id string) (domain.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return domain.Equipment{}, pgx.ErrNoRows
	}
	return cloneEquipment(e), nil
}

func (r *MemoryEquipmentRepository) GetByIDs(_ context.Context, ids []string) ([]domain.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Equipment, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.items[id]; ok {
			out = append(out, cloneEquipment(e))
		}
	}
	return out, nil
}

func (r *MemoryEquipmentRepository) ListActive(_ context.Context) ([]domain.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Equipment, 0, len(r.items))
	for _, e := range r.items {
		if e.IsActive {
			out = append(out, cloneEquipment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryEquipmentRepository) Update(_ context.Context, e domain.Equipment, expected domain.EquipmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[e.ID]
	if !ok || current.Status != expected {
		return ErrStaleState
	}
	if r.serialTakenLocked(e) {
		return ErrDuplicate
	}
	r.items[e.ID] = cloneEquipment(e)
	return nil
}

type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[string]domain.Booking)}
}

func (r *MemoryBookingRepository) Create(_ context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return ErrDuplicate
	}
	r.bookings[b.ID] = b
	return nil
}

func (r *MemoryBookingRepository) GetByID(_ context.Context, id string) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, pgx.ErrNoRows
	}
	return b, nil
}

func (r *MemoryBookingRepository) List(_ context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range r.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.EquipmentID != "" && b.EquipmentID != filter.EquipmentID {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (r *MemoryBookingRepository) ListBlocking(_ context.Context, equipmentID string, window domain.Interval) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range r.bookings {
		if b.EquipmentID == equipmentID && b.Status.Blocking() && b.Interval().Overlaps(window) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemoryBookingRepository) UpdateStatus(_ context.Context, id string, from, to domain.BookingStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return ErrStaleState
	}
	b.Status = to
	b.UpdatedAt = now
	r.bookings[id] = b
	return nil
}

type MemoryActivityRepository struct {
	mu    sync.RWMutex
	items []domain.Activity
}

func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{}
}

func (r *MemoryActivityRepository) Create(_ context.Context, a domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, a)
	return nil
}

// newestFirstLocked copia y ordena por fecha descendente; a igual fecha, el último insertado primero.
func (r *MemoryActivityRepository) newestFirstLocked(keep func(domain.Activity) bool) []domain.Activity {
	out := make([]domain.Activity, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0; i-- {
		if keep(r.items[i]) {
			out = append(out, r.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MemoryActivityRepository) ListRecent(_ context.Context, limit int) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.newestFirstLocked(func(domain.Activity) bool { return true })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryActivityRepository) ListByEquipment(_ context.Context, equipmentID string) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirstLocked(func(a domain.Activity) bool { return a.EquipmentID == equipmentID }), nil
}

func (r *MemoryActivityRepository) ListByUser(_ context.Context, userID string) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirstLocked(func(a domain.Activity) bool { return a.UserID == userID }), nil
}

func (r *MemoryActivityRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *MemoryActivityRepository) CountByAction(_ context.Context) ([]domain.ActionCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byAction := make(map[domain.ActivityAction]int64)
	for _, a := range r.items {
		byAction[a.Action]++
	}
	out := make([]domain.ActionCount, 0, len(byAction))
	for action, n := range byAction {
		out = append(out, domain.ActionCount{Action: action, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	return out, nil
}

func (r *MemoryActivityRepository) CountByDay(_ context.Context, since time.Time) ([]domain.DayCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byDay := make(map[string]int64)
	for _, a := range r.items {
		if a.CreatedAt.Before(since) {
			continue
		}
		byDay[a.CreatedAt.UTC().Format("2006-01-02")]++
	}
	out := make([]domain.DayCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, domain.DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

var (
	_ UserRepository      = (*MemoryUserRepository)(nil)
	_ OTPRepository       = (*MemoryOTPRepository)(nil)
	_ EquipmentRepository = (*MemoryEquipmentRepository)(nil)
	_ BookingRepository   = (*MemoryBookingRepository)(nil)
	_ ActivityRepository  = (*MemoryActivityRepository)(nil)

	_ UserRepository      = (*PgUserRepository)(nil)
	_ OTPRepository       = (*PgOTPRepository)(nil)
	_ EquipmentRepository = (*PgEquipmentRepository)(nil)
	_ BookingRepository   = (*PgBookingRepository)(nil)
	_ ActivityRepository  = (*PgActivityRepository)(nil)
)
