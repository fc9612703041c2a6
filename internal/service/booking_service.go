package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/email"
	"projector-tracker/internal/metrics"
	"projector-tracker/internal/repository"
)

var (
	ErrBookingNotFound  = fmt.Errorf("booking %w", domain.ErrNotFound)
	ErrBookingOverlap   = fmt.Errorf("projector already booked for this time slot: %w", domain.ErrConflict)
	ErrBookingForbidden = fmt.Errorf("only the owner or an admin can cancel this booking: %w", domain.ErrForbidden)
)

// BookingService detecta solapamientos y mantiene el estado booked del equipo.
// La verificación de solapamiento y la inserción no son atómicas: dos reservas
// concurrentes sobre el mismo intervalo pueden pasar ambas.
type BookingService struct {
	logger    *zap.Logger
	bookings  repository.BookingRepository
	equipment repository.EquipmentRepository
	users     repository.UserRepository
	activity  *ActivityService
	notifier  *Notifier
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewBookingService(
	logger *zap.Logger,
	bookings repository.BookingRepository,
	equipment repository.EquipmentRepository,
	users repository.UserRepository,
	activity *ActivityService,
	notifier *Notifier,
	m *metrics.Metrics,
) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		logger:    logger,
		bookings:  bookings,
		equipment: equipment,
		users:     users,
		activity:  activity,
		notifier:  notifier,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type BookingInput struct {
	EquipmentID string
	StartTime   time.Time
	EndTime     time.Time
	Purpose     string
	Notes       string
}

func (s *BookingService) Create(ctx context.Context, actor domain.Actor, input BookingInput) (domain.BookingView, error) {
	view, err := s.create(ctx, actor, input)
	s.metrics.Booking("create", metrics.Result(err))
	return view, err
}

func (s *BookingService) create(ctx context.Context, actor domain.Actor, input BookingInput) (domain.BookingView, error) {
	e, err := s.loadEquipment(ctx, input.EquipmentID)
	if err != nil {
		return domain.BookingView{}, err
	}

	want := domain.Interval{Start: input.StartTime.UTC(), End: input.EndTime.UTC()}
	if want.Start.IsZero() || want.End.IsZero() {
		return domain.BookingView{}, fmt.Errorf("%w: start and end time are required", domain.ErrValidation)
	}
	if !want.Valid() {
		return domain.BookingView{}, fmt.Errorf("%w: end time must be after start time", domain.ErrValidation)
	}
	purpose := strings.TrimSpace(input.Purpose)
	if purpose == "" {
		return domain.BookingView{}, fmt.Errorf("%w: purpose is required", domain.ErrValidation)
	}

	existing, err := s.bookings.ListBlocking(ctx, e.ID, want)
	if err != nil {
		return domain.BookingView{}, err
	}
	if clash, ok := domain.FirstConflict(existing, e.ID, want); ok {
		s.logger.Debug("booking overlap",
			zap.String("equipment_id", e.ID),
			zap.String("conflicting_booking", clash.ID),
		)
		return domain.BookingView{}, ErrBookingOverlap
	}

	now := s.now()
	b := domain.Booking{
		ID:          uuid.NewString(),
		EquipmentID: e.ID,
		UserID:      actor.UserID,
		StartTime:   want.Start,
		EndTime:     want.End,
		Purpose:     purpose,
		Status:      domain.BookingPending,
		Notes:       strings.TrimSpace(input.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return domain.BookingView{}, err
	}

	if want.Contains(now) {
		expected := e.Status
		if e.MarkBooked(now) {
			if err := s.equipment.Update(ctx, e, expected); err != nil {
				s.logger.Warn("equipment not marked booked", zap.String("equipment_id", e.ID), zap.Error(err))
			}
		}
	}

	s.record(ctx, actor.UserID, e.ID, domain.ActionBooked, fmt.Sprintf("Booked %s for %s", e.Name, purpose))
	owner := s.userName(ctx, actor.UserID, actor.Email)
	s.notifier.Go(ctx, "booking", email.BookingMessage(actor.Email, owner, e.Name, b.StartTime, b.EndTime, purpose))
	return s.hydrateOne(ctx, b)
}

func (s *BookingService) Cancel(ctx context.Context, actor domain.Actor, id, notes string) (domain.BookingView, error) {
	view, err := s.cancel(ctx, actor, id, notes)
	s.metrics.Booking("cancel", metrics.Result(err))
	return view, err
}

func (s *BookingService) cancel(ctx context.Context, actor domain.Actor, id, notes string) (domain.BookingView, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return domain.BookingView{}, err
	}
	if b.UserID != actor.UserID && !actor.IsAdmin() {
		return domain.BookingView{}, ErrBookingForbidden
	}
	if b.Status.Terminal() {
		return domain.BookingView{}, fmt.Errorf("booking is already %s: %w", b.Status, domain.ErrConflict)
	}

	now := s.now()
	if err := s.bookings.UpdateStatus(ctx, b.ID, b.Status, domain.BookingCancelled, now); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return domain.BookingView{}, fmt.Errorf("booking changed concurrently: %w", domain.ErrConflict)
		}
		return domain.BookingView{}, err
	}
	b.Status = domain.BookingCancelled
	b.UpdatedAt = now

	equipmentName := "projector"
	if e, err := s.equipment.GetByID(ctx, b.EquipmentID); err != nil {
		s.logger.Warn("equipment not loaded after cancel", zap.String("equipment_id", b.EquipmentID), zap.Error(err))
	} else {
		equipmentName = e.Name
		if b.CoveredCreation() && e.Status == domain.EquipmentBooked {
			s.releaseEquipment(ctx, e, now)
		}
	}

	s.record(ctx, actor.UserID, b.EquipmentID, domain.ActionCancelled, firstNonEmpty(notes, "Cancelled booking of "+equipmentName))
	if owner, err := s.users.GetByID(ctx, b.UserID); err == nil {
		s.notifier.Go(ctx, "booking_cancelled", email.BookingCancelledMessage(owner.Email, owner.Name, equipmentName, b.StartTime, b.EndTime))
	}
	return s.hydrateOne(ctx, b)
}

// releaseEquipment devuelve el equipo a available salvo que otra reserva
// vigente lo siga ocupando en este momento.
func (s *BookingService) releaseEquipment(ctx context.Context, e domain.Equipment, now time.Time) {
	instant := domain.Interval{Start: now, End: now.Add(time.Millisecond)}
	current, err := s.bookings.ListBlocking(ctx, e.ID, instant)
	if err != nil {
		s.logger.Warn("equipment not released", zap.String("equipment_id", e.ID), zap.Error(err))
		return
	}
	if _, busy := domain.FirstConflict(current, e.ID, instant); busy {
		return
	}
	expected := e.Status
	if e.ReleaseBooking(now) {
		if err := s.equipment.Update(ctx, e, expected); err != nil {
			s.logger.Warn("equipment not released", zap.String("equipment_id", e.ID), zap.Error(err))
		}
	}
}

func (s *BookingService) List(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", domain.ErrValidation, filter.Status)
	}
	items, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, items)
}

func (s *BookingService) Get(ctx context.Context, id string) (domain.BookingView, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return domain.BookingView{}, err
	}
	return s.hydrateOne(ctx, b)
}

func (s *BookingService) load(ctx context.Context, id string) (domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, ErrBookingNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (s *BookingService) loadEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Equipment{}, ErrEquipmentNotFound
	}
	e, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Equipment{}, ErrEquipmentNotFound
		}
		return domain.Equipment{}, err
	}
	if !e.IsActive {
		return domain.Equipment{}, ErrEquipmentNotFound
	}
	return e, nil
}

func (s *BookingService) record(ctx context.Context, userID, equipmentID string, action domain.ActivityAction, notes string) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, userID, equipmentID, action, notes); err != nil {
		s.logger.Error("activity not recorded",
			zap.String("equipment_id", equipmentID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func (s *BookingService) userName(ctx context.Context, userID, fallbackEmail string) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.EmailLocalPart(fallbackEmail)
	}
	return u.Name
}

func (s *BookingService) hydrateOne(ctx context.Context, b domain.Booking) (domain.BookingView, error) {
	views, err := s.hydrate(ctx, []domain.Booking{b})
	if err != nil {
		return domain.BookingView{}, err
	}
	return views[0], nil
}

func (s *BookingService) hydrate(ctx context.Context, items []domain.Booking) ([]domain.BookingView, error) {
	userIDs := make([]string, 0, len(items))
	equipmentIDs := make([]string, 0, len(items))
	for _, b := range items {
		userIDs = append(userIDs, b.UserID)
		equipmentIDs = append(equipmentIDs, b.EquipmentID)
	}
	users, err := userSummaries(ctx, s.users, userIDs)
	if err != nil {
		return nil, err
	}
	equipment, err := equipmentSummaries(ctx, s.equipment, equipmentIDs)
	if err != nil {
		return nil, err
	}
	views := make([]domain.BookingView, 0, len(items))
	for _, b := range items {
		views = append(views, domain.BookingView{
			Booking:   b,
			Equipment: lookupEquipment(equipment, b.EquipmentID),
			User:      lookupUserID(users, b.UserID),
		})
	}
	return views, nil
}
