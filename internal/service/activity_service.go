package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/events"
	"projector-tracker/internal/repository"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
	statsDays          = 7
)

// ActivityService agrega y consulta el registro de actividad.
type ActivityService struct {
	logger     *zap.Logger
	activities repository.ActivityRepository
	users      repository.UserRepository
	equipment  repository.EquipmentRepository
	publisher  events.Publisher
	now        func() time.Time
}

func NewActivityService(
	logger *zap.Logger,
	activities repository.ActivityRepository,
	users repository.UserRepository,
	equipment repository.EquipmentRepository,
	publisher events.Publisher,
) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &ActivityService{
		logger:     logger,
		activities: activities,
		users:      users,
		equipment:  equipment,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Record agrega una entrada y la publica en el feed de eventos.
func (s *ActivityService) Record(ctx context.Context, userID, equipmentID string, action domain.ActivityAction, notes string) (domain.Activity, error) {
	if !action.Valid() {
		return domain.Activity{}, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
	}
	a := domain.Activity{
		ID:          uuid.NewString(),
		UserID:      userID,
		EquipmentID: equipmentID,
		Action:      action,
		Notes:       strings.TrimSpace(notes),
		CreatedAt:   s.now(),
	}
	if err := s.activities.Create(ctx, a); err != nil {
		return domain.Activity{}, err
	}
	if err := s.publisher.PublishActivity(ctx, a); err != nil {
		s.logger.Warn("activity event not published", zap.String("activity_id", a.ID), zap.Error(err))
	}
	return a, nil
}

// Recent devuelve las últimas entradas; limit<=0 usa 50.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]domain.ActivityView, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	items, err := s.activities.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, items)
}

func (s *ActivityService) ForEquipment(ctx context.Context, equipmentID string) ([]domain.ActivityView, error) {
	items, err := s.activities.ListByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, items)
}

func (s *ActivityService) ForUser(ctx context.Context, userID string) ([]domain.ActivityView, error) {
	items, err := s.activities.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, items)
}

// Stats resume el total, el conteo por acción y los últimos 7 días (UTC).
func (s *ActivityService) Stats(ctx context.Context, actor domain.Actor) (domain.ActivityStats, error) {
	if !actor.IsAdmin() {
		return domain.ActivityStats{}, ErrAdminOnly
	}
	total, err := s.activities.Count(ctx)
	if err != nil {
		return domain.ActivityStats{}, err
	}
	byAction, err := s.activities.CountByAction(ctx)
	if err != nil {
		return domain.ActivityStats{}, err
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(statsDays - 1))
	days, err := s.activities.CountByDay(ctx, since)
	if err != nil {
		return domain.ActivityStats{}, err
	}
	return domain.ActivityStats{
		Total:    total,
		ByAction: byAction,
		Last7:    fillDays(since, statsDays, days),
	}, nil
}

// fillDays completa con ceros los días sin actividad.
func fillDays(since time.Time, n int, counts []domain.DayCount) []domain.DayCount {
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day] = c.Count
	}
	out := make([]domain.DayCount, 0, n)
	for i := 0; i < n; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, domain.DayCount{Day: day, Count: byDay[day]})
	}
	return out
}

func (s *ActivityService) hydrate(ctx context.Context, items []domain.Activity) ([]domain.ActivityView, error) {
	userIDs := make([]string, 0, len(items))
	equipmentIDs := make([]string, 0, len(items))
	for _, a := range items {
		userIDs = append(userIDs, a.UserID)
		equipmentIDs = append(equipmentIDs, a.EquipmentID)
	}
	users, err := userSummaries(ctx, s.users, userIDs)
	if err != nil {
		return nil, err
	}
	equipment, err := equipmentSummaries(ctx, s.equipment, equipmentIDs)
	if err != nil {
		return nil, err
	}
	views := make([]domain.ActivityView, 0, len(items))
	for _, a := range items {
		views = append(views, domain.ActivityView{
			Activity:  a,
			User:      lookupUserID(users, a.UserID),
			Equipment: lookupEquipment(equipment, a.EquipmentID),
		})
	}
	return views, nil
}
