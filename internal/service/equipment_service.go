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
	ErrEquipmentNotFound = fmt.Errorf("projector %w", domain.ErrNotFound)
	ErrSerialTaken       = fmt.Errorf("serial number already registered: %w", domain.ErrConflict)
	ErrEquipmentChanged  = fmt.Errorf("projector state changed, reload and retry: %w", domain.ErrConflict)
	ErrAdminEmailOnly    = fmt.Errorf("only the administrator account can remove projectors: %w", domain.ErrForbidden)
)

// EquipmentService aplica la máquina de estados de los proyectores.
type EquipmentService struct {
	logger     *zap.Logger
	equipment  repository.EquipmentRepository
	users      repository.UserRepository
	activity   *ActivityService
	notifier   *Notifier
	metrics    *metrics.Metrics
	adminEmail string
	now        func() time.Time
}

func NewEquipmentService(
	logger *zap.Logger,
	equipment repository.EquipmentRepository,
	users repository.UserRepository,
	activity *ActivityService,
	notifier *Notifier,
	m *metrics.Metrics,
	adminEmail string,
) *EquipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentService{
		logger:     logger,
		equipment:  equipment,
		users:      users,
		activity:   activity,
		notifier:   notifier,
		metrics:    m,
		adminEmail: domain.NormalizeEmail(adminEmail),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type EquipmentInput struct {
	Name           string
	Brand          string
	Model          string
	SerialNumber   string
	Location       string
	Status         domain.EquipmentStatus
	Specifications domain.Specifications
}

// EquipmentPatch es una actualización parcial; nil deja el campo igual.
type EquipmentPatch struct {
	Name           *string
	Brand          *string
	Model          *string
	SerialNumber   *string
	Location       *string
	Status         *domain.EquipmentStatus
	Specifications *domain.Specifications
	Notes          string
}

func (s *EquipmentService) List(ctx context.Context) ([]domain.EquipmentView, error) {
	items, err := s.equipment.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, items)
}

// Get devuelve el equipo aunque esté dado de baja.
func (s *EquipmentService) Get(ctx context.Context, id string) (domain.EquipmentView, error) {
	e, err := s.load(ctx, id, true)
	if err != nil {
		return domain.EquipmentView{}, err
	}
	return s.hydrateOne(ctx, e)
}

func (s *EquipmentService) CheckOut(ctx context.Context, actor domain.Actor, id, notes string) (domain.EquipmentView, error) {
	view, err := s.checkOut(ctx, actor, id, notes)
	s.metrics.Transition(string(domain.ActionCheckOut), metrics.Result(err))
	return view, err
}

func (s *EquipmentService) checkOut(ctx context.Context, actor domain.Actor, id, notes string) (domain.EquipmentView, error) {
	e, err := s.load(ctx, id, false)
	if err != nil {
		return domain.EquipmentView{}, err
	}
	expected := e.Status
	now := s.now()
	if err := e.CheckOut(actor.UserID, now); err != nil {
		return domain.EquipmentView{}, err
	}
	if err := s.save(ctx, e, expected); err != nil {
		return domain.EquipmentView{}, err
	}

	s.record(ctx, actor.UserID, e.ID, domain.ActionCheckOut, firstNonEmpty(notes, "Checked out "+e.Name))
	name := s.actorName(ctx, actor)
	s.notifier.Go(ctx, "checkout", email.CheckOutMessage(actor.Email, name, e.Name, now))
	return s.hydrateOne(ctx, e)
}

func (s *EquipmentService) CheckIn(ctx context.Context, actor domain.Actor, id, notes string) (domain.EquipmentView, error) {
	view, err := s.checkIn(ctx, actor, id, notes)
	s.metrics.Transition(string(domain.ActionCheckIn), metrics.Result(err))
	return view, err
}

func (s *EquipmentService) checkIn(ctx context.Context, actor domain.Actor, id, notes string) (domain.EquipmentView, error) {
	e, err := s.load(ctx, id, false)
	if err != nil {
		return domain.EquipmentView{}, err
	}
	expected := e.Status
	now := s.now()
	if err := e.CheckIn(now); err != nil {
		return domain.EquipmentView{}, err
	}
	if err := s.save(ctx, e, expected); err != nil {
		return domain.EquipmentView{}, err
	}

	s.record(ctx, actor.UserID, e.ID, domain.ActionCheckIn, firstNonEmpty(notes, "Checked in "+e.Name))
	name := s.actorName(ctx, actor)
	s.notifier.Go(ctx, "checkin", email.CheckInMessage(actor.Email, name, e.Name, now))
	return s.hydrateOne(ctx, e)
}

func (s *EquipmentService) Create(ctx context.Context, actor domain.Actor, input EquipmentInput) (domain.EquipmentView, error) {
	if !actor.IsAdmin() {
		return domain.EquipmentView{}, ErrAdminOnly
	}
	name := strings.TrimSpace(input.Name)
	brand := strings.TrimSpace(input.Brand)
	if name == "" || brand == "" {
		return domain.EquipmentView{}, fmt.Errorf("%w: name and brand are required", domain.ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = domain.EquipmentAvailable
	}
	if !status.Valid() || status == domain.EquipmentCheckedOut {
		return domain.EquipmentView{}, fmt.Errorf("%w: invalid initial status %q", domain.ErrValidation, status)
	}

	now := s.now()
	e := domain.Equipment{
		ID:             uuid.NewString(),
		Name:           name,
		Brand:          brand,
		Model:          strings.TrimSpace(input.Model),
		SerialNumber:   strings.TrimSpace(input.SerialNumber),
		Status:         status,
		Location:       firstNonEmpty(input.Location, domain.DefaultEquipmentLocation),
		Specifications: input.Specifications,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.equipment.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.EquipmentView{}, ErrSerialTaken
		}
		return domain.EquipmentView{}, err
	}

	s.record(ctx, actor.UserID, e.ID, domain.ActionCreated, "Created projector: "+e.Name)
	s.notifyChange(ctx, actor, "created", e.Name)
	return s.hydrateOne(ctx, e)
}

func (s *EquipmentService) Update(ctx context.Context, actor domain.Actor, id string, patch EquipmentPatch) (domain.EquipmentView, error) {
	if !actor.IsAdmin() {
		return domain.EquipmentView{}, ErrAdminOnly
	}
	e, err := s.load(ctx, id, false)
	if err != nil {
		return domain.EquipmentView{}, err
	}
	expected := e.Status
	now := s.now()

	if patch.Name != nil {
		if e.Name = strings.TrimSpace(*patch.Name); e.Name == "" {
			return domain.EquipmentView{}, fmt.Errorf("%w: name cannot be empty", domain.ErrValidation)
		}
	}
	if patch.Brand != nil {
		if e.Brand = strings.TrimSpace(*patch.Brand); e.Brand == "" {
			return domain.EquipmentView{}, fmt.Errorf("%w: brand cannot be empty", domain.ErrValidation)
		}
	}
	if patch.Model != nil {
		e.Model = strings.TrimSpace(*patch.Model)
	}
	if patch.SerialNumber != nil {
		e.SerialNumber = strings.TrimSpace(*patch.SerialNumber)
	}
	if patch.Location != nil {
		e.Location = firstNonEmpty(*patch.Location, domain.DefaultEquipmentLocation)
	}
	if patch.Specifications != nil {
		e.Specifications = *patch.Specifications
	}
	if patch.Status != nil {
		if err := e.SetStatus(*patch.Status, now); err != nil {
			return domain.EquipmentView{}, err
		}
	}
	e.UpdatedAt = now

	if err := s.save(ctx, e, expected); err != nil {
		return domain.EquipmentView{}, err
	}
	s.record(ctx, actor.UserID, e.ID, domain.ActionUpdated, firstNonEmpty(patch.Notes, "Updated projector: "+e.Name))
	s.notifyChange(ctx, actor, "updated", e.Name)
	return s.hydrateOne(ctx, e)
}

// SoftDelete marca el equipo como inactivo. Solo el email de administrador configurado puede hacerlo.
func (s *EquipmentService) SoftDelete(ctx context.Context, actor domain.Actor, id string) error {
	if s.adminEmail == "" || domain.NormalizeEmail(actor.Email) != s.adminEmail {
		return ErrAdminEmailOnly
	}
	e, err := s.load(ctx, id, false)
	if err != nil {
		return err
	}
	expected := e.Status
	e.IsActive = false
	e.UpdatedAt = s.now()
	if err := s.save(ctx, e, expected); err != nil {
		return err
	}
	s.logger.Info("projector deactivated", zap.String("equipment_id", e.ID), zap.String("by", actor.UserID))
	s.notifyChange(ctx, actor, "removed", e.Name)
	return nil
}

func (s *EquipmentService) load(ctx context.Context, id string, includeInactive bool) (domain.Equipment, error) {
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
	if !e.IsActive && !includeInactive {
		return domain.Equipment{}, ErrEquipmentNotFound
	}
	return e, nil
}

// save persiste con compare-and-set sobre el estado leído.
func (s *EquipmentService) save(ctx context.Context, e domain.Equipment, expected domain.EquipmentStatus) error {
	if err := e.CheckInvariant(); err != nil {
		return err
	}
	err := s.equipment.Update(ctx, e, expected)
	switch {
	case errors.Is(err, repository.ErrStaleState):
		return ErrEquipmentChanged
	case errors.Is(err, repository.ErrDuplicate):
		return ErrSerialTaken
	}
	return err
}

// record no falla la operación: la transición ya quedó persistida.
func (s *EquipmentService) record(ctx context.Context, userID, equipmentID string, action domain.ActivityAction, notes string) {
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

func (s *EquipmentService) actorName(ctx context.Context, actor domain.Actor) string {
	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return domain.EmailLocalPart(actor.Email)
	}
	return u.Name
}

func (s *EquipmentService) notifyChange(ctx context.Context, actor domain.Actor, change, equipmentName string) {
	name := s.actorName(ctx, actor)
	s.notifier.Go(ctx, "equipment_"+change, email.EquipmentChangeMessage(actor.Email, name, change, equipmentName))
}

func (s *EquipmentService) hydrateOne(ctx context.Context, e domain.Equipment) (domain.EquipmentView, error) {
	views, err := s.hydrate(ctx, []domain.Equipment{e})
	if err != nil {
		return domain.EquipmentView{}, err
	}
	return views[0], nil
}

func (s *EquipmentService) hydrate(ctx context.Context, items []domain.Equipment) ([]domain.EquipmentView, error) {
	ids := make([]string, 0, len(items)*2)
	for _, e := range items {
		if e.CurrentUserID != nil {
			ids = append(ids, *e.CurrentUserID)
		}
		if e.LastUsedByID != nil {
			ids = append(ids, *e.LastUsedByID)
		}
	}
	users, err := userSummaries(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]domain.EquipmentView, 0, len(items))
	for _, e := range items {
		views = append(views, domain.EquipmentView{
			Equipment:   e,
			CurrentUser: lookupUser(users, e.CurrentUserID),
			LastUsedBy:  lookupUser(users, e.LastUsedByID),
		})
	}
	return views, nil
}
