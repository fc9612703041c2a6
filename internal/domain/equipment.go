package domain

import (
	"errors"
	"fmt"
	"time"
)

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentCheckedOut  EquipmentStatus = "checked-out"
	EquipmentBooked      EquipmentStatus = "booked"
	EquipmentMaintenance EquipmentStatus = "maintenance"
)

const DefaultEquipmentLocation = "CSE Department Store"

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentCheckedOut, EquipmentBooked, EquipmentMaintenance:
		return true
	}
	return false
}

// ErrInvalidTransition se devuelve cuando el estado actual no admite la operación.
var ErrInvalidTransition = fmt.Errorf("invalid equipment transition: %w", ErrConflict)

type Specifications struct {
	Resolution   string   `json:"resolution,omitempty"`
	Brightness   string   `json:"brightness,omitempty"`
	Connectivity []string `json:"connectivity,omitempty"`
}

// Equipment representa un proyector del inventario.
// Invariante: CurrentUserID != nil si y solo si Status == EquipmentCheckedOut.
type Equipment struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model,omitempty"`
	SerialNumber   string          `json:"serial_number,omitempty"`
	Status         EquipmentStatus `json:"status"`
	CurrentUserID  *string         `json:"current_user_id,omitempty"`
	LastUsedByID   *string         `json:"last_used_by_id,omitempty"`
	LastUsedAt     *time.Time      `json:"last_used_at,omitempty"`
	CheckedOutAt   *time.Time      `json:"checked_out_at,omitempty"`
	Location       string          `json:"location,omitempty"`
	Specifications Specifications  `json:"specifications"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CheckOut entrega el equipo al actor. Solo válido desde available.
func (e *Equipment) CheckOut(actorID string, now time.Time) error {
	if e.Status != EquipmentAvailable {
		return fmt.Errorf("projector is currently %s: %w", e.Status, ErrInvalidTransition)
	}
	holder := actorID
	at := now
	e.Status = EquipmentCheckedOut
	e.CurrentUserID = &holder
	e.CheckedOutAt = &at
	e.UpdatedAt = now
	return nil
}

// CheckIn devuelve el equipo y registra a quien lo tenía como último usuario.
func (e *Equipment) CheckIn(now time.Time) error {
	if e.Status != EquipmentCheckedOut {
		return fmt.Errorf("projector is not checked out: %w", ErrInvalidTransition)
	}
	at := now
	e.Status = EquipmentAvailable
	e.LastUsedByID = e.CurrentUserID
	e.LastUsedAt = &at
	e.CurrentUserID = nil
	e.CheckedOutAt = nil
	e.UpdatedAt = now
	return nil
}

// MarkBooked refleja una reserva cuyo intervalo contiene el instante actual.
// Solo un equipo disponible pasa a booked; en otro estado no cambia nada.
func (e *Equipment) MarkBooked(now time.Time) bool {
	if e.Status != EquipmentAvailable {
		return false
	}
	e.Status = EquipmentBooked
	e.UpdatedAt = now
	return true
}

// ReleaseBooking revierte booked a available.
func (e *Equipment) ReleaseBooking(now time.Time) bool {
	if e.Status != EquipmentBooked {
		return false
	}
	e.Status = EquipmentAvailable
	e.UpdatedAt = now
	return true
}

// SetStatus aplica un cambio administrativo (por ejemplo, mantenimiento).
// No se puede forzar checked-out: eso solo ocurre vía CheckOut.
func (e *Equipment) SetStatus(status EquipmentStatus, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if status == e.Status {
		return nil
	}
	if status == EquipmentCheckedOut {
		return fmt.Errorf("use checkout to hand out a projector: %w", ErrInvalidTransition)
	}
	if e.Status == EquipmentCheckedOut {
		e.LastUsedByID = e.CurrentUserID
		at := now
		e.LastUsedAt = &at
	}
	e.Status = status
	e.CurrentUserID = nil
	e.CheckedOutAt = nil
	e.UpdatedAt = now
	return nil
}

// CheckInvariant valida la relación entre estado y usuario actual.
func (e Equipment) CheckInvariant() error {
	holding := e.CurrentUserID != nil
	if holding != (e.Status == EquipmentCheckedOut) {
		return errors.New("current user must be set only while checked out")
	}
	return nil
}

func (e Equipment) Summary() EquipmentSummary {
	return EquipmentSummary{
		ID:    e.ID,
		Name:  e.Name,
		Brand: e.Brand,
		Model: e.Model,
	}
}

type EquipmentSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Model string `json:"model,omitempty"`
}

// EquipmentView es la respuesta con usuarios resueltos.
type EquipmentView struct {
	Equipment
	CurrentUser *UserSummary `json:"current_user,omitempty"`
	LastUsedBy  *UserSummary `json:"last_used_by,omitempty"`
}
