package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// BlockingBookingStatuses son los estados que ocupan el intervalo del equipo.
var BlockingBookingStatuses = []BookingStatus{BookingPending, BookingActive}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingActive, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Blocking() bool {
	return s == BookingPending || s == BookingActive
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Interval es un rango semiabierto [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps usa la convención semiabierta: [s1,e1) y [s2,e2) se cruzan sii
// s1 < e2 y s2 < e1. Intervalos que solo se tocan no se cruzan.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains indica si t cae dentro de [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

type Booking struct {
	ID          string        `json:"id"`
	EquipmentID string        `json:"equipment_id"`
	UserID      string        `json:"user_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Purpose     string        `json:"purpose"`
	Status      BookingStatus `json:"status"`
	Notes       string        `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// CoveredCreation indica si la reserva ya estaba en curso al crearse, que es
// el único momento en que una reserva marca el equipo como booked.
func (b Booking) CoveredCreation() bool {
	return b.Interval().Contains(b.CreatedAt)
}

// FirstConflict devuelve la primera reserva bloqueante del mismo equipo que se
// cruza con el intervalo pedido.
func FirstConflict(existing []Booking, equipmentID string, want Interval) (Booking, bool) {
	for _, b := range existing {
		if b.EquipmentID != equipmentID || !b.Status.Blocking() {
			continue
		}
		if b.Interval().Overlaps(want) {
			return b, true
		}
	}
	return Booking{}, false
}

type BookingFilter struct {
	Status      BookingStatus
	EquipmentID string
	UserID      string
}

type BookingView struct {
	Booking
	Equipment *EquipmentSummary `json:"equipment,omitempty"`
	User      *UserSummary      `json:"user,omitempty"`
}
