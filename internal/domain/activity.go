package domain

import "time"

type ActivityAction string

const (
	ActionCheckOut  ActivityAction = "check-out"
	ActionCheckIn   ActivityAction = "check-in"
	ActionBooked    ActivityAction = "booked"
	ActionCancelled ActivityAction = "cancelled"
	ActionCreated   ActivityAction = "created"
	ActionUpdated   ActivityAction = "updated"
)

func (a ActivityAction) Valid() bool {
	switch a {
	case ActionCheckOut, ActionCheckIn, ActionBooked, ActionCancelled, ActionCreated, ActionUpdated:
		return true
	}
	return false
}

// Activity es un registro de auditoría. Solo se agrega, nunca se modifica.
type Activity struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	EquipmentID string         `json:"equipment_id"`
	Action      ActivityAction `json:"action"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"timestamp"`
}

type ActivityView struct {
	Activity
	User      *UserSummary      `json:"user,omitempty"`
	Equipment *EquipmentSummary `json:"equipment,omitempty"`
}

type ActionCount struct {
	Action ActivityAction `json:"action"`
	Count  int64          `json:"count"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type ActivityStats struct {
	Total    int64         `json:"total"`
	ByAction []ActionCount `json:"by_action"`
	Last7    []DayCount    `json:"last_7_days"`
}
