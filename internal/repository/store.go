package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Store agrupa los repositorios de un mismo driver de almacenamiento.
type Store struct {
	Users      UserRepository
	OTPs       OTPRepository
	Equipment  EquipmentRepository
	Bookings   BookingRepository
	Activities ActivityRepository
}

func NewPgStore(pool *pgxpool.Pool) Store {
	return Store{
		Users:      NewPgUserRepository(pool),
		OTPs:       NewPgOTPRepository(pool),
		Equipment:  NewPgEquipmentRepository(pool),
		Bookings:   NewPgBookingRepository(pool),
		Activities: NewPgActivityRepository(pool),
	}
}

// NewMemoryStore arma un almacenamiento volátil para demos y pruebas.
func NewMemoryStore() Store {
	return Store{
		Users:      NewMemoryUserRepository(),
		OTPs:       NewMemoryOTPRepository(),
		Equipment:  NewMemoryEquipmentRepository(),
		Bookings:   NewMemoryBookingRepository(),
		Activities: NewMemoryActivityRepository(),
	}
}
