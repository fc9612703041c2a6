package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"projector-tracker/internal/config"
	"projector-tracker/internal/db"
	"projector-tracker/internal/domain"
	"projector-tracker/internal/repository"
)

type seedUser struct {
	name        string
	email       string
	role        domain.Role
	designation string
}

var users = []seedUser{
	{"Dr. Satya Nikhil", "nikhil@cse.edu", domain.RoleAdmin, "Professor & Developer"},
	{"Dr. Rajesh Kumar", "rajesh@cse.edu", domain.RoleFaculty, "Associate Professor"},
	{"Dr. Priya Sharma", "priya@cse.edu", domain.RoleFaculty, "Assistant Professor"},
	{"Dr. Arun Verma", "arun@cse.edu", domain.RoleFaculty, "Professor"},
}

var projectors = []domain.Equipment{
	{
		Name: "Epson EB-X05", Brand: "Epson", Model: "EB-X05", SerialNumber: "EPS-001-2024",
		Specifications: domain.Specifications{Resolution: "1024 x 768 (XGA)", Brightness: "3300 lumens", Connectivity: []string{"HDMI", "VGA", "USB"}},
	},
	{
		Name: "BenQ MH535A", Brand: "BenQ", Model: "MH535A", SerialNumber: "BNQ-002-2024",
		Specifications: domain.Specifications{Resolution: "1920 x 1080 (Full HD)", Brightness: "3600 lumens", Connectivity: []string{"HDMI", "VGA", "USB", "Wireless"}},
	},
	{
		Name: "Sony VPL-DX221", Brand: "Sony", Model: "VPL-DX221", SerialNumber: "SNY-003-2024",
		Specifications: domain.Specifications{Resolution: "1024 x 768 (XGA)", Brightness: "2800 lumens", Connectivity: []string{"HDMI", "VGA"}},
	},
	{
		Name: "ViewSonic PA503S", Brand: "ViewSonic", Model: "PA503S", SerialNumber: "VWS-004-2024",
		Specifications: domain.Specifications{Resolution: "800 x 600 (SVGA)", Brightness: "3600 lumens", Connectivity: []string{"HDMI", "VGA", "USB"}},
	},
}

// seed carga usuarios, proyectores y actividad de demostración. Los registros
// que ya existen (mismo email o número de serie) se conservan.
func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver != config.StorageDriverPostgres {
		log.Fatalf("seed needs the postgres storage driver")
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	store := repository.NewPgStore(pool)
	now := time.Now().UTC()

	userIDs := make([]string, len(users))
	for i, su := range users {
		id, err := ensureUser(ctx, store.Users, su, now)
		if err != nil {
			log.Fatalf("seed user %s: %v", su.email, err)
		}
		userIDs[i] = id
	}
	log.Printf("users ready: %d", len(userIDs))

	// Sony queda prestado a Rajesh y ViewSonic fue usado por Priya hace 2 horas.
	rajesh, priya := userIDs[1], userIDs[2]
	lastUsed := now.Add(-2 * time.Hour)
	projectors[2].Status = domain.EquipmentCheckedOut
	projectors[2].CurrentUserID = &rajesh
	projectors[2].CheckedOutAt = &now
	projectors[2].Location = "Room 301"
	projectors[3].LastUsedByID = &priya
	projectors[3].LastUsedAt = &lastUsed

	created := make([]domain.Equipment, 0, len(projectors))
	for _, p := range projectors {
		p.ID = uuid.NewString()
		if p.Status == "" {
			p.Status = domain.EquipmentAvailable
		}
		if p.Location == "" {
			p.Location = domain.DefaultEquipmentLocation
		}
		p.IsActive = true
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := store.Equipment.Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				log.Printf("projector %s already present, skipping", p.SerialNumber)
				continue
			}
			log.Fatalf("seed projector %s: %v", p.Name, err)
		}
		created = append(created, p)
	}
	log.Printf("projectors created: %d", len(created))
	if len(created) != len(projectors) {
		log.Printf("inventory was already seeded, skipping activities")
		return
	}

	admin := userIDs[0]
	activities := []domain.Activity{
		{UserID: admin, EquipmentID: created[0].ID, Action: domain.ActionCreated, Notes: "Added Epson EB-X05 to inventory"},
		{UserID: admin, EquipmentID: created[1].ID, Action: domain.ActionCreated, Notes: "Added BenQ MH535A to inventory"},
		{UserID: priya, EquipmentID: created[3].ID, Action: domain.ActionCheckOut, Notes: "Checked out for Data Structures lecture"},
		{UserID: priya, EquipmentID: created[3].ID, Action: domain.ActionCheckIn, Notes: "Returned after lecture"},
		{UserID: rajesh, EquipmentID: created[2].ID, Action: domain.ActionCheckOut, Notes: "Checked out for Database Management Systems lab"},
	}
	for i, a := range activities {
		a.ID = uuid.NewString()
		a.CreatedAt = now.Add(time.Duration(i-len(activities)) * time.Hour)
		if err := store.Activities.Create(ctx, a); err != nil {
			log.Fatalf("seed activity: %v", err)
		}
	}
	log.Printf("activities created: %d", len(activities))
	log.Printf("seed complete; sign in with the email OTP flow")
}

func ensureUser(ctx context.Context, repo repository.UserRepository, su seedUser, now time.Time) (string, error) {
	if existing, err := repo.GetByEmail(ctx, su.email); err == nil {
		return existing.ID, nil
	}
	// contraseña aleatoria que nadie conoce: el acceso es por OTP
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         su.name,
		Email:        su.email,
		PasswordHash: string(hash),
		Role:         su.role,
		Department:   domain.DefaultDepartment,
		Designation:  su.designation,
		IsActive:     true,
		IsVerified:   true,
		VerifiedAt:   &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return user.ID, repo.Create(ctx, user)
}
