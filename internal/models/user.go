package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleUser         Role = "user"
	RoleLawyer       Role = "lawyer"
	RoleFirm         Role = "firm"
	RoleInternalTeam Role = "internal_team"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	FullName     string     `json:"full_name,omitempty" db:"full_name"`
	Phone        string     `json:"phone,omitempty" db:"phone"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsVerified   bool       `json:"is_verified" db:"is_verified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// CanOperatePipeline reports whether the user may work pipeline tasks.
func (u *User) CanOperatePipeline() bool {
	return u.Role == RoleInternalTeam || u.Role == RoleAdmin
}

type LawyerProfile struct {
	ID                uuid.UUID `json:"id" db:"id"`
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	BarCouncilNumber  string    `json:"bar_council_number,omitempty" db:"bar_council_number"`
	PracticeAreas     string    `json:"practice_areas,omitempty" db:"practice_areas"`
	ExperienceYears   int       `json:"experience_years,omitempty" db:"experience_years"`
	CourtJurisdiction string    `json:"court_jurisdiction,omitempty" db:"court_jurisdiction"`
	OfficeAddress     string    `json:"office_address,omitempty" db:"office_address"`
	City              string    `json:"city,omitempty" db:"city"`
	State             string    `json:"state,omitempty" db:"state"`
	Pincode           string    `json:"pincode,omitempty" db:"pincode"`
	IsBarVerified     bool      `json:"is_bar_verified" db:"is_bar_verified"`
}

type FirmProfile struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	UserID             uuid.UUID `json:"user_id" db:"user_id"`
	FirmName           string    `json:"firm_name" db:"firm_name"`
	RegistrationNumber string    `json:"registration_number,omitempty" db:"registration_number"`
	EstablishedYear    int       `json:"established_year,omitempty" db:"established_year"`
	Website            string    `json:"website,omitempty" db:"website"`
	OfficeAddress      string    `json:"office_address,omitempty" db:"office_address"`
	City               string    `json:"city,omitempty" db:"city"`
	State              string    `json:"state,omitempty" db:"state"`
	Pincode            string    `json:"pincode,omitempty" db:"pincode"`
	LawyerCount        int       `json:"lawyer_count,omitempty" db:"lawyer_count"`
	PracticeAreas      string    `json:"practice_areas,omitempty" db:"practice_areas"`
	IsVerified         bool      `json:"is_verified" db:"is_verified"`
}
