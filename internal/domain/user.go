package domain

import "time"

// User es el registro de credenciales y perfil de una cuenta.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DateJoined   time.Time `json:"date_joined"`
	DateUpdated  time.Time `json:"date_updated"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
}

// UserSnapshot es la proyeccion publica de un usuario.
type UserSnapshot struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateJoined  time.Time `json:"date_joined"`
	DateUpdated time.Time `json:"date_updated"`
	IsStaff     bool      `json:"is_staff"`
	IsActive    bool      `json:"is_active"`
	IsVerified  bool      `json:"is_verified"`
}

// Snapshot devuelve la vista publica del usuario.
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DateJoined:  u.DateJoined,
		DateUpdated: u.DateUpdated,
		IsStaff:     u.IsStaff,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
	}
}

// VerifiedSnapshot es la respuesta de la confirmacion de email.
type VerifiedSnapshot struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}
