package entity

import "time"

// Roles válidos para User.
const (
	RoleSystemManager   = "system_manager"
	RoleAccountsManager = "accounts_manager"
	RoleFacturador      = "facturador"
)

// User representa un usuario del sistema (pertenece a una Company).
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // system_manager, accounts_manager, facturador
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
