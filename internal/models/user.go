package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdministrator UserRole = "ADMINISTRADOR"
	RoleEvaluator     UserRole = "EVALUADOR"
	RoleStudent       UserRole = "ESTUDIANTE"
)

// User represents an application user stored in the usuarios table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"correo" json:"correo"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"nombre" json:"nombre"`
	LastName     string     `db:"apellidos" json:"apellidos"`
	Role         UserRole   `db:"rol" json:"rol"`
	Active       bool       `db:"activo" json:"activo"`
	LastAccess   *time.Time `db:"ultimo_acceso" json:"ultimoAcceso,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateUserRequest is the admin payload for creating a user.
type CreateUserRequest struct {
	Email     string   `json:"correo" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	FirstName string   `json:"nombre" validate:"required,min=2"`
	LastName  string   `json:"apellidos" validate:"required,min=2"`
	Role      UserRole `json:"rol" validate:"required,oneof=ADMINISTRADOR EVALUADOR ESTUDIANTE"`
}

// UpdateUserRequest carries optional user updates.
type UpdateUserRequest struct {
	Email     *string   `json:"correo,omitempty" validate:"omitempty,email"`
	FirstName *string   `json:"nombre,omitempty" validate:"omitempty,min=2"`
	LastName  *string   `json:"apellidos,omitempty" validate:"omitempty,min=2"`
	Role      *UserRole `json:"rol,omitempty" validate:"omitempty,oneof=ADMINISTRADOR EVALUADOR ESTUDIANTE"`
	Active    *bool     `json:"activo,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
