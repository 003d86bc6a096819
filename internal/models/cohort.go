package models

import (
	"time"

	"github.com/lib/pq"
)

// Cohort (ficha) groups students and instructors under one training program.
type Cohort struct {
	ID             string         `db:"id" json:"id"`
	Number         string         `db:"numero" json:"numero"`
	Program        string         `db:"programa" json:"programa"`
	Level          string         `db:"nivel" json:"nivel"`
	Modality       string         `db:"modalidad" json:"modalidad"`
	DurationMonths int            `db:"duracion_meses" json:"duracionMeses"`
	StartDate      time.Time      `db:"fecha_inicio" json:"fechaInicio"`
	EndDate        time.Time      `db:"fecha_fin" json:"fechaFin"`
	Active         bool           `db:"activa" json:"activa"`
	CoordinatorID  *string        `db:"coordinador_id" json:"coordinadorId,omitempty"`
	InstructorIDs  pq.StringArray `db:"instructores_ids" json:"instructoresIds"`
	StudentIDs     pq.StringArray `db:"estudiantes_ids" json:"estudiantesIds"`
	MaxCapacity    int            `db:"capacidad_maxima" json:"capacidadMaxima"`
	Campus         string         `db:"sede" json:"sede"`
	Shift          string         `db:"jornada" json:"jornada"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// CohortFilter captures listing criteria.
type CohortFilter struct {
	Program  string
	Level    string
	Modality string
	Active   *bool
	Page     int
	PageSize int
}

// CreateCohortRequest is the payload for creating a cohort.
type CreateCohortRequest struct {
	Number         string    `json:"numero" validate:"required"`
	Program        string    `json:"programa" validate:"required,min=3"`
	Level          string    `json:"nivel" validate:"required"`
	Modality       string    `json:"modalidad" validate:"required"`
	DurationMonths int       `json:"duracionMeses" validate:"required,min=1,max=60"`
	StartDate      time.Time `json:"fechaInicio" validate:"required"`
	EndDate        time.Time `json:"fechaFin" validate:"required"`
	CoordinatorID  *string   `json:"coordinadorId,omitempty"`
	MaxCapacity    int       `json:"capacidadMaxima" validate:"gte=0"`
	Campus         string    `json:"sede,omitempty"`
	Shift          string    `json:"jornada,omitempty"`
}

// UpdateCohortRequest carries optional cohort updates.
type UpdateCohortRequest struct {
	Program        *string    `json:"programa,omitempty" validate:"omitempty,min=3"`
	Level          *string    `json:"nivel,omitempty"`
	Modality       *string    `json:"modalidad,omitempty"`
	DurationMonths *int       `json:"duracionMeses,omitempty" validate:"omitempty,min=1,max=60"`
	StartDate      *time.Time `json:"fechaInicio,omitempty"`
	EndDate        *time.Time `json:"fechaFin,omitempty"`
	Active         *bool      `json:"activa,omitempty"`
	CoordinatorID  *string    `json:"coordinadorId,omitempty"`
	MaxCapacity    *int       `json:"capacidadMaxima,omitempty" validate:"omitempty,gte=0"`
	Campus         *string    `json:"sede,omitempty"`
	Shift          *string    `json:"jornada,omitempty"`
}

// CohortMemberRequest adds a student or instructor to a cohort.
type CohortMemberRequest struct {
	UserID string `json:"usuarioId" validate:"required"`
}

// CohortStatistics aggregates cohort counts per level and modality.
type CohortStatistics struct {
	Total      int            `json:"total"`
	Active     int            `json:"activas"`
	ByLevel    map[string]int `json:"porNivel"`
	ByModality map[string]int `json:"porModalidad"`
	Students   int            `json:"totalEstudiantes"`
}
