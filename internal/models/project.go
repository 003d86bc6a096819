package models

import (
	"time"

	"github.com/lib/pq"
)

// ProjectState represents the lifecycle state of a project.
type ProjectState string

const (
	ProjectStateDraft     ProjectState = "BORRADOR"
	ProjectStateActive    ProjectState = "ACTIVO"
	ProjectStateInactive  ProjectState = "INACTIVO"
	ProjectStateCompleted ProjectState = "COMPLETADO"
)

// ProjectTransitions is the allowed transition graph for project states.
var ProjectTransitions = map[ProjectState][]ProjectState{
	ProjectStateDraft:     {ProjectStateActive, ProjectStateInactive},
	ProjectStateActive:    {ProjectStateCompleted, ProjectStateInactive},
	ProjectStateCompleted: {ProjectStateInactive},
	ProjectStateInactive:  {ProjectStateActive},
}

// CanTransitionProject reports whether from→to is an allowed project edge.
func CanTransitionProject(from, to ProjectState) bool {
	for _, next := range ProjectTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Project represents a student/evaluator submission.
type Project struct {
	ID                  string         `db:"id" json:"id"`
	Name                string         `db:"nombre" json:"nombre"`
	Description         string         `db:"descripcion" json:"descripcion"`
	InstructorIDs       pq.StringArray `db:"instructores_ids" json:"instructoresIds"`
	InstructorNames     pq.StringArray `db:"instructores_nombres" json:"instructoresNombres"`
	DeliveryDate        time.Time      `db:"fecha_entrega" json:"fechaEntrega"`
	Format              string         `db:"formato" json:"formato"`
	State               ProjectState   `db:"estado" json:"estado"`
	CreatorID           string         `db:"creador_id" json:"creadorId"`
	AssignedEvaluatorID *string        `db:"evaluador_asignado_id" json:"evaluadorAsignadoId,omitempty"`
	CohortID            *string        `db:"ficha_id" json:"fichaId,omitempty"`
	EvaluationIDs       pq.StringArray `db:"evaluaciones_ids" json:"evaluacionesIds"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updatedAt"`
}

// ProjectFilter captures listing criteria.
type ProjectFilter struct {
	CreatorID    string
	EvaluatorID  string
	CohortID     string
	InstructorID string
	State        *ProjectState
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// CreateProjectRequest is the payload for creating a project.
type CreateProjectRequest struct {
	Name            string     `json:"nombre" validate:"required,min=3"`
	Description     string     `json:"descripcion" validate:"required,min=10"`
	InstructorIDs   []string   `json:"instructoresIds,omitempty"`
	InstructorNames []string   `json:"instructoresNombres,omitempty"`
	DeliveryDate    time.Time  `json:"fechaEntrega" validate:"required"`
	Format          string     `json:"formato" validate:"required"`
	CohortID        *string    `json:"fichaId,omitempty"`
}

// UpdateProjectRequest carries optional project updates. Only allowed in draft.
type UpdateProjectRequest struct {
	Name            *string    `json:"nombre,omitempty" validate:"omitempty,min=3"`
	Description     *string    `json:"descripcion,omitempty" validate:"omitempty,min=10"`
	InstructorNames []string   `json:"instructoresNombres,omitempty"`
	DeliveryDate    *time.Time `json:"fechaEntrega,omitempty"`
	Format          *string    `json:"formato,omitempty"`
	CohortID        *string    `json:"fichaId,omitempty"`
}

// ChangeProjectStateRequest requests a project lifecycle transition.
type ChangeProjectStateRequest struct {
	State ProjectState `json:"estado" validate:"required,oneof=BORRADOR ACTIVO INACTIVO COMPLETADO"`
}

// AssignEvaluatorRequest binds an evaluator to a project.
type AssignEvaluatorRequest struct {
	EvaluatorID string `json:"evaluadorId" validate:"required"`
}

// AddInstructorRequest adds an instructor reference to a project.
type AddInstructorRequest struct {
	InstructorID   string `json:"instructorId" validate:"required"`
	InstructorName string `json:"instructorNombre" validate:"required"`
}

// ProjectStatistics aggregates project counts.
type ProjectStatistics struct {
	Total          int                  `json:"total"`
	ByState        map[ProjectState]int `json:"porEstado"`
	WithEvaluator  int                  `json:"conEvaluador"`
	CompletionRate float64              `json:"tasaFinalizacion"`
}

// ProjectDashboard summarises platform-wide project activity.
type ProjectDashboard struct {
	Total        int                  `json:"total"`
	NewThisMonth int                  `json:"nuevosEsteMes"`
	ByState      map[ProjectState]int `json:"porEstado"`
	Unassigned   int                  `json:"sinEvaluador"`
	GeneratedAt  time.Time            `json:"generadoEn"`
}
