package models

import "time"

// AssignmentState tracks the progress of a project assignment.
type AssignmentState string

const (
	AssignmentStatePending   AssignmentState = "PENDIENTE"
	AssignmentStateInProcess AssignmentState = "EN_PROCESO"
	AssignmentStateCompleted AssignmentState = "COMPLETADA"
)

// Assignment links a project, an evaluator and a student. Its lifecycle is
// independent of both the project's and the evaluation's.
type Assignment struct {
	ID           string          `db:"id" json:"id"`
	ProjectID    string          `db:"proyecto_id" json:"proyectoId"`
	EvaluatorID  string          `db:"evaluador_id" json:"evaluadorId"`
	StudentID    string          `db:"estudiante_id" json:"estudianteId"`
	State        AssignmentState `db:"estado" json:"estado"`
	Observations *string         `db:"observaciones" json:"observaciones,omitempty"`
	EvaluationID *string         `db:"evaluacion_id" json:"evaluacionId,omitempty"`
	CompletedAt  *time.Time      `db:"fecha_completado" json:"fechaCompletado,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`

	// Read-side fan-out, populated on detail reads.
	Project   *Project `db:"-" json:"proyecto,omitempty"`
	Evaluator *User    `db:"-" json:"evaluador,omitempty"`
	Student   *User    `db:"-" json:"estudiante,omitempty"`
}

// AssignmentFilter captures listing criteria.
type AssignmentFilter struct {
	ProjectID   string
	EvaluatorID string
	StudentID   string
	State       *AssignmentState
	Page        int
	PageSize    int
}

// CreateAssignmentRequest binds a project to one evaluator and one student.
type CreateAssignmentRequest struct {
	ProjectID    string  `json:"proyectoId" validate:"required"`
	EvaluatorID  string  `json:"evaluadorId" validate:"required"`
	StudentID    string  `json:"estudianteId" validate:"required"`
	Observations *string `json:"observaciones,omitempty"`
}

// UpdateAssignmentRequest carries optional assignment updates.
type UpdateAssignmentRequest struct {
	State        *AssignmentState `json:"estado,omitempty" validate:"omitempty,oneof=PENDIENTE EN_PROCESO COMPLETADA"`
	Observations *string          `json:"observaciones,omitempty"`
}

// CompleteAssignmentRequest marks an assignment completed with an optional
// evaluation linkage.
type CompleteAssignmentRequest struct {
	EvaluationID *string `json:"evaluacionId,omitempty"`
	Observations *string `json:"observaciones,omitempty"`
}
