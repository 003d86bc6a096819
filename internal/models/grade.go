package models

import "time"

// Grade represents a single per-criterion score tied to one evaluation.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EvaluationID string    `db:"evaluacion_id" json:"evaluacionId"`
	Criterion    string    `db:"criterio" json:"criterio"`
	Score        float64   `db:"puntaje" json:"puntaje"`
	MaxScore     float64   `db:"puntaje_maximo" json:"puntajeMaximo"`
	Comments     *string   `db:"comentarios" json:"comentarios,omitempty"`
	GradedByID   string    `db:"calificado_por_id" json:"calificadoPorId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// GradeFilter allows querying of grade entries.
type GradeFilter struct {
	EvaluationID string
	GradedByID   string
	Page         int
	PageSize     int
}

// RecordGradeRequest is the payload for recording one criterion score.
type RecordGradeRequest struct {
	EvaluationID string  `json:"evaluacionId" validate:"required"`
	Criterion    string  `json:"criterio" validate:"required,min=1"`
	Score        float64 `json:"puntaje" validate:"gte=0,lte=1000"`
	MaxScore     float64 `json:"puntajeMaximo" validate:"gt=0,lte=1000"`
	Comments     *string `json:"comentarios,omitempty"`
}

// BulkGradeEntry is one entry of a bulk recording request.
type BulkGradeEntry struct {
	Criterion string  `json:"criterio" validate:"required,min=1"`
	Score     float64 `json:"puntaje" validate:"gte=0,lte=1000"`
	MaxScore  float64 `json:"puntajeMaximo" validate:"gt=0,lte=1000"`
	Comments  *string `json:"comentarios,omitempty"`
}

// BulkGradeRequest records several criterion scores for one evaluation.
// Entries succeed or fail independently.
type BulkGradeRequest struct {
	EvaluationID string           `json:"evaluacionId" validate:"required"`
	Entries      []BulkGradeEntry `json:"calificaciones" validate:"required,min=1,dive"`
}

// BulkGradeFailure reports the outcome of one failed bulk entry.
type BulkGradeFailure struct {
	Criterion string `json:"criterio"`
	Error     string `json:"error"`
}

// BulkGradeResult summarises a bulk recording run.
type BulkGradeResult struct {
	Recorded []Grade            `json:"registradas"`
	Failed   []BulkGradeFailure `json:"fallidas"`
}

// UpdateGradeRequest carries optional grade updates.
type UpdateGradeRequest struct {
	Criterion *string  `json:"criterio,omitempty" validate:"omitempty,min=1"`
	Score     *float64 `json:"puntaje,omitempty" validate:"omitempty,gte=0,lte=1000"`
	MaxScore  *float64 `json:"puntajeMaximo,omitempty" validate:"omitempty,gt=0,lte=1000"`
	Comments  *string  `json:"comentarios,omitempty"`
}

// EvaluationAverage is the aggregate percentage for an evaluation.
type EvaluationAverage struct {
	EvaluationID string  `json:"evaluacionId"`
	Average      float64 `json:"promedio"`
	GradeCount   int     `json:"totalCalificaciones"`
}

// GradeStatistics summarises the raw scores recorded for an evaluation.
type GradeStatistics struct {
	EvaluationID string  `json:"evaluacionId"`
	Count        int     `json:"total"`
	Mean         float64 `json:"media"`
	Min          float64 `json:"minimo"`
	Max          float64 `json:"maximo"`
	SumObtained  float64 `json:"sumaObtenida"`
	SumPossible  float64 `json:"sumaPosible"`
	Percentage   float64 `json:"porcentaje"`
}
