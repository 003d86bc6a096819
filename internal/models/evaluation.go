package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// EvaluationState represents the lifecycle state of an evaluation.
type EvaluationState string

const (
	EvaluationStateDraft      EvaluationState = "borrador"
	EvaluationStatePublished  EvaluationState = "publicada"
	EvaluationStateInProgress EvaluationState = "en_progreso"
	EvaluationStateFinished   EvaluationState = "finalizada"
	EvaluationStateCancelled  EvaluationState = "cancelada"
)

// EvaluationType classifies the kind of graded activity.
type EvaluationType string

const (
	EvaluationTypeExam         EvaluationType = "examen"
	EvaluationTypeProject      EvaluationType = "proyecto"
	EvaluationTypeAssignment   EvaluationType = "tarea"
	EvaluationTypePresentation EvaluationType = "presentacion"
	EvaluationTypeLab          EvaluationType = "laboratorio"
	EvaluationTypeQuiz         EvaluationType = "quiz"
)

// EvaluationTransitions is the fixed directed graph of allowed state changes.
// Finished is terminal.
var EvaluationTransitions = map[EvaluationState][]EvaluationState{
	EvaluationStateDraft:      {EvaluationStatePublished, EvaluationStateCancelled},
	EvaluationStatePublished:  {EvaluationStateInProgress, EvaluationStateCancelled},
	EvaluationStateInProgress: {EvaluationStateFinished, EvaluationStateCancelled},
	EvaluationStateCancelled:  {EvaluationStateDraft},
	EvaluationStateFinished:   {},
}

// CanTransition reports whether from→to is an edge of the lifecycle graph.
func CanTransition(from, to EvaluationState) bool {
	for _, next := range EvaluationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EvaluationConfig holds per-evaluation execution settings, stored as JSONB.
type EvaluationConfig struct {
	AllowRetries     bool `json:"permitirReintentos"`
	MaxRetries       int  `json:"numeroMaximoReintentos"`
	ShuffleQuestions bool `json:"barajarPreguntas"`
	ImmediateResults bool `json:"mostrarResultadosInmediatos"`
	TimeLimit        bool `json:"limiteTiempo"`
	Supervised       bool `json:"requiereSupervision"`
}

// Value implements driver.Valuer for JSONB storage.
func (c EvaluationConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage.
func (c *EvaluationConfig) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = EvaluationConfig{}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported evaluation config type %T", src)
	}
}

// Evaluation represents a gradable activity with its own lifecycle.
type Evaluation struct {
	ID               string           `db:"id" json:"id"`
	Title            string           `db:"titulo" json:"titulo"`
	Description      string           `db:"descripcion" json:"descripcion"`
	Type             EvaluationType   `db:"tipo" json:"tipo"`
	State            EvaluationState  `db:"estado" json:"estado"`
	StartDate        time.Time        `db:"fecha_inicio" json:"fechaInicio"`
	EndDate          time.Time        `db:"fecha_fin" json:"fechaFin"`
	DurationMinutes  int              `db:"duracion_minutos" json:"duracionMinutos"`
	MaxScore         float64          `db:"puntaje_maximo" json:"puntajeMaximo"`
	MinPassingScore  float64          `db:"puntaje_minimo" json:"puntajeMinimo"`
	EvaluatorID      string           `db:"evaluador_id" json:"evaluadorId"`
	AssignedStudents pq.StringArray   `db:"estudiantes_asignados" json:"estudiantesAsignados"`
	Instructions     pq.StringArray   `db:"instrucciones" json:"instrucciones"`
	Config           EvaluationConfig `db:"configuracion" json:"configuracion"`
	Tags             pq.StringArray   `db:"etiquetas" json:"etiquetas"`
	Observations     *string          `db:"observaciones" json:"observaciones,omitempty"`
	Active           bool             `db:"activa" json:"activa"`
	CreatedBy        string           `db:"creado_por" json:"creadoPor"`
	ModifiedBy       *string          `db:"modificado_por" json:"modificadoPor,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}

// EvaluationFilter captures listing criteria.
type EvaluationFilter struct {
	EvaluatorID string
	StudentID   string
	State       *EvaluationState
	Type        *EvaluationType
	Active      *bool
	Search      string
	StartAfter  *time.Time
	EndBefore   *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// CreateEvaluationRequest is the payload for creating an evaluation.
type CreateEvaluationRequest struct {
	Title            string            `json:"titulo" validate:"required,min=3"`
	Description      string            `json:"descripcion" validate:"required,min=10"`
	Type             EvaluationType    `json:"tipo" validate:"required,oneof=examen proyecto tarea presentacion laboratorio quiz"`
	StartDate        time.Time         `json:"fechaInicio" validate:"required"`
	EndDate          time.Time         `json:"fechaFin" validate:"required"`
	DurationMinutes  int               `json:"duracionMinutos" validate:"required,min=5,max=480"`
	MaxScore         float64           `json:"puntajeMaximo" validate:"required,gt=0,lte=100"`
	MinPassingScore  *float64          `json:"puntajeMinimo,omitempty" validate:"omitempty,gte=0,lte=100"`
	AssignedStudents []string          `json:"estudiantesAsignados,omitempty"`
	Instructions     []string          `json:"instrucciones,omitempty"`
	Config           *EvaluationConfig `json:"configuracion,omitempty"`
	Tags             []string          `json:"etiquetas,omitempty"`
	Observations     *string           `json:"observaciones,omitempty"`
}

// UpdateEvaluationRequest carries optional evaluation updates.
type UpdateEvaluationRequest struct {
	Title            *string           `json:"titulo,omitempty" validate:"omitempty,min=3"`
	Description      *string           `json:"descripcion,omitempty" validate:"omitempty,min=10"`
	Type             *EvaluationType   `json:"tipo,omitempty" validate:"omitempty,oneof=examen proyecto tarea presentacion laboratorio quiz"`
	StartDate        *time.Time        `json:"fechaInicio,omitempty"`
	EndDate          *time.Time        `json:"fechaFin,omitempty"`
	DurationMinutes  *int              `json:"duracionMinutos,omitempty" validate:"omitempty,min=5,max=480"`
	MaxScore         *float64          `json:"puntajeMaximo,omitempty" validate:"omitempty,gt=0,lte=100"`
	MinPassingScore  *float64          `json:"puntajeMinimo,omitempty" validate:"omitempty,gte=0,lte=100"`
	Instructions     []string          `json:"instrucciones,omitempty"`
	Config           *EvaluationConfig `json:"configuracion,omitempty"`
	Tags             []string          `json:"etiquetas,omitempty"`
	Observations     *string           `json:"observaciones,omitempty"`
}

// ChangeEvaluationStateRequest requests a lifecycle transition.
type ChangeEvaluationStateRequest struct {
	State EvaluationState `json:"estado" validate:"required,oneof=borrador publicada en_progreso finalizada cancelada"`
}

// AssignStudentsRequest replaces the assigned-student set.
type AssignStudentsRequest struct {
	StudentIDs []string `json:"estudiantesAsignados" validate:"required,dive,required"`
}

// EvaluationStatistics aggregates evaluation counts and averages.
type EvaluationStatistics struct {
	Total       int                     `json:"total"`
	ByState     map[EvaluationState]int `json:"porEstado"`
	ByType      map[EvaluationType]int  `json:"porTipo"`
	AvgStudents float64                 `json:"promedioEstudiantes"`
	AvgDuration float64                 `json:"promedioDuracion"`
	AvgMaxScore float64                 `json:"promedioPuntajeMaximo"`
}

// EvaluationDashboard summarises platform-wide evaluation activity.
type EvaluationDashboard struct {
	Total        int                     `json:"total"`
	NewThisMonth int                     `json:"nuevasEsteMes"`
	NewThisWeek  int                     `json:"nuevasEstaSemana"`
	ActiveNow    int                     `json:"activasAhora"`
	Overdue      int                     `json:"vencidas"`
	ByState      map[EvaluationState]int `json:"porEstado"`
	ByType       map[EvaluationType]int  `json:"porTipo"`
	AvgStudents  float64                 `json:"promedioEstudiantes"`
	AvgDuration  float64                 `json:"promedioDuracion"`
	GeneratedAt  time.Time               `json:"generadoEn"`
}

// EvaluatorMetrics summarises a single evaluator's activity.
type EvaluatorMetrics struct {
	EvaluatorID    string       `json:"evaluadorId"`
	Created        int          `json:"creadas"`
	Active         int          `json:"activas"`
	Finished       int          `json:"finalizadas"`
	CompletionRate float64      `json:"tasaFinalizacion"`
	AvgStudents    float64      `json:"promedioEstudiantes"`
	Recent         []Evaluation `json:"recientes"`
}
