package models

import "time"

// History actions emitted by the services on mutations.
const (
	HistoryActionLogin            = "LOGIN"
	HistoryActionLogout           = "LOGOUT"
	HistoryActionPasswordChange   = "CAMBIO_PASSWORD"
	HistoryActionUserCreate       = "USUARIO_CREADO"
	HistoryActionUserUpdate       = "USUARIO_ACTUALIZADO"
	HistoryActionUserDelete       = "USUARIO_ELIMINADO"
	HistoryActionEvaluationCreate = "EVALUACION_CREADA"
	HistoryActionEvaluationUpdate = "EVALUACION_ACTUALIZADA"
	HistoryActionEvaluationState  = "EVALUACION_CAMBIO_ESTADO"
	HistoryActionEvaluationDelete = "EVALUACION_ELIMINADA"
	HistoryActionGradeRecord      = "CALIFICACION_REGISTRADA"
	HistoryActionGradeDelete      = "CALIFICACION_ELIMINADA"
	HistoryActionProjectCreate    = "PROYECTO_CREADO"
	HistoryActionProjectUpdate    = "PROYECTO_ACTUALIZADO"
	HistoryActionProjectState     = "PROYECTO_CAMBIO_ESTADO"
	HistoryActionProjectDelete    = "PROYECTO_ELIMINADO"
	HistoryActionAssignmentCreate = "ASIGNACION_CREADA"
	HistoryActionAssignmentDone   = "ASIGNACION_COMPLETADA"
	HistoryActionCertificateIssue = "CERTIFICADO_EMITIDO"
	HistoryActionCertificateState = "CERTIFICADO_CAMBIO_ESTADO"
	HistoryActionCohortCreate     = "FICHA_CREADA"
	HistoryActionCohortMemberAdd  = "FICHA_MIEMBRO_AGREGADO"
	HistoryActionCohortMemberDrop = "FICHA_MIEMBRO_RETIRADO"
)

// HistoryEntry is an append-only activity record.
type HistoryEntry struct {
	ID           string    `db:"id" json:"id"`
	Action       string    `db:"accion" json:"accion"`
	Description  string    `db:"descripcion" json:"descripcion"`
	UserID       string    `db:"usuario_id" json:"usuarioId"`
	ProjectID    *string   `db:"proyecto_id" json:"proyectoId,omitempty"`
	EvaluationID *string   `db:"evaluacion_id" json:"evaluacionId,omitempty"`
	Metadata     Metadata  `db:"metadatos" json:"metadatos,omitempty"`
	OccurredAt   time.Time `db:"fecha_accion" json:"fechaAccion"`
}

// HistoryFilter captures listing criteria.
type HistoryFilter struct {
	UserID       string
	ProjectID    string
	EvaluationID string
	Action       string
	Since        *time.Time
	Page         int
	PageSize     int
}

// HistoryStatistics aggregates activity counts.
type HistoryStatistics struct {
	Total    int            `json:"total"`
	ByAction map[string]int `json:"porAccion"`
	ByUser   map[string]int `json:"porUsuario"`
}
