package models

import "time"

// CertificateState represents the status of an issued certificate.
// Transitions between states are unconstrained.
type CertificateState string

const (
	CertificateStateActive   CertificateState = "ACTIVO"
	CertificateStateInactive CertificateState = "INACTIVO"
	CertificateStateExpired  CertificateState = "VENCIDO"
)

// Certificate is an issued proof of participation for a student + evaluation.
type Certificate struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"estudiante_id" json:"estudianteId"`
	EvaluationID string           `db:"evaluacion_id" json:"evaluacionId"`
	Number       string           `db:"numero_certificado" json:"numeroCertificado"`
	IssuedAt     time.Time        `db:"fecha_emision" json:"fechaEmision"`
	ExpiresAt    *time.Time       `db:"fecha_vencimiento" json:"fechaVencimiento,omitempty"`
	State        CertificateState `db:"estado" json:"estado"`
	Description  *string          `db:"descripcion" json:"descripcion,omitempty"`
	Institution  string           `db:"institucion" json:"institucion"`
	FinalScore   float64          `db:"calificacion_final" json:"calificacionFinal"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}

// Expired reports whether the certificate is past its expiry date.
func (c *Certificate) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CertificateFilter captures listing criteria.
type CertificateFilter struct {
	StudentID    string
	EvaluationID string
	State        *CertificateState
	Page         int
	PageSize     int
}

// IssueCertificateRequest is the payload for issuing a certificate.
type IssueCertificateRequest struct {
	StudentID    string     `json:"estudianteId" validate:"required"`
	EvaluationID string     `json:"evaluacionId" validate:"required"`
	ExpiresAt    *time.Time `json:"fechaVencimiento,omitempty"`
	Description  *string    `json:"descripcion,omitempty"`
	Institution  *string    `json:"institucion,omitempty"`
	FinalScore   float64    `json:"calificacionFinal" validate:"gte=0,lte=100"`
}

// UpdateCertificateRequest carries optional certificate updates. The number
// is immutable once assigned.
type UpdateCertificateRequest struct {
	ExpiresAt   *time.Time `json:"fechaVencimiento,omitempty"`
	Description *string    `json:"descripcion,omitempty"`
	Institution *string    `json:"institucion,omitempty"`
	FinalScore  *float64   `json:"calificacionFinal,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// ChangeCertificateStateRequest moves a certificate between states.
type ChangeCertificateStateRequest struct {
	State CertificateState `json:"estado" validate:"required,oneof=ACTIVO INACTIVO VENCIDO"`
}

// VerifyCertificateRequest looks up a certificate by its public number.
type VerifyCertificateRequest struct {
	Number string `json:"numeroCertificado" validate:"required"`
}

// CertificateVerification is the result of a public verification lookup.
type CertificateVerification struct {
	Valid       bool         `json:"valido"`
	Certificate *Certificate `json:"certificado,omitempty"`
	Reason      string       `json:"motivo,omitempty"`
}

// CertificateStatistics aggregates certificate counts by state.
type CertificateStatistics struct {
	Total   int                      `json:"total"`
	ByState map[CertificateState]int `json:"porEstado"`
}
