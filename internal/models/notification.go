package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "INFO"
	NotificationTypeWarning NotificationType = "WARNING"
	NotificationTypeSuccess NotificationType = "SUCCESS"
	NotificationTypeError   NotificationType = "ERROR"
)

// Metadata is a free-form JSONB payload attached to notifications and
// history entries.
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB storage.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *Metadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// Notification is an append-only message delivered to one user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	Title     string           `db:"titulo" json:"titulo"`
	Message   string           `db:"mensaje" json:"mensaje"`
	Type      NotificationType `db:"tipo" json:"tipo"`
	UserID    string           `db:"usuario_id" json:"usuarioId"`
	Read      bool             `db:"leida" json:"leida"`
	Link      *string          `db:"enlace" json:"enlace,omitempty"`
	Metadata  Metadata         `db:"metadatos" json:"metadatos,omitempty"`
	CreatedAt time.Time        `db:"fecha_creacion" json:"fechaCreacion"`
	ReadAt    *time.Time       `db:"fecha_leida" json:"fechaLeida,omitempty"`
}

// NotificationFilter captures listing criteria.
type NotificationFilter struct {
	UserID   string
	Type     *NotificationType
	Read     *bool
	Page     int
	PageSize int
}

// CreateNotificationRequest sends one notification to one user.
type CreateNotificationRequest struct {
	Title   string           `json:"titulo" validate:"required,min=3"`
	Message string           `json:"mensaje" validate:"required"`
	Type    NotificationType `json:"tipo" validate:"required,oneof=INFO WARNING SUCCESS ERROR"`
	UserID  string           `json:"usuarioId" validate:"required"`
	Link    *string          `json:"enlace,omitempty"`
	Meta    Metadata         `json:"metadatos,omitempty"`
}

// MassNotificationRequest fans a notification out to many users.
type MassNotificationRequest struct {
	Title   string           `json:"titulo" validate:"required,min=3"`
	Message string           `json:"mensaje" validate:"required"`
	Type    NotificationType `json:"tipo" validate:"required,oneof=INFO WARNING SUCCESS ERROR"`
	UserIDs []string         `json:"usuariosIds" validate:"required,min=1,dive,required"`
	Link    *string          `json:"enlace,omitempty"`
}

// MarkReadRequest marks a set of notifications as read.
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// UnreadCount reports pending notifications for a user.
type UnreadCount struct {
	UserID string `json:"usuarioId"`
	Count  int    `json:"total"`
}
