package lead

import (
	"time"
)

// Lead is a candidate record owned by the back office. This service only reads it and
// updates its call tracking columns.
type Lead struct {
	ID           int64      `gorm:"column:id;primaryKey"  json:"id"`
	Nombre       *string    `gorm:"column:nombre"         json:"nombre,omitempty"`
	Telefono     *string    `gorm:"column:telefono"       json:"telefono,omitempty"`
	CallCount    *int       `gorm:"column:call_count"     json:"call_count,omitempty"`
	LastCallID   *string    `gorm:"column:last_call_id"   json:"last_call_id,omitempty"`
	LastCallDate *time.Time `gorm:"column:last_call_date" json:"last_call_date,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}
