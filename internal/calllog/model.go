package calllog

import (
	"time"

	"gorm.io/datatypes"
)

// CallLog is one call reported by the voice platform. LogID is the platform's identifier;
// ID is ours.
type CallLog struct {
	ID                string         `gorm:"column:id;type:varchar(64);primaryKey"                json:"id"`
	LogID             string         `gorm:"column:log_id;type:varchar(255);uniqueIndex;not null" json:"log_id"`
	AssistantID       string         `gorm:"column:assistant_id;type:varchar(255)"                json:"assistant_id"`
	OrganizationID    string         `gorm:"column:organization_id;type:varchar(255)"             json:"organization_id"`
	ConversationID    *string        `gorm:"column:conversation_id;type:varchar(255)"             json:"conversation_id,omitempty"`
	CustomerNumber    *string        `gorm:"column:customer_number;type:varchar(64)"              json:"customer_number,omitempty"`
	CallerPhoneNumber *string        `gorm:"column:caller_phone_number;type:varchar(64)"          json:"caller_phone_number,omitempty"`
	Status            *string        `gorm:"column:status;type:varchar(64)"                       json:"status,omitempty"`
	Transcript        datatypes.JSON `gorm:"column:transcript;type:jsonb"                         json:"transcript,omitempty"`
	TranscriptData    datatypes.JSON `gorm:"column:transcript_data;type:jsonb"                    json:"transcript_data,omitempty"`
	SuccessEvaluation *bool          `gorm:"column:success_evaluation"                            json:"success_evaluation,omitempty"`
	EndedReason       *string        `gorm:"column:ended_reason;type:varchar(255)"                json:"ended_reason,omitempty"`
	Metadata          datatypes.JSON `gorm:"column:metadata;type:jsonb"                           json:"metadata,omitempty"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"                     json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"                     json:"updated_at"`
}

func (CallLog) TableName() string {
	return "vapi_call_logs"
}

// PhoneNumber returns the first recorded phone field.
func (c *CallLog) PhoneNumber() string {
	if c.CustomerNumber != nil && *c.CustomerNumber != "" {
		return *c.CustomerNumber
	}

	if c.CallerPhoneNumber != nil && *c.CallerPhoneNumber != "" {
		return *c.CallerPhoneNumber
	}

	return ""
}

const ManualLogIDPrefix = "manual-"
