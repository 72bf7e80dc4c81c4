package deadletter

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookDeadLetter keeps a delivery whose call log could not be resolved so it can be
// replayed later. CallID is empty when the delivery carried no call identifier.
type WebhookDeadLetter struct {
	ID          string         `gorm:"column:id;type:varchar(64);primaryKey"`
	CallID      string         `gorm:"column:call_id;type:varchar(255);index"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb;not null"`
	Error       string         `gorm:"column:error;type:text;not null"`
	Status      string         `gorm:"column:status;type:varchar(20);default:'pending';not null"`
	RetryCount  int            `gorm:"column:retry_count;type:int;default:0;not null"`
	LastRetryAt *time.Time     `gorm:"column:last_retry_at;type:timestamp"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
)

func (WebhookDeadLetter) TableName() string {
	return "webhook_dl"
}
