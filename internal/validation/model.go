package validation

import (
	"time"

	"gorm.io/datatypes"
)

// ValidatedLead holds the facts reconciled for one lead. ID is the lead's own id.
type ValidatedLead struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	CarBrand        *string        `gorm:"column:car_brand;type:varchar(100)"       json:"car_brand,omitempty"`
	CarModel        *string        `gorm:"column:car_model;type:varchar(100)"       json:"car_model,omitempty"`
	CarYear         *string        `gorm:"column:car_year;type:varchar(10)"         json:"car_year,omitempty"`
	CustodioName    *string        `gorm:"column:custodio_name;type:varchar(255)"   json:"custodio_name,omitempty"`
	SecurityExp     *bool          `gorm:"column:security_exp"                      json:"security_exp,omitempty"`
	SedenaID        *bool          `gorm:"column:sedena_id"                         json:"sedena_id,omitempty"`
	CallID          string         `gorm:"column:call_id;type:varchar(255)"         json:"call_id"`
	PhoneNumber     *string        `gorm:"column:phone_number;type:varchar(20)"     json:"phone_number,omitempty"`
	PhoneNumberIntl *string        `gorm:"column:phone_number_intl;type:varchar(25)" json:"phone_number_intl,omitempty"`
	VapiCallData    datatypes.JSON `gorm:"column:vapi_call_data;type:jsonb"         json:"vapi_call_data,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"         json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"         json:"updated_at"`
}

func (ValidatedLead) TableName() string {
	return "validated_leads"
}

const (
	ActionInserted  = "inserted"
	ActionUpdated   = "updated"
	ActionDuplicate = "duplicate"
)
