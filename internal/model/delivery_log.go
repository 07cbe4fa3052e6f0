package model

import (
	"time"

	"gorm.io/gorm"
)

// Delivery attempt outcomes recorded in the delivery log.
const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailure = "failure"
	DeliveryStatusMissing = "missing"
)

// DeliveryLog records a single attempt to deliver a scheduled message
type DeliveryLog struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID string         `json:"message_id" gorm:"type:varchar(64);not null;index"`
	Recipient string         `json:"recipient" gorm:"type:varchar(255);not null"`
	Status    string         `json:"status" gorm:"type:varchar(50);not null"` // success, failure, missing
	ErrorMsg  string         `json:"error_msg" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for DeliveryLog
func (DeliveryLog) TableName() string {
	return "delivery_logs"
}
