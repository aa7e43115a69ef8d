package db_models

import (
	"gorm.io/datatypes"
)

// WebhookEvent is an audit row for every notification that passed signature
// verification, raw payload included for later investigation.
type WebhookEvent struct {
	ID        uint  `gorm:"primaryKey"`
	CreatedAt int64 `gorm:"autoCreateTime"`

	OrderID   uint   `gorm:"index"`
	Event     string `gorm:"size:32;index"`
	Reference string `gorm:"index"`

	Payload datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
