package models

import "time"

// ReminderLog records one successfully sent recovery reminder. Written once, never updated.
type ReminderLog struct {
	ID           int64     `json:"id" bson:"-" gorm:"primaryKey;autoIncrement"`
	CartID       string    `json:"cart_id" bson:"cartId" gorm:"type:varchar(128);index;not null"`
	Contact      string    `json:"contact" bson:"phone" gorm:"type:varchar(32);not null"`
	DiscountCode string    `json:"discount_code" bson:"discount" gorm:"type:varchar(64);not null"`
	MessageID    string    `json:"message_id,omitempty" bson:"messageId,omitempty" gorm:"type:varchar(64)"`
	SentAt       time.Time `json:"sent_at" bson:"sentAt" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" bson:"createdAt" gorm:"autoCreateTime"`
}

// ReminderLogFilter narrows reminder log listings for reporting.
type ReminderLogFilter struct {
	CartID   string
	Page     int
	PageSize int
}
