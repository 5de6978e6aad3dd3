package model

import (
	"time"

	"gorm.io/datatypes"
)

type Ticket struct {
	Id              string `gorm:"type:varchar(32);primaryKey"`
	SessionId       string `gorm:"type:uuid;not null;index"`
	UserName        string `gorm:"type:varchar(60)"`
	Locale          string `gorm:"type:varchar(8)"`
	Device          string `gorm:"type:varchar(32)"`
	Problem         string `gorm:"type:text;not null"`
	ProblemCategory string `gorm:"type:varchar(32)"`
	ContactEmail    string `gorm:"type:varchar(255)"`
	ContactPhone    string `gorm:"type:varchar(32)"`
	ConfirmedSteps  datatypes.JSON
	FailedSteps     datatypes.JSON
	Transcript      datatypes.JSON
	Status          string    `gorm:"type:varchar(16);not null;default:'open';index"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
	ClosedAt        *time.Time
}

func (Ticket) TableName() string {
	return "tickets"
}
