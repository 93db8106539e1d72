package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LegacyNote is the flat layout that predates notebooks; rows live in a JSON array.
type LegacyNote struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserId    *uuid.UUID     `gorm:"type:uuid;index"`
	Title     string         `gorm:"type:varchar(255)"`
	Rows      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func (LegacyNote) TableName() string {
	return "legacy_notes"
}
