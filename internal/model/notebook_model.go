package model

import (
	"time"

	"github.com/google/uuid"
)

type Notebook struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title     string    `gorm:"type:varchar(255);not null"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index:idx_notebooks_user_updated,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;index:idx_notebooks_user_updated,priority:2"`
}

func (Notebook) TableName() string {
	return "notebooks"
}
