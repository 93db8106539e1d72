package model

import (
	"time"

	"github.com/google/uuid"
)

type Row struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NotebookId uuid.UUID `gorm:"type:uuid;not null;index:idx_note_rows_notebook_order,priority:1"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;index"`
	Key        string    `gorm:"type:text;not null;default:''"`
	Value      string    `gorm:"type:text;not null;default:''"`
	Order      int       `gorm:"column:row_order;not null;default:0;index:idx_note_rows_notebook_order,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

func (Row) TableName() string {
	return "note_rows"
}
