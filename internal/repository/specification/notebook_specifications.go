package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByNotebookID struct {
	NotebookID uuid.UUID
}

func (s ByNotebookID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("notebook_id = ?", s.NotebookID)
}

type ByNotebookIDs struct {
	NotebookIDs []uuid.UUID
}

func (s ByNotebookIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("notebook_id IN ?", s.NotebookIDs)
}

// RowsInOrder sorts rows the way a notebook displays them.
type RowsInOrder struct{}

func (s RowsInOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("row_order ASC").Order("created_at ASC").Order("id ASC")
}

// MostRecentlyUpdated sorts notebooks for the list view.
type MostRecentlyUpdated struct{}

func (s MostRecentlyUpdated) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("updated_at DESC").Order("created_at DESC").Order("id ASC")
}

// HasOwner matches legacy notes that carry a user id.
type HasOwner struct{}

func (s HasOwner) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id IS NOT NULL")
}
