package entity

import (
	"time"

	"github.com/google/uuid"
)

// LegacyNote is a note in the flat layout: one record per note with its rows embedded.
type LegacyNote struct {
	Id     uuid.UUID
	UserId *uuid.UUID
	Title  string
	Rows   []LegacyRow
	// RowsIgnored is set when stored rows were present but not a list.
	RowsIgnored bool
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// LegacyRow fields are all optional in stored data.
type LegacyRow struct {
	Id    string `json:"id,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	Order *int   `json:"order,omitempty"`
}

type MigratedNote struct {
	NoteId uuid.UUID `json:"note_id"`
	UserId uuid.UUID `json:"user_id"`
}
