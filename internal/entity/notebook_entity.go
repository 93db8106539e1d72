package entity

import (
	"time"

	"github.com/google/uuid"
)

const DefaultNotebookTitle = "Untitled Note"

type Notebook struct {
	Id        uuid.UUID
	Title     string
	UserId    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotebookSnapshot is a notebook together with its full row set, rows sorted by order.
type NotebookSnapshot struct {
	Notebook *Notebook
	Rows     []*Row
}
