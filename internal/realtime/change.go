// Package realtime carries notebook changes from writers to long-lived
// listeners. Notebook metadata and row sets travel on separate topics and
// are merged back into one snapshot per notebook on the listening side.
package realtime

import (
	"notebook-sync-be/internal/entity"

	"github.com/google/uuid"
)

const (
	TopicMetadata = "notebook.metadata"
	TopicRows     = "notebook.rows"

	// metadataOrigin names the instance that first published a message.
	metadataOrigin = "origin"
)

// MetadataChange is a snapshot of a notebook record. A nil Notebook means
// the notebook was deleted.
type MetadataChange struct {
	UserId     uuid.UUID        `json:"user_id"`
	NotebookId uuid.UUID        `json:"notebook_id"`
	Notebook   *entity.Notebook `json:"notebook"`
	Revision   int64            `json:"revision"`

	// Origin is filled from message metadata on the receiving side.
	Origin string `json:"-"`
}

// RowsChange is the full current row set of a notebook.
type RowsChange struct {
	UserId     uuid.UUID     `json:"user_id"`
	NotebookId uuid.UUID     `json:"notebook_id"`
	Rows       []*entity.Row `json:"rows"`
	Revision   int64         `json:"revision"`

	Origin string `json:"-"`
}
