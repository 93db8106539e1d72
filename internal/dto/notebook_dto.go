package dto

import (
	"time"

	"notebook-sync-be/internal/entity"

	"github.com/google/uuid"
)

type RowRequest struct {
	Id    *uuid.UUID `json:"id"`
	Key   string     `json:"key" validate:"max=1000"`
	Value string     `json:"value" validate:"max=10000"`
	Order *int       `json:"order" validate:"omitempty,min=0"`
}

// CreateNotebookRequest: omitted rows start the notebook with one empty row,
// an empty array starts it with none.
type CreateNotebookRequest struct {
	Title string       `json:"title" validate:"max=255"`
	Rows  []RowRequest `json:"rows" validate:"omitempty,max=500,dive"`
}

type CreateNotebookResponse struct {
	Id uuid.UUID `json:"id"`
}

// UpdateNotebookRequest: a nil field is left unchanged. Rows replaces the
// whole row set.
type UpdateNotebookRequest struct {
	Id    uuid.UUID    `json:"-"`
	Title *string      `json:"title" validate:"omitempty,max=255"`
	Rows  []RowRequest `json:"rows" validate:"omitempty,max=500,dive"`
}

type AddRowRequest struct {
	Key   string `json:"key" validate:"max=1000"`
	Value string `json:"value" validate:"max=10000"`
}

type UpdateRowRequest struct {
	Key   string `json:"key" validate:"max=1000"`
	Value string `json:"value" validate:"max=10000"`
}

type RowResponse struct {
	Id        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NotebookResponse struct {
	Id        uuid.UUID      `json:"id"`
	UserId    uuid.UUID      `json:"user_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Rows      []*RowResponse `json:"rows"`
}

func NewRowResponse(r *entity.Row) *RowResponse {
	return &RowResponse{
		Id:        r.Id,
		Key:       r.Key,
		Value:     r.Value,
		Order:     r.Order,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// NewNotebookResponse maps a snapshot, nil for nil. Rows keep the snapshot order.
func NewNotebookResponse(s *entity.NotebookSnapshot) *NotebookResponse {
	if s == nil || s.Notebook == nil {
		return nil
	}
	rows := make([]*RowResponse, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, NewRowResponse(r))
	}
	return &NotebookResponse{
		Id:        s.Notebook.Id,
		UserId:    s.Notebook.UserId,
		Title:     s.Notebook.Title,
		CreatedAt: s.Notebook.CreatedAt,
		UpdatedAt: s.Notebook.UpdatedAt,
		Rows:      rows,
	}
}

func NewNotebookListResponse(list []*entity.NotebookSnapshot) []*NotebookResponse {
	out := make([]*NotebookResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NewNotebookResponse(s))
	}
	return out
}
