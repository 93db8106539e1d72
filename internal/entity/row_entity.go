package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Row struct {
	Id         uuid.UUID
	NotebookId uuid.UUID
	UserId     uuid.UUID
	Key        string
	Value      string
	Order      int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SortRows orders rows by Order ascending. Ties fall back to creation time, then id.
func SortRows(rows []*Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Id.String() < b.Id.String()
	})
}

// NextRowOrder returns the order for a row appended after rows.
func NextRowOrder(rows []*Row) int {
	next := 0
	for _, r := range rows {
		if r.Order >= next {
			next = r.Order + 1
		}
	}
	return next
}

// SortNotebooksByRecent orders notebooks for the list view: most recently updated first.
func SortNotebooksByRecent(notebooks []*NotebookSnapshot) {
	sort.SliceStable(notebooks, func(i, j int) bool {
		a, b := notebooks[i].Notebook, notebooks[j].Notebook
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Id.String() < b.Id.String()
	})
}
