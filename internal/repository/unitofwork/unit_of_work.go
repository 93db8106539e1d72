package unitofwork

import (
	"context"

	"notebook-sync-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	NotebookRepository() contract.NotebookRepository
	RowRepository() contract.RowRepository
	LegacyNoteRepository() contract.LegacyNoteRepository
}
