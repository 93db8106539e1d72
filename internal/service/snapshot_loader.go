package service

import (
	"context"
	"errors"
	"fmt"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/realtime"
	"notebook-sync-be/internal/repository/specification"
	"notebook-sync-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type snapshotLoader struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewSnapshotLoader reads the state realtime listeners start from.
func NewSnapshotLoader(uowFactory unitofwork.RepositoryFactory) realtime.SnapshotLoader {
	return &snapshotLoader{uowFactory: uowFactory}
}

func (l *snapshotLoader) LoadNotebook(ctx context.Context, userId, notebookId uuid.UUID) (*entity.NotebookSnapshot, error) {
	return loadSnapshot(ctx, l.uowFactory.NewUnitOfWork(ctx), userId, notebookId)
}

func (l *snapshotLoader) LoadUserNotebooks(ctx context.Context, userId uuid.UUID) ([]*entity.NotebookSnapshot, error) {
	return loadUserSnapshots(ctx, l.uowFactory.NewUnitOfWork(ctx), userId)
}

// loadSnapshot returns nil when userId has no such notebook.
func loadSnapshot(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.NotebookSnapshot, error) {
	notebook, err := findOwned(ctx, uow, userId, id)
	if errors.Is(err, ErrNotebookNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := findRows(ctx, uow, notebook.Id)
	if err != nil {
		return nil, err
	}
	return &entity.NotebookSnapshot{Notebook: notebook, Rows: rows}, nil
}

func loadUserSnapshots(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) ([]*entity.NotebookSnapshot, error) {
	notebooks, err := uow.NotebookRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.MostRecentlyUpdated{},
	)
	if err != nil {
		return nil, fmt.Errorf("find notebooks: %w", err)
	}

	result := make([]*entity.NotebookSnapshot, 0, len(notebooks))
	if len(notebooks) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(notebooks))
	byId := make(map[uuid.UUID]*entity.NotebookSnapshot, len(notebooks))
	for _, notebook := range notebooks {
		s := &entity.NotebookSnapshot{Notebook: notebook, Rows: make([]*entity.Row, 0)}
		result = append(result, s)
		byId[notebook.Id] = s
		ids = append(ids, notebook.Id)
	}

	rows, err := uow.RowRepository().FindAll(ctx,
		specification.ByNotebookIDs{NotebookIDs: ids},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, fmt.Errorf("find rows: %w", err)
	}
	for _, r := range rows {
		if s, ok := byId[r.NotebookId]; ok {
			s.Rows = append(s.Rows, r)
		}
	}

	for _, s := range result {
		entity.SortRows(s.Rows)
	}
	entity.SortNotebooksByRecent(result)
	return result, nil
}
