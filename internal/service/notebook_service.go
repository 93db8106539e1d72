package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notebook-sync-be/internal/dto"
	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/repository/specification"
	"notebook-sync-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type INotebookService interface {
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.NotebookResponse, error)
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNotebookRequest) (*dto.CreateNotebookResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.NotebookResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNotebookRequest) (*dto.NotebookResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error

	AddRow(ctx context.Context, userId, notebookId uuid.UUID, req *dto.AddRowRequest) (*dto.RowResponse, error)
	UpdateRow(ctx context.Context, userId, notebookId, rowId uuid.UUID, req *dto.UpdateRowRequest) (*dto.RowResponse, error)
	DeleteRow(ctx context.Context, userId, notebookId, rowId uuid.UUID) error
}

type notebookService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	now              func() time.Time
}

func NewNotebookService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
) INotebookService {
	return &notebookService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		now:              time.Now,
	}
}

func notebookTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return entity.DefaultNotebookTitle
	}
	return title
}

// findOwned returns the notebook only when userId owns it.
func findOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.Notebook, error) {
	notebook, err := uow.NotebookRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, fmt.Errorf("find notebook: %w", err)
	}
	if notebook == nil {
		return nil, ErrNotebookNotFound
	}
	return notebook, nil
}

func findRows(ctx context.Context, uow unitofwork.UnitOfWork, notebookId uuid.UUID) ([]*entity.Row, error) {
	rows, err := uow.RowRepository().FindAll(ctx,
		specification.ByNotebookID{NotebookID: notebookId},
		specification.RowsInOrder{},
	)
	if err != nil {
		return nil, fmt.Errorf("find rows: %w", err)
	}
	entity.SortRows(rows)
	return rows, nil
}

func (c *notebookService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.NotebookResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	snapshots, err := loadUserSnapshots(ctx, uow, userId)
	if err != nil {
		return nil, err
	}
	return dto.NewNotebookListResponse(snapshots), nil
}

func (c *notebookService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNotebookRequest) (*dto.CreateNotebookResponse, error) {
	now := c.now()
	notebook := &entity.Notebook{
		Id:        uuid.New(),
		Title:     notebookTitle(req.Title),
		UserId:    userId,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rows := make([]*entity.Row, 0, len(req.Rows))
	if req.Rows == nil {
		rows = append(rows, newRow(notebook, "", "", 0, now))
	}
	for i, r := range req.Rows {
		rows = append(rows, newRow(notebook, r.Key, r.Value, i, now))
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.NotebookRepository().Create(ctx, notebook); err != nil {
		return nil, fmt.Errorf("create notebook: %w", err)
	}
	if err := uow.RowRepository().CreateMany(ctx, rows); err != nil {
		return nil, fmt.Errorf("create rows: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	c.publisherService.NotebookChanged(notebook)
	c.publisherService.RowsChanged(userId, notebook.Id, rows)
	c.publisherService.Event(ctx, EventNotebookCreated, map[string]interface{}{
		"notebook_id": notebook.Id.String(),
		"user_id":     userId.String(),
		"title":       notebook.Title,
	})

	return &dto.CreateNotebookResponse{
		Id: notebook.Id,
	}, nil
}

func (c *notebookService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.NotebookResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	snapshot, err := loadSnapshot(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrNotebookNotFound
	}
	return dto.NewNotebookResponse(snapshot), nil
}

func (c *notebookService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNotebookRequest) (*dto.NotebookResponse, error) {
	now := c.now()
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	notebook, err := findOwned(ctx, uow, userId, req.Id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		notebook.Title = notebookTitle(*req.Title)
	}
	notebook.UpdatedAt = now
	if err := uow.NotebookRepository().Update(ctx, notebook); err != nil {
		return nil, fmt.Errorf("update notebook: %w", err)
	}

	rows, err := findRows(ctx, uow, notebook.Id)
	if err != nil {
		return nil, err
	}

	rowsReplaced := req.Rows != nil
	if rowsReplaced {
		rows, err = c.replaceRows(ctx, uow, notebook, rows, req.Rows, now)
		if err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	c.publisherService.NotebookChanged(notebook)
	if rowsReplaced {
		c.publisherService.RowsChanged(userId, notebook.Id, rows)
	}

	return dto.NewNotebookResponse(&entity.NotebookSnapshot{Notebook: notebook, Rows: rows}), nil
}

// replaceRows swaps the row set of notebook for incoming. Rows whose id is
// already in the notebook keep it and their creation time.
func (c *notebookService) replaceRows(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	notebook *entity.Notebook,
	existing []*entity.Row,
	incoming []dto.RowRequest,
	now time.Time,
) ([]*entity.Row, error) {
	known := make(map[uuid.UUID]*entity.Row, len(existing))
	for _, r := range existing {
		known[r.Id] = r
	}

	rows := make([]*entity.Row, 0, len(incoming))
	seen := make(map[uuid.UUID]bool, len(incoming))
	for i, r := range incoming {
		order := i
		if r.Order != nil {
			order = *r.Order
		}
		row := newRow(notebook, r.Key, r.Value, order, now)
		if r.Id != nil && !seen[*r.Id] {
			if prev, ok := known[*r.Id]; ok {
				row.Id = prev.Id
				row.CreatedAt = prev.CreatedAt
			}
		}
		seen[row.Id] = true
		rows = append(rows, row)
	}

	if err := uow.RowRepository().DeleteByNotebookId(ctx, notebook.Id); err != nil {
		return nil, fmt.Errorf("delete rows: %w", err)
	}
	if err := uow.RowRepository().CreateMany(ctx, rows); err != nil {
		return nil, fmt.Errorf("create rows: %w", err)
	}

	entity.SortRows(rows)
	return rows, nil
}

func (c *notebookService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	notebook, err := findOwned(ctx, uow, userId, id)
	if err != nil {
		return err
	}
	if err := uow.RowRepository().DeleteByNotebookId(ctx, notebook.Id); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	if err := uow.NotebookRepository().Delete(ctx, notebook.Id); err != nil {
		return fmt.Errorf("delete notebook: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	// Listeners drop the rows together with the metadata.
	c.publisherService.NotebookDeleted(userId, notebook.Id)
	c.publisherService.Event(ctx, EventNotebookDeleted, map[string]interface{}{
		"notebook_id": notebook.Id.String(),
		"user_id":     userId.String(),
	})
	return nil
}

func (c *notebookService) AddRow(ctx context.Context, userId, notebookId uuid.UUID, req *dto.AddRowRequest) (*dto.RowResponse, error) {
	now := c.now()
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	notebook, err := findOwned(ctx, uow, userId, notebookId)
	if err != nil {
		return nil, err
	}
	rows, err := findRows(ctx, uow, notebook.Id)
	if err != nil {
		return nil, err
	}

	row := newRow(notebook, req.Key, req.Value, entity.NextRowOrder(rows), now)
	if err := uow.RowRepository().Create(ctx, row); err != nil {
		return nil, fmt.Errorf("create row: %w", err)
	}
	if err := c.touch(ctx, uow, notebook, now); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	rows = append(rows, row)
	c.publisherService.NotebookChanged(notebook)
	c.publisherService.RowsChanged(userId, notebook.Id, rows)

	return dto.NewRowResponse(row), nil
}

func (c *notebookService) UpdateRow(ctx context.Context, userId, notebookId, rowId uuid.UUID, req *dto.UpdateRowRequest) (*dto.RowResponse, error) {
	now := c.now()
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	notebook, err := findOwned(ctx, uow, userId, notebookId)
	if err != nil {
		return nil, err
	}
	rows, err := findRows(ctx, uow, notebook.Id)
	if err != nil {
		return nil, err
	}

	var row *entity.Row
	for _, r := range rows {
		if r.Id == rowId {
			row = r
			break
		}
	}
	if row == nil {
		return nil, ErrRowNotFound
	}

	row.Key = req.Key
	row.Value = req.Value
	row.UpdatedAt = now
	if err := uow.RowRepository().Update(ctx, row); err != nil {
		return nil, fmt.Errorf("update row: %w", err)
	}
	if err := c.touch(ctx, uow, notebook, now); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	c.publisherService.NotebookChanged(notebook)
	c.publisherService.RowsChanged(userId, notebook.Id, rows)

	return dto.NewRowResponse(row), nil
}

func (c *notebookService) DeleteRow(ctx context.Context, userId, notebookId, rowId uuid.UUID) error {
	now := c.now()
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	notebook, err := findOwned(ctx, uow, userId, notebookId)
	if err != nil {
		return err
	}
	rows, err := findRows(ctx, uow, notebook.Id)
	if err != nil {
		return err
	}

	remaining := make([]*entity.Row, 0, len(rows))
	found := false
	for _, r := range rows {
		if r.Id == rowId {
			found = true
			continue
		}
		remaining = append(remaining, r)
	}
	if !found {
		return ErrRowNotFound
	}

	if err := uow.RowRepository().Delete(ctx, rowId); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	if err := c.touch(ctx, uow, notebook, now); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	c.publisherService.NotebookChanged(notebook)
	c.publisherService.RowsChanged(userId, notebook.Id, remaining)
	return nil
}

func (c *notebookService) touch(ctx context.Context, uow unitofwork.UnitOfWork, notebook *entity.Notebook, now time.Time) error {
	notebook.UpdatedAt = now
	if err := uow.NotebookRepository().Update(ctx, notebook); err != nil {
		return fmt.Errorf("update notebook: %w", err)
	}
	return nil
}

func newRow(notebook *entity.Notebook, key, value string, order int, now time.Time) *entity.Row {
	return &entity.Row{
		Id:         uuid.New(),
		NotebookId: notebook.Id,
		UserId:     notebook.UserId,
		Key:        key,
		Value:      value,
		Order:      order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
