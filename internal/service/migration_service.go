package service

import (
	"context"
	"fmt"
	"time"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/repository/specification"
	"notebook-sync-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// IMigrationService moves notes from the flat legacy layout to notebooks
// with separate row records.
type IMigrationService interface {
	MigrateToNewStructure(ctx context.Context) ([]entity.MigratedNote, error)
	CleanupOldStructure(ctx context.Context) (int64, error)
}

type migrationService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	now        func() time.Time
}

func NewMigrationService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IMigrationService {
	return &migrationService{
		uowFactory: uowFactory,
		logger:     log,
		now:        time.Now,
	}
}

// MigrateToNewStructure is safe to re-run: notebooks are upserted by id and
// row ids are derived deterministically.
func (s *migrationService) MigrateToNewStructure(ctx context.Context) ([]entity.MigratedNote, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	notes, err := uow.LegacyNoteRepository().FindAll(ctx,
		specification.HasOwner{},
		specification.OrderBy{Field: "id"},
	)
	if err != nil {
		return nil, fmt.Errorf("read legacy notes: %w", err)
	}

	migrated := make([]entity.MigratedNote, 0, len(notes))
	for _, note := range notes {
		// The store filters these already; a fake or a partial read may not.
		if note.UserId == nil {
			s.logger.Warn("Migration", "Skipping legacy note without owner", map[string]interface{}{"note_id": note.Id})
			continue
		}

		if note.RowsIgnored {
			s.logger.Warn("Migration", "Legacy rows are not a list, migrating notebook without rows", map[string]interface{}{"note_id": note.Id})
		}

		if err := s.migrateNote(ctx, note); err != nil {
			s.logger.Error("Migration", "Legacy note migration failed", map[string]interface{}{"note_id": note.Id, "error": err})
			return migrated, fmt.Errorf("migrate note %s: %w", note.Id, err)
		}
		migrated = append(migrated, entity.MigratedNote{NoteId: note.Id, UserId: *note.UserId})
	}

	s.logger.Info("Migration", "Legacy notes migrated", map[string]interface{}{"count": len(migrated), "read": len(notes)})
	return migrated, nil
}

func (s *migrationService) migrateNote(ctx context.Context, note *entity.LegacyNote) error {
	notebook, rows := convertLegacyNote(note, s.now())

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.NotebookRepository().Upsert(ctx, notebook); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	if err := uow.RowRepository().DeleteByNotebookId(ctx, notebook.Id); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if err := uow.RowRepository().CreateMany(ctx, rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return uow.Commit()
}

// convertLegacyNote maps one legacy note, filling the defaults the flat
// layout never enforced.
func convertLegacyNote(note *entity.LegacyNote, now time.Time) (*entity.Notebook, []*entity.Row) {
	createdAt := now
	if note.CreatedAt != nil {
		createdAt = *note.CreatedAt
	}
	updatedAt := now
	if note.UpdatedAt != nil {
		updatedAt = *note.UpdatedAt
	}

	notebook := &entity.Notebook{
		Id:        note.Id,
		Title:     notebookTitle(note.Title),
		UserId:    *note.UserId,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	// Rows sharing an id collapse into one; the last occurrence wins.
	rows := make([]*entity.Row, 0, len(note.Rows))
	seen := make(map[uuid.UUID]int, len(note.Rows))
	for i, lr := range note.Rows {
		order := i
		if lr.Order != nil {
			order = *lr.Order
		}
		row := &entity.Row{
			Id:         legacyRowID(notebook.Id, lr.Id, i),
			NotebookId: notebook.Id,
			UserId:     notebook.UserId,
			Key:        lr.Key,
			Value:      lr.Value,
			Order:      order,
			CreatedAt:  createdAt,
			UpdatedAt:  updatedAt,
		}
		if at, dup := seen[row.Id]; dup {
			rows[at] = row
			continue
		}
		seen[row.Id] = len(rows)
		rows = append(rows, row)
	}
	return notebook, rows
}

// legacyRowID keeps uuid ids and derives a stable one from anything else.
func legacyRowID(notebookId uuid.UUID, legacyId string, index int) uuid.UUID {
	if id, err := uuid.Parse(legacyId); err == nil {
		return id
	}
	if legacyId == "" {
		legacyId = fmt.Sprintf("row_%d", index)
	}
	return uuid.NewSHA1(notebookId, []byte(legacyId))
}

func (s *migrationService) CleanupOldStructure(ctx context.Context) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	deleted, err := uow.LegacyNoteRepository().DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete legacy notes: %w", err)
	}
	s.logger.Info("Migration", "Legacy notes removed", map[string]interface{}{"count": deleted})
	return deleted, nil
}
