package implementation

import (
	"context"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/mapper"
	"notebook-sync-be/internal/model"
	"notebook-sync-be/internal/repository/contract"
	"notebook-sync-be/internal/repository/specification"

	"gorm.io/gorm"
)

type LegacyNoteRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LegacyNoteMapper
}

func NewLegacyNoteRepository(db *gorm.DB) contract.LegacyNoteRepository {
	return &LegacyNoteRepositoryImpl{
		db:     db,
		mapper: mapper.NewLegacyNoteMapper(),
	}
}

func (r *LegacyNoteRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *LegacyNoteRepositoryImpl) Create(ctx context.Context, note *entity.LegacyNote) error {
	m, err := r.mapper.ToModel(note)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *LegacyNoteRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LegacyNote, error) {
	var models []*model.LegacyNote
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	notes := make([]*entity.LegacyNote, 0, len(models))
	for _, m := range models {
		notes = append(notes, r.mapper.ToEntity(m))
	}
	return notes, nil
}

func (r *LegacyNoteRepositoryImpl) DeleteAll(ctx context.Context) (int64, error) {
	// AllowGlobalUpdate lets a WHERE-less delete through GORM's safety check.
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.LegacyNote{})
	return res.RowsAffected, res.Error
}
