package implementation

import (
	"context"
	"errors"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/mapper"
	"notebook-sync-be/internal/model"
	"notebook-sync-be/internal/repository/contract"
	"notebook-sync-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RowRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RowMapper
}

func NewRowRepository(db *gorm.DB) contract.RowRepository {
	return &RowRepositoryImpl{
		db:     db,
		mapper: mapper.NewRowMapper(),
	}
}

func (r *RowRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RowRepositoryImpl) Create(ctx context.Context, row *entity.Row) error {
	m := r.mapper.ToModel(row)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*row = *r.mapper.ToEntity(m)
	return nil
}

func (r *RowRepositoryImpl) CreateMany(ctx context.Context, rows []*entity.Row) error {
	if len(rows) == 0 {
		return nil
	}
	models := r.mapper.ToModels(rows)
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*rows[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *RowRepositoryImpl) Update(ctx context.Context, row *entity.Row) error {
	m := r.mapper.ToModel(row)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*row = *r.mapper.ToEntity(m)
	return nil
}

func (r *RowRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Row{}, id).Error
}

func (r *RowRepositoryImpl) DeleteByNotebookId(ctx context.Context, notebookId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("notebook_id = ?", notebookId).Delete(&model.Row{}).Error
}

func (r *RowRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Row, error) {
	var m model.Row
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *RowRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Row, error) {
	var models []*model.Row
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *RowRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Row{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
