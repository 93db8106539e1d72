package mapper

import (
	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/model"
)

type RowMapper struct{}

func NewRowMapper() *RowMapper {
	return &RowMapper{}
}

func (m *RowMapper) ToEntity(r *model.Row) *entity.Row {
	if r == nil {
		return nil
	}
	return &entity.Row{
		Id:         r.Id,
		NotebookId: r.NotebookId,
		UserId:     r.UserId,
		Key:        r.Key,
		Value:      r.Value,
		Order:      r.Order,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (m *RowMapper) ToModel(r *entity.Row) *model.Row {
	if r == nil {
		return nil
	}
	return &model.Row{
		Id:         r.Id,
		NotebookId: r.NotebookId,
		UserId:     r.UserId,
		Key:        r.Key,
		Value:      r.Value,
		Order:      r.Order,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (m *RowMapper) ToEntities(rows []*model.Row) []*entity.Row {
	entities := make([]*entity.Row, len(rows))
	for i, r := range rows {
		entities[i] = m.ToEntity(r)
	}
	return entities
}

func (m *RowMapper) ToModels(rows []*entity.Row) []*model.Row {
	models := make([]*model.Row, len(rows))
	for i, r := range rows {
		models[i] = m.ToModel(r)
	}
	return models
}
