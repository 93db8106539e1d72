package mapper

import (
	"testing"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestLegacyNoteMapper_ToEntity(t *testing.T) {
	m := NewLegacyNoteMapper()
	id := uuid.New()
	order := func(i int) *int { return &i }

	t.Run("decodes rows with optional fields", func(t *testing.T) {
		note := m.ToEntity(&model.LegacyNote{
			Id:   id,
			Rows: datatypes.JSON(`[{"id":"a","key":"milk","value":"2","order":3},{"value":"only value"}]`),
		})
		require.Len(t, note.Rows, 2)
		assert.Equal(t, entity.LegacyRow{Id: "a", Key: "milk", Value: "2", Order: order(3)}, note.Rows[0])
		assert.Equal(t, entity.LegacyRow{Value: "only value"}, note.Rows[1])
		assert.False(t, note.RowsIgnored)
	})

	t.Run("null and empty columns have no rows", func(t *testing.T) {
		for _, raw := range []string{"", "null", "  "} {
			note := m.ToEntity(&model.LegacyNote{Id: id, Rows: datatypes.JSON(raw)})
			assert.Empty(t, note.Rows)
			assert.False(t, note.RowsIgnored, raw)
		}
	})

	t.Run("rows that are not a list are ignored", func(t *testing.T) {
		for _, raw := range []string{`{"0":{"key":"a"}}`, `"rows"`, `12`, `[{"key":`} {
			note := m.ToEntity(&model.LegacyNote{Id: id, Title: "kept", Rows: datatypes.JSON(raw)})
			assert.Empty(t, note.Rows, raw)
			assert.True(t, note.RowsIgnored, raw)
			assert.Equal(t, "kept", note.Title)
		}
	})

	t.Run("coerces loosely typed fields", func(t *testing.T) {
		note := m.ToEntity(&model.LegacyNote{Id: id, Rows: datatypes.JSON(`[
			{"id":7,"key":true,"value":12.50,"order":"4"},
			{"key":false,"value":null,"order":1.9},
			{"value":{"nested":1},"order":"first"},
			"not an object",
			{"key":"last","order":" 2 "}
		]`)})
		want := []entity.LegacyRow{
			{Id: "7", Key: "true", Value: "12.50", Order: order(4)},
			{Order: order(1)},
			{},
			{},
			{Key: "last", Order: order(2)},
		}
		assert.Equal(t, want, note.Rows)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, m.ToEntity(nil))
	})
}

func TestLegacyNoteMapper_ToModel(t *testing.T) {
	m := NewLegacyNoteMapper()
	order := 1
	note, err := m.ToModel(&entity.LegacyNote{
		Id:   uuid.New(),
		Rows: []entity.LegacyRow{{Key: "k", Value: "v", Order: &order}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"k","value":"v","order":1}]`, string(note.Rows))
}
