package specification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

type note struct {
	ID    uuid.UUID
	Title string
}

func dryRun(t *testing.T, specs ...Specification) *gorm.Statement {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)

	query := db.Model(&note{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	var out []note
	return query.Find(&out).Statement
}

func TestByIDAndOrderBy(t *testing.T) {
	id := uuid.New()
	stmt := dryRun(t, ByID{ID: id}, OrderBy{Field: "title", Desc: true}, OrderBy{Field: "id"})

	assert.Equal(t, "SELECT * FROM `notes` WHERE `id` = ? ORDER BY `title` DESC,`id`", stmt.SQL.String())
	assert.Equal(t, []interface{}{id}, stmt.Vars)
}

func TestOrderBy_QuotesField(t *testing.T) {
	stmt := dryRun(t, OrderBy{Field: "title; DROP TABLE notes"})
	assert.Equal(t, "SELECT * FROM `notes` ORDER BY `title; DROP TABLE notes`", stmt.SQL.String())
}
