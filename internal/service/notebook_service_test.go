package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"notebook-sync-be/internal/dto"
	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notebookFixture struct {
	store   *memStore
	changes *recordingChanges
	events  *recordingEvents
	svc     *notebookService
	clock   time.Time
}

func newNotebookFixture(t *testing.T) *notebookFixture {
	t.Helper()
	f := &notebookFixture{
		store:   newMemStore(),
		changes: &recordingChanges{},
		events:  &recordingEvents{},
		clock:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	publisher := NewPublisherService(f.changes, f.events, logger.NewNopLogger())
	f.svc = NewNotebookService(&fakeFactory{store: f.store}, publisher).(*notebookService)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *notebookFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func rowKeys(rows []*dto.RowResponse) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Key)
	}
	return out
}

func TestNotebookService_CreateDefaults(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	res, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "   "})
	require.NoError(t, err)

	nb, err := f.svc.Show(ctx, userId, res.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultNotebookTitle, nb.Title)
	require.Len(t, nb.Rows, 1, "a new notebook starts with one empty row")
	assert.Equal(t, "", nb.Rows[0].Key)
	assert.Equal(t, "", nb.Rows[0].Value)
	assert.Equal(t, 0, nb.Rows[0].Order)
	assert.Equal(t, f.clock, nb.CreatedAt)
	assert.Equal(t, f.clock, nb.UpdatedAt)

	require.Len(t, f.changes.metadata, 1)
	assert.Equal(t, res.Id, f.changes.metadata[0].NotebookId)
	assert.Equal(t, userId, f.changes.metadata[0].UserId)
	require.Len(t, f.changes.rows, 1)
	assert.Len(t, f.changes.rows[0].Rows, 1)
	assert.Equal(t, []string{EventNotebookCreated}, f.events.types())
}

func TestNotebookService_CreateWithRows(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	res, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{
		Title: "Groceries",
		Rows: []dto.RowRequest{
			{Key: "milk", Value: "2", Order: intPtr(9)},
			{Key: "eggs", Value: "12"},
		},
	})
	require.NoError(t, err)

	nb, err := f.svc.Show(ctx, userId, res.Id)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", nb.Title)
	assert.Equal(t, []string{"milk", "eggs"}, rowKeys(nb.Rows))
	assert.Equal(t, 0, nb.Rows[0].Order, "supplied rows are ordered by position")
	assert.Equal(t, 1, nb.Rows[1].Order)

	empty, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "Empty", Rows: []dto.RowRequest{}})
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.rowCount(empty.Id))
}

func TestNotebookService_CreateRollsBackOnFailure(t *testing.T) {
	f := newNotebookFixture(t)
	f.store.failOn = "row.create"

	_, err := f.svc.Create(context.Background(), uuid.New(), &dto.CreateNotebookRequest{Title: "x"})
	require.ErrorIs(t, err, errInjected)

	assert.Empty(t, f.store.notebooks, "the notebook insert must be rolled back")
	assert.Empty(t, f.changes.metadata, "nothing is published for a failed write")
	assert.Empty(t, f.events.types())
}

func TestNotebookService_OwnershipIsolation(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()

	res, err := f.svc.Create(ctx, owner, &dto.CreateNotebookRequest{Title: "mine"})
	require.NoError(t, err)

	shown, err := f.svc.Show(ctx, owner, res.Id)
	require.NoError(t, err)
	assert.Equal(t, owner, shown.UserId)

	_, err = f.svc.Show(ctx, stranger, res.Id)
	assert.ErrorIs(t, err, ErrNotebookNotFound)

	_, err = f.svc.Update(ctx, stranger, &dto.UpdateNotebookRequest{Id: res.Id, Title: strPtr("stolen")})
	assert.ErrorIs(t, err, ErrNotebookNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, stranger, res.Id), ErrNotebookNotFound)

	_, err = f.svc.AddRow(ctx, stranger, res.Id, &dto.AddRowRequest{Key: "k"})
	assert.ErrorIs(t, err, ErrNotebookNotFound)

	list, err := f.svc.GetAll(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNotebookService_GetAllMostRecentFirst(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	first, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "first"})
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "second"})
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.svc.Create(ctx, uuid.New(), &dto.CreateNotebookRequest{Title: "someone else"})
	require.NoError(t, err)

	list, err := f.svc.GetAll(ctx, userId)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)

	// Touching the older one moves it to the top.
	f.advance(time.Minute)
	_, err = f.svc.AddRow(ctx, userId, first.Id, &dto.AddRowRequest{Key: "k"})
	require.NoError(t, err)

	list, err = f.svc.GetAll(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "first", list[0].Title)
	assert.Len(t, list[0].Rows, 2)
}

func TestNotebookService_Update(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	res, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{
		Title: "t",
		Rows:  []dto.RowRequest{{Key: "a"}, {Key: "b"}},
	})
	require.NoError(t, err)
	before, err := f.svc.Show(ctx, userId, res.Id)
	require.NoError(t, err)
	keep := before.Rows[1]

	f.advance(time.Hour)
	f.changes.metadata, f.changes.rows = nil, nil

	// Title only: rows untouched, no rows change published.
	updated, err := f.svc.Update(ctx, userId, &dto.UpdateNotebookRequest{Id: res.Id, Title: strPtr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, f.clock, updated.UpdatedAt)
	assert.Equal(t, []string{"a", "b"}, rowKeys(updated.Rows))
	assert.Len(t, f.changes.metadata, 1)
	assert.Empty(t, f.changes.rows)

	// Full row replacement keeps known ids.
	stranger := uuid.New()
	updated, err = f.svc.Update(ctx, userId, &dto.UpdateNotebookRequest{
		Id: res.Id,
		Rows: []dto.RowRequest{
			{Id: &keep.Id, Key: "b2", Order: intPtr(5)},
			{Id: &stranger, Key: "c"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title, "a missing title is left alone")
	assert.Equal(t, []string{"c", "b2"}, rowKeys(updated.Rows), "rows sorted by order")
	assert.Equal(t, 1, updated.Rows[0].Order, "missing order defaults to the index")
	assert.Equal(t, keep.Id, updated.Rows[1].Id)
	assert.Equal(t, keep.CreatedAt, updated.Rows[1].CreatedAt)
	assert.NotEqual(t, stranger, updated.Rows[0].Id, "unknown ids are replaced")
	assert.Equal(t, 2, f.store.rowCount(res.Id))
	require.Len(t, f.changes.rows, 1)
	assert.Len(t, f.changes.rows[0].Rows, 2)

	blank, err := f.svc.Update(ctx, userId, &dto.UpdateNotebookRequest{Id: res.Id, Title: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultNotebookTitle, blank.Title)
}

func TestNotebookService_Delete(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	res, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "bye"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, userId, res.Id))

	_, err = f.svc.Show(ctx, userId, res.Id)
	assert.ErrorIs(t, err, ErrNotebookNotFound)
	assert.Equal(t, 0, f.store.rowCount(res.Id), "rows go with the notebook")

	last := f.changes.metadata[len(f.changes.metadata)-1]
	assert.Equal(t, res.Id, last.NotebookId)
	assert.Nil(t, last.Notebook, "a nil notebook marks the deletion")
	assert.Equal(t, []string{EventNotebookCreated, EventNotebookDeleted}, f.events.types())

	assert.ErrorIs(t, f.svc.Delete(ctx, userId, res.Id), ErrNotebookNotFound)
}

func TestNotebookService_RowOperations(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	res, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "rows"})
	require.NoError(t, err)

	r1, err := f.svc.AddRow(ctx, userId, res.Id, &dto.AddRowRequest{Key: "one", Value: "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, r1.Order)
	r2, err := f.svc.AddRow(ctx, userId, res.Id, &dto.AddRowRequest{Key: "two", Value: "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, r2.Order)

	// Deleting leaves a gap and the next row still goes after the max.
	require.NoError(t, f.svc.DeleteRow(ctx, userId, res.Id, r1.Id))
	r3, err := f.svc.AddRow(ctx, userId, res.Id, &dto.AddRowRequest{Key: "three"})
	require.NoError(t, err)
	assert.Equal(t, 3, r3.Order)

	f.advance(time.Minute)
	edited, err := f.svc.UpdateRow(ctx, userId, res.Id, r2.Id, &dto.UpdateRowRequest{Key: "TWO", Value: "22"})
	require.NoError(t, err)
	assert.Equal(t, 2, edited.Order, "order is unchanged by edits")
	assert.Equal(t, f.clock, edited.UpdatedAt)

	nb, err := f.svc.Show(ctx, userId, res.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "TWO", "three"}, rowKeys(nb.Rows))
	assert.Equal(t, []int{0, 2, 3}, []int{nb.Rows[0].Order, nb.Rows[1].Order, nb.Rows[2].Order})
	assert.Equal(t, f.clock, nb.UpdatedAt, "row edits bump the notebook")

	lastRows := f.changes.rows[len(f.changes.rows)-1]
	assert.Len(t, lastRows.Rows, 3)

	_, err = f.svc.UpdateRow(ctx, userId, res.Id, r1.Id, &dto.UpdateRowRequest{Key: "gone"})
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.ErrorIs(t, f.svc.DeleteRow(ctx, userId, res.Id, uuid.New()), ErrRowNotFound)

	// A row of another notebook is not reachable through this one.
	other, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "other"})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeleteRow(ctx, userId, other.Id, r2.Id), ErrRowNotFound)
}

func TestNotebookService_EventFailureDoesNotFailWrite(t *testing.T) {
	f := newNotebookFixture(t)
	f.events.err = errors.New("nats unavailable")

	_, err := f.svc.Create(context.Background(), uuid.New(), &dto.CreateNotebookRequest{Title: "x"})
	assert.NoError(t, err)
}

func TestSnapshotLoader(t *testing.T) {
	f := newNotebookFixture(t)
	ctx := context.Background()
	userId := uuid.New()

	res, err := f.svc.Create(ctx, userId, &dto.CreateNotebookRequest{Title: "x", Rows: []dto.RowRequest{{Key: "b"}, {Key: "a"}}})
	require.NoError(t, err)

	loader := NewSnapshotLoader(&fakeFactory{store: f.store})

	s, err := loader.LoadNotebook(ctx, userId, res.Id)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "b", s.Rows[0].Key)
	assert.Equal(t, "a", s.Rows[1].Key)

	missing, err := loader.LoadNotebook(ctx, uuid.New(), res.Id)
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := loader.LoadUserNotebooks(ctx, userId)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
