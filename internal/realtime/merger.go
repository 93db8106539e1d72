package realtime

import (
	"notebook-sync-be/internal/entity"

	"github.com/google/uuid"
)

// Floors holds a revision per origin instance. Revisions from different
// origins come from different clocks and are never compared.
type Floors map[string]int64

// Merger rebuilds notebook snapshots from the metadata and rows streams.
// It is not safe for concurrent use; each listener owns one.
type Merger struct {
	notebooks map[uuid.UUID]*entity.Notebook
	rows      map[uuid.UUID][]*entity.Row

	// Last applied revision per stream and notebook.
	metaRev map[uuid.UUID]int64
	rowsRev map[uuid.UUID]int64

	// Changes at or below their origin's floor were already reflected by
	// the seed.
	floors Floors
}

func NewMerger(floors Floors) *Merger {
	return &Merger{
		notebooks: make(map[uuid.UUID]*entity.Notebook),
		rows:      make(map[uuid.UUID][]*entity.Row),
		metaRev:   make(map[uuid.UUID]int64),
		rowsRev:   make(map[uuid.UUID]int64),
		floors:    floors,
	}
}

// Seed loads a snapshot read from the store.
func (m *Merger) Seed(snapshot *entity.NotebookSnapshot) {
	if snapshot == nil || snapshot.Notebook == nil {
		return
	}
	id := snapshot.Notebook.Id
	m.notebooks[id] = snapshot.Notebook
	m.rows[id] = sortedCopy(snapshot.Rows)
}

func (m *Merger) stale(revs map[uuid.UUID]int64, id uuid.UUID, origin string, rev int64) bool {
	if floor, ok := m.floors[origin]; ok && rev <= floor {
		return true
	}
	last, ok := revs[id]
	return ok && rev <= last
}

// ApplyMetadata returns the snapshot to emit for change, nil for a deletion.
// emit is false when the change is stale.
func (m *Merger) ApplyMetadata(change *MetadataChange) (snapshot *entity.NotebookSnapshot, emit bool) {
	id := change.NotebookId
	if m.stale(m.metaRev, id, change.Origin, change.Revision) {
		return nil, false
	}
	m.metaRev[id] = change.Revision

	if change.Notebook == nil {
		// Deleting the notebook drops any rows held for it.
		delete(m.notebooks, id)
		delete(m.rows, id)
		return nil, true
	}

	m.notebooks[id] = change.Notebook
	return m.snapshot(id), true
}

// ApplyRows returns the snapshot to emit for change. Rows for a notebook
// whose metadata has not arrived yet are held and emit is false.
func (m *Merger) ApplyRows(change *RowsChange) (snapshot *entity.NotebookSnapshot, emit bool) {
	id := change.NotebookId
	if m.stale(m.rowsRev, id, change.Origin, change.Revision) {
		return nil, false
	}
	m.rowsRev[id] = change.Revision
	m.rows[id] = sortedCopy(change.Rows)

	if _, ok := m.notebooks[id]; !ok {
		return nil, false
	}
	return m.snapshot(id), true
}

// Get returns the current snapshot of id, nil when unknown.
func (m *Merger) Get(id uuid.UUID) *entity.NotebookSnapshot {
	if _, ok := m.notebooks[id]; !ok {
		return nil
	}
	return m.snapshot(id)
}

// Snapshots returns every known notebook, most recently updated first.
func (m *Merger) Snapshots() []*entity.NotebookSnapshot {
	out := make([]*entity.NotebookSnapshot, 0, len(m.notebooks))
	for id := range m.notebooks {
		out = append(out, m.snapshot(id))
	}
	entity.SortNotebooksByRecent(out)
	return out
}

func (m *Merger) snapshot(id uuid.UUID) *entity.NotebookSnapshot {
	rows := make([]*entity.Row, len(m.rows[id]))
	copy(rows, m.rows[id])
	return &entity.NotebookSnapshot{
		Notebook: m.notebooks[id],
		Rows:     rows,
	}
}

func sortedCopy(rows []*entity.Row) []*entity.Row {
	out := make([]*entity.Row, len(rows))
	copy(out, rows)
	entity.SortRows(out)
	return out
}
