package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/realtime"
	"notebook-sync-be/internal/repository/contract"
	"notebook-sync-be/internal/repository/specification"
	"notebook-sync-be/internal/repository/unitofwork"
	"notebook-sync-be/pkg/events"

	"github.com/google/uuid"
)

// memStore is an in-memory database shared by every fake unit of work.
type memStore struct {
	mu        sync.Mutex
	notebooks map[uuid.UUID]entity.Notebook
	rows      map[uuid.UUID]entity.Row
	users     map[uuid.UUID]entity.User
	providers map[string]entity.UserProvider
	sessions  map[uuid.UUID]entity.UserSession
	legacy    map[uuid.UUID]entity.LegacyNote

	// failOn makes the named operation return an error.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{
		notebooks: map[uuid.UUID]entity.Notebook{},
		rows:      map[uuid.UUID]entity.Row{},
		users:     map[uuid.UUID]entity.User{},
		providers: map[string]entity.UserProvider{},
		sessions:  map[uuid.UUID]entity.UserSession{},
		legacy:    map[uuid.UUID]entity.LegacyNote{},
	}
}

var errInjected = errors.New("injected failure")

func (s *memStore) fail(op string) error {
	if s.failOn == op {
		return errInjected
	}
	return nil
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.notebooks {
		c.notebooks[k] = v
	}
	for k, v := range s.rows {
		c.rows[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.providers {
		c.providers[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.legacy {
		c.legacy[k] = v
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.notebooks, s.rows, s.users = from.notebooks, from.rows, from.users
	s.providers, s.sessions, s.legacy = from.providers, from.sessions, from.legacy
}

func (s *memStore) rowCount(notebookId uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.NotebookId == notebookId {
			n++
		}
	}
	return n
}

type fakeFactory struct {
	store *memStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{store: f.store}
}

type fakeUoW struct {
	store  *memStore
	backup *memStore
}

func (u *fakeUoW) Begin(ctx context.Context) error {
	if u.backup != nil {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.backup = u.store.clone()
	u.store.mu.Unlock()
	return nil
}

func (u *fakeUoW) Commit() error {
	if u.backup == nil {
		return fmt.Errorf("no transaction to commit")
	}
	if err := u.store.fail("commit"); err != nil {
		return err
	}
	u.backup = nil
	return nil
}

func (u *fakeUoW) Rollback() error {
	if u.backup == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	u.store.mu.Lock()
	u.store.restore(u.backup)
	u.store.mu.Unlock()
	u.backup = nil
	return nil
}

func (u *fakeUoW) UserRepository() contract.UserRepository {
	return &fakeUserRepo{s: u.store}
}

func (u *fakeUoW) NotebookRepository() contract.NotebookRepository {
	return &fakeNotebookRepo{s: u.store}
}

func (u *fakeUoW) RowRepository() contract.RowRepository {
	return &fakeRowRepo{s: u.store}
}

func (u *fakeUoW) LegacyNoteRepository() contract.LegacyNoteRepository {
	return &fakeLegacyRepo{s: u.store}
}

// record is the view of a stored entity that the specifications filter on.
type record struct {
	id         uuid.UUID
	userId     *uuid.UUID
	notebookId uuid.UUID
	email      string
	revoked    bool
}

func matches(r record, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if r.id != sp.ID {
				return false
			}
		case specification.UserOwnedBy:
			if r.userId == nil || *r.userId != sp.UserID {
				return false
			}
		case specification.ByNotebookID:
			if r.notebookId != sp.NotebookID {
				return false
			}
		case specification.ByNotebookIDs:
			if !containsID(sp.NotebookIDs, r.notebookId) {
				return false
			}
		case specification.ByEmail:
			if r.email != sp.Email {
				return false
			}
		case specification.HasOwner:
			if r.userId == nil {
				return false
			}
		case specification.NotRevoked:
			if r.revoked {
				return false
			}
		case specification.RowsInOrder, specification.MostRecentlyUpdated, specification.OrderBy:
			// Ordering is applied by the callers under test.
		default:
			panic(fmt.Sprintf("fake repository: unsupported specification %T", spec))
		}
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

type fakeNotebookRepo struct{ s *memStore }

func notebookRecord(n entity.Notebook) record {
	return record{id: n.Id, userId: &n.UserId}
}

func (r *fakeNotebookRepo) Create(ctx context.Context, n *entity.Notebook) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notebook.create"); err != nil {
		return err
	}
	if _, ok := r.s.notebooks[n.Id]; ok {
		return fmt.Errorf("duplicate notebook %s", n.Id)
	}
	r.s.notebooks[n.Id] = *n
	return nil
}

func (r *fakeNotebookRepo) Update(ctx context.Context, n *entity.Notebook) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notebooks[n.Id] = *n
	return nil
}

func (r *fakeNotebookRepo) Upsert(ctx context.Context, n *entity.Notebook) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notebook.upsert"); err != nil {
		return err
	}
	r.s.notebooks[n.Id] = *n
	return nil
}

func (r *fakeNotebookRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.notebooks, id)
	return nil
}

func (r *fakeNotebookRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Notebook, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeNotebookRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notebook, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notebook.find"); err != nil {
		return nil, err
	}
	var out []*entity.Notebook
	for _, n := range r.s.notebooks {
		if matches(notebookRecord(n), specs) {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id.String() < out[j].Id.String() })
	return out, nil
}

func (r *fakeNotebookRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

type fakeRowRepo struct{ s *memStore }

func rowRecord(row entity.Row) record {
	return record{id: row.Id, userId: &row.UserId, notebookId: row.NotebookId}
}

func (r *fakeRowRepo) Create(ctx context.Context, row *entity.Row) error {
	return r.CreateMany(ctx, []*entity.Row{row})
}

func (r *fakeRowRepo) CreateMany(ctx context.Context, rows []*entity.Row) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("row.create"); err != nil {
		return err
	}
	for _, row := range rows {
		if _, ok := r.s.rows[row.Id]; ok {
			return fmt.Errorf("duplicate row %s", row.Id)
		}
		r.s.rows[row.Id] = *row
	}
	return nil
}

func (r *fakeRowRepo) Update(ctx context.Context, row *entity.Row) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rows[row.Id] = *row
	return nil
}

func (r *fakeRowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.rows, id)
	return nil
}

func (r *fakeRowRepo) DeleteByNotebookId(ctx context.Context, notebookId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, row := range r.s.rows {
		if row.NotebookId == notebookId {
			delete(r.s.rows, id)
		}
	}
	return nil
}

func (r *fakeRowRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Row, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeRowRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Row, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Row
	for _, row := range r.s.rows {
		if matches(rowRecord(row), specs) {
			row := row
			out = append(out, &row)
		}
	}
	// Map order is random; the services must sort for themselves.
	return out, nil
}

func (r *fakeRowRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("duplicate email %s", u.Email)
		}
	}
	r.s.users[u.Id] = *u
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[u.Id] = *u
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if matches(record{id: u.Id, email: u.Email}, specs) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if matches(record{id: u.Id, email: u.Email}, specs) {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) SaveUserProvider(ctx context.Context, p *entity.UserProvider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := p.ProviderName + "/" + p.ProviderUserId
	if existing, ok := r.s.providers[key]; ok {
		existing.UserId, existing.AvatarURL = p.UserId, p.AvatarURL
		r.s.providers[key] = existing
		return nil
	}
	r.s.providers[key] = *p
	return nil
}

func (r *fakeUserRepo) CreateSession(ctx context.Context, session *entity.UserSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[session.Id] = *session
	return nil
}

func (r *fakeUserRepo) FindSession(ctx context.Context, specs ...specification.Specification) (*entity.UserSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		session := session
		if matches(record{id: session.Id, userId: &session.UserId, revoked: session.RevokedAt != nil}, specs) {
			return &session, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) RevokeSession(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok || session.RevokedAt != nil {
		return nil
	}
	now := time.Now()
	session.RevokedAt = &now
	r.s.sessions[id] = session
	return nil
}

type fakeLegacyRepo struct{ s *memStore }

func (r *fakeLegacyRepo) Create(ctx context.Context, note *entity.LegacyNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.legacy[note.Id] = *note
	return nil
}

func (r *fakeLegacyRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LegacyNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.LegacyNote
	for _, note := range r.s.legacy {
		note := note
		if matches(record{id: note.Id, userId: note.UserId}, specs) {
			out = append(out, &note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id.String() < out[j].Id.String() })
	return out, nil
}

func (r *fakeLegacyRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.legacy))
	r.s.legacy = map[uuid.UUID]entity.LegacyNote{}
	return n, nil
}

// recordingChanges captures what the services publish to the change feed.
type recordingChanges struct {
	mu       sync.Mutex
	metadata []*realtime.MetadataChange
	rows     []*realtime.RowsChange
}

func (r *recordingChanges) PublishMetadata(c *realtime.MetadataChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata = append(r.metadata, c)
	return nil
}

func (r *recordingChanges) PublishRows(c *realtime.RowsChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, c)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingEvents) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}
