package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
)

// memApps is an in-memory applications table enforcing the same unique
// constraints as the database.
type memApps struct {
	mu        sync.Mutex
	rows      map[int64]*models.Application
	reviews   map[int64]map[models.DocumentKey]models.DocumentReview
	cols      map[models.DocumentKey]models.ReviewColumns
	nextID    int64
	reviewErr error
	listErr   error
}

func newMemApps(apps ...models.Application) *memApps {
	m := &memApps{
		rows:    map[int64]*models.Application{},
		reviews: map[int64]map[models.DocumentKey]models.DocumentReview{},
		cols:    map[models.DocumentKey]models.ReviewColumns{},
	}
	for i := range apps {
		app := apps[i]
		if app.ID > m.nextID {
			m.nextID = app.ID
		}
		m.rows[app.ID] = &app
	}
	return m
}

func (m *memApps) snapshot(id int64) *models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app, ok := m.rows[id]; ok {
		clone := *app
		return &clone
	}
	return nil
}

func (m *memApps) FindByID(_ context.Context, _ sqlx.ExtContext, id int64) (*models.Application, error) {
	if app := m.snapshot(id); app != nil {
		return app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memApps) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Application, error) {
	return m.FindByID(ctx, exec, id)
}

func (m *memApps) FindOwnedDraft(_ context.Context, id, userID int64) (*models.Application, error) {
	app := m.snapshot(id)
	if app == nil || !app.IsDraft() || !app.OwnedBy(userID) {
		return nil, sql.ErrNoRows
	}
	return app, nil
}

func (m *memApps) FindDraftByProgram(_ context.Context, userID int64, program string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range m.rows {
		if app.IsDraft() && app.OwnedBy(userID) && app.ProgramName != nil && *app.ProgramName == program {
			clone := *app
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memApps) HasSubmitted(_ context.Context, _ sqlx.ExtContext, userID, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasSubmittedLocked(userID, excludeID), nil
}

func (m *memApps) hasSubmittedLocked(userID, excludeID int64) bool {
	for id, app := range m.rows {
		if id != excludeID && !app.IsDraft() && app.OwnedBy(userID) {
			return true
		}
	}
	return false
}

func (m *memApps) Exists(_ context.Context, _ sqlx.ExtContext, id int64) (bool, error) {
	return m.snapshot(id) != nil, nil
}

func (m *memApps) filter(keep func(*models.Application) bool) []models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Application, 0)
	for _, app := range m.rows {
		if keep(app) {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memApps) ListDrafts(_ context.Context, userID int64) ([]models.Application, error) {
	return m.filter(func(a *models.Application) bool { return a.IsDraft() && a.OwnedBy(userID) }), nil
}

func (m *memApps) ListSubmittedByUser(_ context.Context, userID int64) ([]models.Application, error) {
	return m.filter(func(a *models.Application) bool { return !a.IsDraft() && a.OwnedBy(userID) }), nil
}

func (m *memApps) List(_ context.Context, f models.ApplicationFilter) ([]models.Application, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.filter(func(a *models.Application) bool {
		if f.Status != nil && a.Status != *f.Status {
			return false
		}
		if f.Status == nil && !f.IncludeDrafts && a.IsDraft() {
			return false
		}
		return f.ProgramName == "" || (a.ProgramName != nil && *a.ProgramName == f.ProgramName)
	}), nil
}

func (m *memApps) Create(_ context.Context, _ sqlx.ExtContext, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	if app.ID > 0 {
		if _, taken := m.rows[app.ID]; taken {
			return repository.ErrDuplicate
		}
	}
	if app.UserID != nil && m.conflictsLocked(*app.UserID, app) {
		return repository.ErrDuplicate
	}
	if app.ID == 0 {
		m.nextID++
		app.ID = m.nextID
	} else if app.ID > m.nextID {
		m.nextID = app.ID
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	clone := *app
	m.rows[app.ID] = &clone
	return nil
}

// conflictsLocked mirrors the partial unique indexes on applications.
func (m *memApps) conflictsLocked(userID int64, app *models.Application) bool {
	if !app.IsDraft() {
		return m.hasSubmittedLocked(userID, app.ID)
	}
	for id, other := range m.rows {
		if id != app.ID && other.IsDraft() && other.OwnedBy(userID) && other.ProgramName != nil && app.ProgramName != nil && *other.ProgramName == *app.ProgramName {
			return true
		}
	}
	return false
}

func (m *memApps) Update(_ context.Context, _ sqlx.ExtContext, id int64, patch repository.ApplicationPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.rows[id]
	if !ok {
		return 0, nil
	}
	next := *app
	mergeDetails(&next.ApplicantDetails, patch.Details)
	for key, path := range patch.Documents {
		if path != "" {
			next.Set(key, path)
		}
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if next.UserID != nil && m.conflictsLocked(*next.UserID, &next) {
		return 0, repository.ErrDuplicate
	}
	*app = next
	return 1, nil
}

func (m *memApps) Delete(_ context.Context, _ sqlx.ExtContext, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	delete(m.reviews, id)
	return 1, nil
}

func (m *memApps) DeleteOwnedDraft(ctx context.Context, id, userID int64) (int64, error) {
	if _, err := m.FindOwnedDraft(ctx, id, userID); err != nil {
		return 0, nil
	}
	return m.Delete(ctx, nil, id)
}

func (m *memApps) ReviewColumns(context.Context) (map[models.DocumentKey]models.ReviewColumns, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.DocumentKey]models.ReviewColumns, len(m.cols))
	for k, v := range m.cols {
		out[k] = v
	}
	return out, nil
}

func (m *memApps) UpdateDocumentReview(_ context.Context, _ sqlx.ExtContext, id int64, key models.DocumentKey, cols models.ReviewColumns, review models.DocumentReview) (int64, error) {
	if m.reviewErr != nil {
		return 0, m.reviewErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	if m.reviews[id] == nil {
		m.reviews[id] = map[models.DocumentKey]models.DocumentReview{}
	}
	current := m.reviews[id][key]
	if cols.Status && review.Status != nil {
		current.Status = review.Status
	}
	if cols.Remark && review.Remark != nil {
		current.Remark = review.Remark
	}
	m.reviews[id][key] = current
	return 1, nil
}

func (m *memApps) DocumentReviews(_ context.Context, _ sqlx.ExtContext, id int64, cols map[models.DocumentKey]models.ReviewColumns) (map[models.DocumentKey]models.DocumentReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[models.DocumentKey]models.DocumentReview{}
	for key := range cols {
		if review, ok := m.reviews[id][key]; ok {
			out[key] = review
		}
	}
	return out, nil
}

// memLedger is an in-memory verified_files table.
type memLedger struct {
	mu   sync.Mutex
	rows map[int64]map[models.DocumentKey]struct{}
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[int64]map[models.DocumentKey]struct{}{}}
}

func (l *memLedger) keys(id int64) []models.DocumentKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.DocumentKey, 0)
	for _, key := range models.DocumentKeys {
		if _, ok := l.rows[id][key]; ok {
			out = append(out, key)
		}
	}
	return out
}

func (l *memLedger) ListKeys(_ context.Context, _ sqlx.ExtContext, id int64) ([]models.DocumentKey, error) {
	return l.keys(id), nil
}

func (l *memLedger) ListKeysForApplications(_ context.Context, ids []int64) (map[int64][]models.DocumentKey, error) {
	out := make(map[int64][]models.DocumentKey, len(ids))
	for _, id := range ids {
		if keys := l.keys(id); len(keys) > 0 {
			out[id] = keys
		}
	}
	return out, nil
}

func (l *memLedger) Verify(_ context.Context, _ sqlx.ExtContext, id int64, key models.DocumentKey, _ *int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rows[id] == nil {
		l.rows[id] = map[models.DocumentKey]struct{}{}
	}
	if _, ok := l.rows[id][key]; ok {
		return false, nil
	}
	l.rows[id][key] = struct{}{}
	return true, nil
}

func (l *memLedger) VerifyMany(ctx context.Context, exec sqlx.ExtContext, id int64, keys []models.DocumentKey, by *int64) error {
	for _, key := range keys {
		if _, err := l.Verify(ctx, exec, id, key, by); err != nil {
			return err
		}
	}
	return nil
}

func (l *memLedger) Unverify(_ context.Context, _ sqlx.ExtContext, id int64, key models.DocumentKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[id][key]; !ok {
		return false, nil
	}
	delete(l.rows[id], key)
	return true, nil
}

func (l *memLedger) DeleteAll(_ context.Context, _ sqlx.ExtContext, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rows, id)
	return nil
}

// memTrash is an in-memory trash table.
type memTrash struct {
	mu     sync.Mutex
	rows   map[int64]*models.TrashedApplication
	nextID int64
	now    func() time.Time
}

func newMemTrash() *memTrash {
	return &memTrash{rows: map[int64]*models.TrashedApplication{}, now: time.Now}
}

func (t *memTrash) Create(_ context.Context, _ sqlx.ExtContext, item *models.TrashedApplication) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	item.ID = t.nextID
	item.DeletedAt = t.now().UTC()
	clone := *item
	t.rows[item.ID] = &clone
	return nil
}

func (t *memTrash) FindByID(_ context.Context, _ sqlx.ExtContext, id int64) (*models.TrashedApplication, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if item, ok := t.rows[id]; ok {
		clone := *item
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (t *memTrash) List(context.Context) ([]models.TrashedApplication, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TrashedApplication, 0, len(t.rows))
	for _, item := range t.rows {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.After(out[j].DeletedAt) })
	return out, nil
}

func (t *memTrash) Delete(_ context.Context, _ sqlx.ExtContext, id int64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return 0, nil
	}
	delete(t.rows, id)
	return 1, nil
}

func (t *memTrash) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var purged int64
	for id, item := range t.rows {
		if item.DeletedAt.Before(cutoff) {
			delete(t.rows, id)
			purged++
		}
	}
	return purged, nil
}

// memRemarks is an in-memory document_remarks table.
type memRemarks struct {
	rows   []models.DocumentRemark
	nextID int64
}

func (r *memRemarks) Create(_ context.Context, remark *models.DocumentRemark) error {
	r.nextID++
	remark.ID = r.nextID
	remark.CreatedAt = time.Now().UTC().Add(time.Duration(r.nextID) * time.Second)
	r.rows = append(r.rows, *remark)
	return nil
}

func (r *memRemarks) List(_ context.Context, id int64, key models.DocumentKey) ([]models.DocumentRemark, error) {
	out := make([]models.DocumentRemark, 0)
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].ApplicationID == id && r.rows[i].DocumentName == key {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func (r *memRemarks) Latest(ctx context.Context, id int64, key models.DocumentKey) (*models.DocumentRemark, error) {
	list, _ := r.List(ctx, id, key)
	if len(list) == 0 {
		return nil, sql.ErrNoRows
	}
	return &list[0], nil
}

var errStoreDown = errors.New("store unavailable")
