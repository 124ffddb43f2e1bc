package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

// memUserRepo is an in-memory users table.
type memUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	nextID int64
	err    error
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	repo := &memUserRepo{users: map[int64]*models.User{}}
	for _, u := range users {
		clone := *u
		if clone.ID > repo.nextID {
			repo.nextID = clone.ID
		}
		repo.users[clone.ID] = &clone
	}
	return repo
}

func (m *memUserRepo) get(id int64) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memUserRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUserRepo) FindByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUserRepo) RoleByID(ctx context.Context, id int64) (models.UserRole, error) {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (m *memUserRepo) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	m.nextID++
	user.ID = m.nextID
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUserRepo) Update(_ context.Context, id int64, patch repository.UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Email != nil {
		for otherID, other := range m.users {
			if otherID != id && strings.EqualFold(other.Email, *patch.Email) {
				return repository.ErrDuplicate
			}
		}
		u.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		hash := *patch.PasswordHash
		u.PasswordHash = &hash
	}
	if patch.ProfilePicture != nil {
		pic := *patch.ProfilePicture
		u.ProfilePicture = &pic
	}
	return nil
}

func (m *memUserRepo) UpdatePasswordByEmail(_ context.Context, email, hash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			h := hash
			u.PasswordHash = &h
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memUserRepo) LinkGoogle(_ context.Context, id int64, googleID string, picture *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		g := googleID
		u.GoogleID = &g
		if picture != nil {
			u.ProfilePicture = picture
		}
	}
	return nil
}

func (m *memUserRepo) SetRole(_ context.Context, id int64, role models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Role = role
	}
	return nil
}

// stubCacheRepo is an in-memory cacheStore.
type stubCacheRepo struct {
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

// recordingCache captures invalidated patterns.
type recordingCache struct {
	patterns []string
}

func (c *recordingCache) Invalidate(_ context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

// recordingActivity captures admin activity entries.
type recordingActivity struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingActivity) Log(_ context.Context, _ int64, action, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

type txProviderMock struct {
	db *sqlx.DB
}

// newTxProviderMock returns a provider whose transactions are scripted on mock.
func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func strPtr(s string) *string { return &s }

// memStorage keeps uploaded files in memory under "uploads/<name>".
type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	err     error
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (m *memStorage) SaveStream(name string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	public := "uploads/" + name
	m.files[public] = body
	return public, nil
}

func (m *memStorage) Delete(publicPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, publicPath)
	m.deleted = append(m.deleted, publicPath)
	return nil
}

func upload(key models.DocumentKey, filename, body string) DocumentUpload {
	return DocumentUpload{
		Key:      key,
		Filename: filename,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}
