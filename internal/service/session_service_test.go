package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type memSessionStore struct {
	data    map[string]models.SessionData
	touched []string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{data: map[string]models.SessionData{}}
}

func (m *memSessionStore) Save(_ context.Context, id string, data models.SessionData, _ time.Duration) error {
	m.data[id] = data
	return nil
}

func (m *memSessionStore) Get(_ context.Context, id string) (*models.SessionData, error) {
	data, ok := m.data[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &data, nil
}

func (m *memSessionStore) Touch(_ context.Context, id string, _ time.Duration) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *memSessionStore) Destroy(_ context.Context, id string) error {
	delete(m.data, id)
	return nil
}

type memSessionRegistry struct {
	rows map[int64]string
	err  error
}

func (m *memSessionRegistry) Get(_ context.Context, userID int64) (*models.UserSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	id, ok := m.rows[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.UserSession{UserID: userID, SessionID: id}, nil
}

func (m *memSessionRegistry) Upsert(_ context.Context, userID int64, sessionID string) error {
	m.rows[userID] = sessionID
	return nil
}

func (m *memSessionRegistry) Delete(_ context.Context, userID int64, sessionID string) error {
	if m.rows[userID] == sessionID {
		delete(m.rows, userID)
	}
	return nil
}

func newSessionFixture() (*SessionService, *memSessionStore, *memSessionRegistry) {
	store := newMemSessionStore()
	registry := &memSessionRegistry{rows: map[int64]string{}}
	return NewSessionService(store, registry, time.Hour, zap.NewNop()), store, registry
}

func TestSessionServiceNewLoginRevokesPrevious(t *testing.T) {
	svc, store, registry := newSessionFixture()
	ctx := context.Background()
	user := &models.User{ID: 1, Role: models.RoleAdmin}

	first, err := svc.Start(ctx, user)
	require.NoError(t, err)
	second, err := svc.Start(ctx, user)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, second.ID, registry.rows[1])
	_, stillThere := store.data[first.ID]
	assert.False(t, stillThere)

	loaded, err := svc.Resolve(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Data.UserID)
	assert.Equal(t, models.RoleAdmin, loaded.Data.Role)
	assert.Contains(t, store.touched, second.ID)
}

func TestSessionServiceResolveMismatchRevokes(t *testing.T) {
	svc, store, registry := newSessionFixture()
	ctx := context.Background()

	store.data["stale"] = models.SessionData{UserID: 2}
	registry.rows[2] = "fresh"

	session, err := svc.Resolve(ctx, "stale")
	assert.Nil(t, session)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionRevoked))
	_, stillThere := store.data["stale"]
	assert.False(t, stillThere)
}

func TestSessionServiceResolveUnknown(t *testing.T) {
	svc, _, _ := newSessionFixture()

	session, err := svc.Resolve(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, session)

	session, err = svc.Resolve(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionServiceResolveFailsOpenOnRegistryError(t *testing.T) {
	svc, store, registry := newSessionFixture()
	store.data["s1"] = models.SessionData{UserID: 3}
	registry.err = errors.New("db down")

	session, err := svc.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), session.Data.UserID)
}

func TestSessionServiceEnd(t *testing.T) {
	svc, store, registry := newSessionFixture()
	ctx := context.Background()

	session, err := svc.Start(ctx, &models.User{ID: 4, Role: models.RoleUser})
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, session))

	assert.Empty(t, store.data)
	assert.Empty(t, registry.rows)
	assert.NoError(t, svc.End(ctx, nil))
}
