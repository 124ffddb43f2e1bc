package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-api/internal/models"
)

func trashRow(id, originalID int64, deleted time.Time) []driver.Value {
	values := []driver.Value{id, originalID, int64(3), "BSIT", "Jane", "jane@example.com", "0917", "Married", true, "Jane's Bakery"}
	for range models.DocumentKeys {
		values = append(values, nil)
	}
	return append(values, "Pending", deleted.Add(-time.Hour), []byte(`{"verified_files":["resume"]}`), deleted)
}

func TestTrashCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrashRepository(db)

	deleted := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO applications_trash (original_id, user_id, program_name")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "deleted_at"}).AddRow(11, deleted))

	item := &models.TrashedApplication{OriginalID: 7, Status: models.StatusPending, CreatedAt: deleted}
	require.NoError(t, repo.Create(context.Background(), nil, item))
	assert.Equal(t, int64(11), item.ID)
	assert.Equal(t, deleted, item.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrashFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrashRepository(db)

	deleted := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + trashColumns + " FROM applications_trash WHERE id = $1")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(strings.Split(trashColumns, ", ")).AddRow(trashRow(11, 7, deleted)...))

	item, err := repo.FindByID(context.Background(), nil, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(7), item.OriginalID)
	assert.Equal(t, deleted.Add(30*24*time.Hour), item.ExpiresAt(30*24*time.Hour))

	restored := item.Restore()
	assert.Zero(t, restored.ID)
	assert.Equal(t, models.StatusPending, restored.Status)
	assert.True(t, *restored.IsBusinessOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrashPurgeOlderThan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrashRepository(db)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications_trash WHERE deleted_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	purged, err := repo.PurgeOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
