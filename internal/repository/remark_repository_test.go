package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-api/internal/models"
)

func TestRemarkCreateAndLatest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRemarkRepository(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO document_remarks").
		WithArgs(int64(4), "resume", "blurry scan", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	mock.ExpectQuery("FROM document_remarks WHERE application_id = \\$1 AND document_name = \\$2 ORDER BY created_at DESC, id DESC LIMIT 1").
		WithArgs(int64(4), "resume").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "document_name", "remark", "created_by", "created_at"}).
			AddRow(1, 4, "resume", "blurry scan", nil, now))

	remark := &models.DocumentRemark{ApplicationID: 4, DocumentName: models.DocResume, Remark: "blurry scan"}
	require.NoError(t, repo.Create(context.Background(), remark))
	assert.Equal(t, int64(1), remark.ID)

	latest, err := repo.Latest(context.Background(), 4, models.DocResume)
	require.NoError(t, err)
	assert.Equal(t, "blurry scan", latest.Remark)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemarkLatestMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRemarkRepository(db)

	mock.ExpectQuery("FROM document_remarks").WillReturnError(sql.ErrNoRows)
	_, err := repo.Latest(context.Background(), 4, models.DocPicture)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
