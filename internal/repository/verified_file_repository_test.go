package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-api/internal/models"
)

func TestVerifiedFileVerifyReportsInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVerifiedFileRepository(db)

	admin := int64(1)
	mock.ExpectExec("INSERT INTO verified_files").
		WithArgs(int64(5), "resume", admin).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO verified_files").
		WithArgs(int64(5), "resume", admin).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Verify(context.Background(), nil, 5, models.DocResume, &admin)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Verify(context.Background(), nil, 5, models.DocResume, &admin)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifiedFileListKeysForApplications(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVerifiedFileRepository(db)

	mock.ExpectQuery("FROM verified_files WHERE application_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"application_id", "file_key"}).
			AddRow(1, "picture").
			AddRow(1, "resume").
			AddRow(2, "transcript"))

	grouped, err := repo.ListKeysForApplications(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []models.DocumentKey{models.DocPicture, models.DocResume}, grouped[1])
	assert.Equal(t, []models.DocumentKey{models.DocTranscript}, grouped[2])
	assert.Empty(t, grouped[3])

	empty, err := repo.ListKeysForApplications(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifiedFileVerifyManyAndDeleteAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVerifiedFileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("FROM unnest($2::text[])")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM verified_files WHERE application_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.VerifyMany(context.Background(), nil, 5, []models.DocumentKey{models.DocResume, models.DocPicture}, nil))
	require.NoError(t, repo.VerifyMany(context.Background(), nil, 5, nil, nil))
	require.NoError(t, repo.DeleteAll(context.Background(), nil, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifiedFileListKeys(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVerifiedFileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_key FROM verified_files WHERE application_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"file_key"}).AddRow("nbi_clearance"))

	keys, err := repo.ListKeys(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []models.DocumentKey{models.DocNBIClearance}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}
