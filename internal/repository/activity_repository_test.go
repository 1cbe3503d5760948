package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qaloader-api/internal/models"
)

func TestActivityRepositoryInsert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepository(sqlx.NewDb(db, "sqlmock"))

	details := "questions.md: 5 uploaded"
	mock.ExpectExec("INSERT INTO activity_log").
		WithArgs(sqlmock.AnyArg(), models.ActivityBatchUpload, &details, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.ActivityLog{Action: models.ActivityBatchUpload, Details: &details}
	require.NoError(t, repo.Insert(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
