package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/la-portal-api/internal/models"
)

func TestFeedbackCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectExec("INSERT INTO feedback").WillReturnResult(sqlmock.NewResult(1, 1))

	fb := &models.Feedback{Type: models.DefaultFeedbackType, Text: "helpful"}
	require.NoError(t, repo.Create(context.Background(), fb))
	assert.NotEmpty(t, fb.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	year := 2024
	rows := sqlmock.NewRows([]string{"id", "course", "type", "rating", "text", "submitter", "year", "created_at"}).
		AddRow("f1", "CS2500", "general", nil, "ok", nil, 2024, time.Now())
	mock.ExpectQuery("FROM feedback WHERE 1=1 AND course = \\$1 AND year = \\$2 ORDER BY created_at DESC LIMIT 500").
		WithArgs("CS2500", 2024).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), models.FeedbackFilter{Course: "CS2500", Year: &year})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackListClampsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	columns := []string{"id", "course", "type", "rating", "text", "submitter", "year", "created_at"}
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT 5000$").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT 5000$").WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.List(context.Background(), models.FeedbackFilter{Limit: 6000})
	require.NoError(t, err)
	_, err = repo.List(context.Background(), models.FeedbackFilter{Limit: 5000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
