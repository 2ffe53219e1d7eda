package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/la-portal-api/internal/models"
)

func newFeedbackFixture(t *testing.T) (*FeedbackService, *mockFeedbackRepo) {
	t.Helper()
	repo := &mockFeedbackRepo{}
	return NewFeedbackService(repo, newTestGate(t, newMockStaffRepo()), nil, nil), repo
}

func TestCreateFeedbackValidation(t *testing.T) {
	svc, repo := newFeedbackFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, models.CreateFeedbackRequest{Text: "   "})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Create(ctx, nil, models.CreateFeedbackRequest{Text: "great", Rating: intPtr(6)})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Create(ctx, nil, models.CreateFeedbackRequest{Text: "great", Rating: intPtr(0)})
	requireAppError(t, err, http.StatusBadRequest)
	assert.Empty(t, repo.items)

	saved, err := svc.Create(ctx, nil, models.CreateFeedbackRequest{Text: " helpful session ", Course: strPtr("cs101")})
	require.NoError(t, err)
	assert.Nil(t, saved.Rating)
	assert.Equal(t, models.DefaultFeedbackType, saved.Type)
	assert.Equal(t, "helpful session", saved.Text)
	assert.Equal(t, "CS101", *saved.Course)

	rated, err := svc.Create(ctx, nil, models.CreateFeedbackRequest{Text: "ok", Rating: intPtr(5), Type: "Lab"})
	require.NoError(t, err)
	assert.Equal(t, 5, *rated.Rating)
	assert.Equal(t, "lab", rated.Type)
	assert.Len(t, repo.items, 2)
}

func TestListFeedbackRequiresStaff(t *testing.T) {
	svc, repo := newFeedbackFixture(t)
	ctx := context.Background()

	_, err := svc.List(ctx, nil, models.FeedbackFilter{})
	requireAppError(t, err, http.StatusUnauthorized)

	_, err = svc.List(ctx, &models.Principal{Kind: models.KindStudent, ID: "s1", Role: models.RoleStudent}, models.FeedbackFilter{})
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.List(ctx, staffActor(nuidLA, models.RoleLearningAssistant), models.FeedbackFilter{Course: " cs101", Year: intPtr(2024)})
	require.NoError(t, err)
	assert.Equal(t, "CS101", repo.lastFilter.Course)
	assert.Equal(t, 2024, *repo.lastFilter.Year)
}

func TestExportFeedback(t *testing.T) {
	svc, repo := newFeedbackFixture(t)
	ctx := context.Background()
	actor := staffActor(nuidCL, models.RoleCourseLead)
	repo.items = []models.Feedback{
		{ID: "1", Type: "general", Rating: intPtr(4), Text: "=cmd()", Course: strPtr("CS101")},
		{ID: "2", Type: "lab", Text: "fine"},
	}

	file, err := svc.Export(ctx, actor, models.FeedbackFilter{}, "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	assert.Contains(t, file.ContentType, "text/csv")
	assert.Contains(t, string(file.Content), "'=cmd()")
	assert.Equal(t, 3, bytes.Count(file.Content, []byte("\n")))

	pdf, err := svc.Export(ctx, actor, models.FeedbackFilter{}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Content, []byte("%PDF")))

	_, err = svc.Export(ctx, actor, models.FeedbackFilter{}, "xlsx")
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Export(ctx, nil, models.FeedbackFilter{}, "csv")
	requireAppError(t, err, http.StatusUnauthorized)
}
