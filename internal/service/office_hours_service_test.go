package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
)

func TestOfficeHoursListIsCachedPerCourse(t *testing.T) {
	repo := newMockScheduleRepo()
	repo.hours = []models.OfficeHour{
		{ID: "a", StaffName: "Lee", CourseCode: strPtr("CS101")},
		{ID: "b", StaffName: "Oli", CourseCode: strPtr("CS200")},
	}
	cache := NewCacheService(newMockCacheRepo(), nil, time.Minute, nil, true)
	svc := NewOfficeHoursService(repo, newTestGate(t, newMockStaffRepo()), cache)
	ctx := context.Background()

	all, err := svc.List(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.List(ctx, nil, " cs101 ")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].ID)

	_, err = svc.List(ctx, nil, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestUpcomingKeepsRecentlyEndedSessions(t *testing.T) {
	now := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)
	repo := newMockScheduleRepo()
	repo.upcoming = []models.UpcomingSession{
		{Session: models.Session{ScheduleID: "old", SessionEnd: now.Add(-4 * time.Hour)}},
		{Session: models.Session{ScheduleID: "recent", SessionEnd: now.Add(-2 * time.Hour)}},
		{Session: models.Session{ScheduleID: "next", SessionEnd: now.Add(24 * time.Hour)}},
	}
	svc := NewOfficeHoursService(repo, newTestGate(t, newMockStaffRepo()), nil)
	svc.now = func() time.Time { return now }

	sessions, err := svc.Upcoming(context.Background(), nil, "")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "recent", sessions[0].ScheduleID)
	assert.Equal(t, now.Add(-UpcomingGrace), repo.since)
}

func TestJoinQueue(t *testing.T) {
	now := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)
	repo := newMockScheduleRepo()
	repo.upcoming = []models.UpcomingSession{{Session: models.Session{ID: "sess-1", ScheduleID: "e1"}}}
	svc := NewOfficeHoursService(repo, newTestGate(t, newMockStaffRepo()), nil)
	svc.now = func() time.Time { return now }
	ctx := context.Background()
	caller := &models.Principal{Kind: models.KindStudent, ID: "s-1", Role: models.RoleStudent}

	entry, err := svc.JoinQueue(ctx, caller, " sess-1 ")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", entry.SessionID)
	assert.Equal(t, models.KindStudent, entry.MemberKind)
	assert.Equal(t, "s-1", entry.MemberID)
	assert.Equal(t, now, entry.JoinedAt)
	assert.NotEmpty(t, entry.ID)

	_, err = svc.JoinQueue(ctx, caller, "sess-1")
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)

	_, err = svc.JoinQueue(ctx, caller, "missing")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.JoinQueue(ctx, nil, "sess-1")
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
	assert.Len(t, repo.queue, 1)
}

func TestJoinQueueSeparatesStaffAndStudents(t *testing.T) {
	repo := newMockScheduleRepo()
	repo.upcoming = []models.UpcomingSession{{Session: models.Session{ID: "sess-1"}}}
	svc := NewOfficeHoursService(repo, newTestGate(t, newMockStaffRepo()), nil)
	ctx := context.Background()

	_, err := svc.JoinQueue(ctx, &models.Principal{Kind: models.KindStudent, ID: "001", Role: models.RoleStudent}, "sess-1")
	require.NoError(t, err)
	_, err = svc.JoinQueue(ctx, &models.Principal{Kind: models.KindStaff, ID: "001", Role: models.RoleLearningAssistant}, "sess-1")
	require.NoError(t, err)
	assert.Len(t, repo.queue, 2)
}
