package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/la-portal-api/internal/authz"
	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
)

// UpcomingGrace keeps sessions listed for a while after they end.
const UpcomingGrace = 3 * time.Hour

type officeHoursRepository interface {
	ListOfficeHours(ctx context.Context, course string) ([]models.OfficeHour, error)
	ListUpcomingSessions(ctx context.Context, since time.Time, course string) ([]models.UpcomingSession, error)
	JoinQueue(ctx context.Context, entry *models.QueueEntry) error
}

// OfficeHoursService serves the public office-hours listings and session queues.
type OfficeHoursService struct {
	repo  officeHoursRepository
	gate  Authorizer
	cache *CacheService
	now   func() time.Time
}

// NewOfficeHoursService constructs an OfficeHoursService.
func NewOfficeHoursService(repo officeHoursRepository, gate Authorizer, cache *CacheService) *OfficeHoursService {
	return &OfficeHoursService{repo: repo, gate: gate, cache: cache, now: time.Now}
}

// List returns weekly office-hour entries, optionally for one course.
func (s *OfficeHoursService) List(ctx context.Context, actor *models.Principal, course string) ([]models.OfficeHour, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReadOfficeHours, authz.Target{}); err != nil {
		return nil, err
	}
	course = strings.ToUpper(strings.TrimSpace(course))
	hours, err := cached(ctx, s.cache, cacheKeyOfficeHours+"list:"+course, func(ctx context.Context) ([]models.OfficeHour, error) {
		return s.repo.ListOfficeHours(ctx, course)
	})
	if err != nil {
		return nil, internal(err, "failed to list office hours")
	}
	return hours, nil
}

// Upcoming returns generated sessions that ended less than UpcomingGrace ago or later.
func (s *OfficeHoursService) Upcoming(ctx context.Context, actor *models.Principal, course string) ([]models.UpcomingSession, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReadOfficeHours, authz.Target{}); err != nil {
		return nil, err
	}
	since := s.now().UTC().Add(-UpcomingGrace)
	sessions, err := s.repo.ListUpcomingSessions(ctx, since, strings.ToUpper(strings.TrimSpace(course)))
	if err != nil {
		return nil, internal(err, "failed to list sessions")
	}
	return sessions, nil
}

// JoinQueue places the caller in the queue of one generated session.
func (s *OfficeHoursService) JoinQueue(ctx context.Context, actor *models.Principal, sessionID string) (*models.QueueEntry, error) {
	if err := s.gate.Authorize(ctx, actor, authz.JoinQueue, authz.Target{}); err != nil {
		return nil, err
	}
	entry := &models.QueueEntry{
		SessionID:  strings.TrimSpace(sessionID),
		MemberKind: actor.Kind,
		MemberID:   actor.ID,
		JoinedAt:   s.now().UTC(),
	}
	if err := s.repo.JoinQueue(ctx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already in queue")
		}
		return nil, internal(err, "failed to join queue")
	}
	return entry, nil
}
