package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/authz"
	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
)

type scheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	ListByStaff(ctx context.Context, staffNUID string) ([]models.ScheduleEntry, error)
	Create(ctx context.Context, entry *models.ScheduleEntry) error
	Update(ctx context.Context, entry *models.ScheduleEntry) error
	Delete(ctx context.Context, id string) error
	ReplaceForStaff(ctx context.Context, staffNUID string, entries []models.ScheduleEntry) error
	CreateSessions(ctx context.Context, sessions []models.Session) (int, error)
}

type staffLookup interface {
	FindByNUID(ctx context.Context, nuid string) (*models.Staff, error)
}

// GeneratedSessions reports the outcome of a session generation run.
type GeneratedSessions struct {
	Requested int              `json:"requested"`
	Created   int              `json:"created"`
	Sessions  []models.Session `json:"sessions"`
}

// ScheduleService manages weekly schedule entries.
type ScheduleService struct {
	repo      scheduleRepository
	staff     staffLookup
	gate      Authorizer
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
}

// NewScheduleService constructs a ScheduleService. Sessions are dated in loc.
func NewScheduleService(repo scheduleRepository, staff staffLookup, gate Authorizer, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleService{repo: repo, staff: staff, gate: gate, cache: cache, metrics: metrics, validator: validate, logger: logger, location: loc}
}

// ListMine returns the caller's own entries.
func (s *ScheduleService) ListMine(ctx context.Context, actor *models.Principal) ([]models.ScheduleEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "staff only")
	}
	return s.list(ctx, actor.ID)
}

// ListForStaff returns another staff member's entries when the gate allows it.
func (s *ScheduleService) ListForStaff(ctx context.Context, actor *models.Principal, nuid string) ([]models.ScheduleEntry, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReadSchedule, authz.Target{OwnerNUID: nuid}); err != nil {
		return nil, err
	}
	if err := s.ensureStaff(ctx, nuid); err != nil {
		return nil, err
	}
	return s.list(ctx, nuid)
}

func (s *ScheduleService) list(ctx context.Context, nuid string) ([]models.ScheduleEntry, error) {
	entries, err := s.repo.ListByStaff(ctx, nuid)
	if err != nil {
		return nil, internal(err, "failed to list schedule")
	}
	return entries, nil
}

// Create adds an entry for the caller, or for StaffNUID when the caller may write that schedule.
func (s *ScheduleService) Create(ctx context.Context, actor *models.Principal, req models.CreateScheduleRequest) (*models.ScheduleEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	owner := strings.TrimSpace(req.StaffNUID)
	if owner == "" {
		owner = actor.ID
	}
	if err := s.gate.Authorize(ctx, actor, authz.WriteSchedule, authz.Target{OwnerNUID: owner}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	entry, err := entryFromInput(req.ScheduleEntryInput)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStaff(ctx, owner); err != nil {
		return nil, err
	}

	entry.StaffNUID = owner
	if err := s.repo.Create(ctx, &entry); err != nil {
		return nil, internal(err, "failed to create schedule entry")
	}
	s.invalidate(ctx)
	return &entry, nil
}

// Update rewrites an entry. Unknown ids are 404 and entries the caller may not write are 403.
func (s *ScheduleService) Update(ctx context.Context, actor *models.Principal, id string, input models.ScheduleEntryInput) (*models.ScheduleEntry, error) {
	current, err := s.authorizedEntry(ctx, actor, id, authz.WriteSchedule)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, validationError(err)
	}
	entry, err := entryFromInput(input)
	if err != nil {
		return nil, err
	}

	entry.ID = current.ID
	entry.StaffNUID = current.StaffNUID
	entry.CreatedAt = current.CreatedAt
	if err := s.repo.Update(ctx, &entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, internal(err, "failed to update schedule entry")
	}
	s.invalidate(ctx)
	return &entry, nil
}

// Delete removes an entry owned by the caller, or any entry for a senior lead.
func (s *ScheduleService) Delete(ctx context.Context, actor *models.Principal, id string) error {
	if _, err := s.authorizedEntry(ctx, actor, id, authz.WriteSchedule); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return internal(err, "failed to delete schedule entry")
	}
	s.invalidate(ctx)
	return nil
}

// Replace swaps a staff member's whole weekly schedule.
func (s *ScheduleService) Replace(ctx context.Context, actor *models.Principal, nuid string, req models.ReplaceScheduleRequest) ([]models.ScheduleEntry, error) {
	if err := s.gate.Authorize(ctx, actor, authz.WriteSchedule, authz.Target{OwnerNUID: nuid}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	entries := make([]models.ScheduleEntry, 0, len(req.Entries))
	for _, input := range req.Entries {
		entry, err := entryFromInput(input)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := s.ensureStaff(ctx, nuid); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceForStaff(ctx, nuid, entries); err != nil {
		return nil, internal(err, "failed to replace schedule")
	}
	s.invalidate(ctx)
	s.logger.Info("schedule replaced", zap.String("nuid", nuid), zap.Int("entries", len(entries)), zap.String("by", actor.ID))
	return entries, nil
}

// GenerateSessions expands an entry over [from, to] and stores the dated sessions.
func (s *ScheduleService) GenerateSessions(ctx context.Context, actor *models.Principal, id string, req models.GenerateSessionsRequest) (*GeneratedSessions, error) {
	entry, err := s.authorizedEntry(ctx, actor, id, authz.WriteSchedule)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	from, err := ParseDate(req.From, s.location)
	if err != nil {
		return nil, invalid("from must be a YYYY-MM-DD date")
	}
	to, err := ParseDate(req.To, s.location)
	if err != nil {
		return nil, invalid("to must be a YYYY-MM-DD date")
	}

	sessions, err := ExpandSessions(*entry, from, to, s.location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	created, err := s.repo.CreateSessions(ctx, sessions)
	if err != nil {
		return nil, internal(err, "failed to store sessions")
	}
	s.metrics.RecordSessionsGenerated(created)
	return &GeneratedSessions{Requested: len(sessions), Created: created, Sessions: sessions}, nil
}

// authorizedEntry loads an entry then applies the gate, so a missing entry is
// always 404 and an existing one the caller may not touch is always 403.
func (s *ScheduleService) authorizedEntry(ctx context.Context, actor *models.Principal, id string, action authz.Action) (*models.ScheduleEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, internal(err, "failed to load schedule entry")
	}
	if err := s.gate.Authorize(ctx, actor, action, authz.Target{OwnerNUID: entry.StaffNUID}); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ScheduleService) ensureStaff(ctx context.Context, nuid string) error {
	if _, err := s.staff.FindByNUID(ctx, nuid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return internal(err, "failed to load staff")
	}
	return nil
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	s.cache.Invalidate(ctx, cacheKeyOfficeHours)
}

// entryFromInput parses times and checks that start precedes end.
func entryFromInput(input models.ScheduleEntryInput) (models.ScheduleEntry, error) {
	start, err := models.ParseClock(input.StartTime)
	if err != nil {
		return models.ScheduleEntry{}, invalid("start_time must be HH:MM")
	}
	end, err := models.ParseClock(input.EndTime)
	if err != nil {
		return models.ScheduleEntry{}, invalid("end_time must be HH:MM")
	}
	if !start.Before(end) {
		return models.ScheduleEntry{}, invalid("start_time must be before end_time")
	}
	if input.DayOfWeek == nil {
		return models.ScheduleEntry{}, invalid("day_of_week is required")
	}

	return models.ScheduleEntry{
		Kind:       input.Kind,
		DayOfWeek:  *input.DayOfWeek,
		StartTime:  start,
		EndTime:    end,
		Location:   trimmedOrNil(input.Location),
		CourseCode: upperOrNil(input.CourseCode),
	}, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func upperOrNil(s *string) *string {
	v := trimmedOrNil(s)
	if v == nil {
		return nil
	}
	upper := strings.ToUpper(*v)
	return &upper
}
