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
	"github.com/noah-isme/la-portal-api/pkg/password"
)

type staffRepository interface {
	FindByNUID(ctx context.Context, nuid string) (*models.Staff, error)
	ListDirectory(ctx context.Context, filter models.StaffFilter) ([]models.StaffSummary, error)
	ListCourses(ctx context.Context) ([]string, error)
	ListCoursesForStaff(ctx context.Context, nuid string) ([]string, error)
	Create(ctx context.Context, staff *models.Staff, courses []string) error
	Update(ctx context.Context, staff *models.Staff, courses *[]string) error
	Delete(ctx context.Context, nuid string) error
	ListSupervised(ctx context.Context, clNUID string) ([]string, error)
	ReplaceSupervision(ctx context.Context, clNUID string, laNUIDs []string) error
}

// StaffService manages the staff directory and supervision relations.
type StaffService struct {
	repo      staffRepository
	hasher    PasswordHasher
	policy    password.Policy
	gate      Authorizer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService.
func NewStaffService(repo staffRepository, hasher PasswordHasher, policy password.Policy, gate Authorizer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &StaffService{repo: repo, hasher: hasher, policy: policy, gate: gate, cache: cache, validator: validate, logger: logger}
}

// Directory lists active staff with their course assignments.
func (s *StaffService) Directory(ctx context.Context, actor *models.Principal, filter models.StaffFilter) ([]models.StaffSummary, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReadDirectory, authz.Target{}); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.IsStaff() {
		return nil, invalid("role must be one of: SL CL LA")
	}

	role := ""
	if filter.Role != nil {
		role = string(*filter.Role)
	}
	key := cacheKeyDirectory + role + ":" + filter.Course
	staff, err := cached(ctx, s.cache, key, func(ctx context.Context) ([]models.StaffSummary, error) {
		return s.repo.ListDirectory(ctx, filter)
	})
	if err != nil {
		return nil, internal(err, "failed to list staff")
	}
	return staff, nil
}

// Courses lists every course code with assigned staff.
func (s *StaffService) Courses(ctx context.Context, actor *models.Principal) ([]string, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReadCourses, authz.Target{}); err != nil {
		return nil, err
	}
	courses, err := cached(ctx, s.cache, cacheKeyCourses+"all", s.repo.ListCourses)
	if err != nil {
		return nil, internal(err, "failed to list courses")
	}
	return courses, nil
}

// Create adds a staff member. Without a password the account cannot log in until reset.
func (s *StaffService) Create(ctx context.Context, actor *models.Principal, req models.CreateStaffRequest) (*models.StaffSummary, error) {
	if err := s.gate.Authorize(ctx, actor, authz.WriteStaff, authz.Target{}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	staff := &models.Staff{
		NUID:     req.NUID,
		Name:     strings.TrimSpace(req.Name),
		Email:    normaliseEmail(req.Email),
		Role:     req.Role,
		IsActive: true,
	}
	if req.Password != "" {
		if err := s.policy.Validate(req.Password); err != nil {
			return nil, invalid(err.Error())
		}
		digest, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, internal(err, "failed to hash password")
		}
		staff.PasswordHash = &digest
	}

	if _, err := s.repo.FindByNUID(ctx, req.NUID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "staff member already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internal(err, "failed to check staff")
	}

	courses := normaliseCourses(req.Courses)
	if err := s.repo.Create(ctx, staff, courses); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "staff nuid or email already in use")
		}
		return nil, internal(err, "failed to create staff")
	}

	s.invalidate(ctx)
	s.logger.Info("staff created", zap.String("nuid", staff.NUID), zap.String("role", string(staff.Role)), zap.String("by", actor.ID))
	return summary(staff, courses), nil
}

// Update changes a staff member's mutable fields.
func (s *StaffService) Update(ctx context.Context, actor *models.Principal, nuid string, req models.UpdateStaffRequest) (*models.StaffSummary, error) {
	if err := s.gate.Authorize(ctx, actor, authz.WriteStaff, authz.Target{}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	staff, err := s.find(ctx, nuid)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		staff.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		staff.Email = normaliseEmail(req.Email)
	}
	if req.Role != nil {
		staff.Role = *req.Role
	}
	if req.IsActive != nil {
		staff.IsActive = *req.IsActive
	}
	var courses *[]string
	if req.Courses != nil {
		normalised := normaliseCourses(*req.Courses)
		courses = &normalised
	}

	if err := s.repo.Update(ctx, staff, courses); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
		return nil, internal(err, "failed to update staff")
	}
	s.invalidate(ctx)

	if courses == nil {
		current, err := s.repo.ListCoursesForStaff(ctx, nuid)
		if err != nil {
			return nil, internal(err, "failed to load staff courses")
		}
		courses = &current
	}
	return summary(staff, *courses), nil
}

// Delete removes a staff member. Senior leads cannot delete themselves.
func (s *StaffService) Delete(ctx context.Context, actor *models.Principal, nuid string) error {
	if err := s.gate.Authorize(ctx, actor, authz.WriteStaff, authz.Target{}); err != nil {
		return err
	}
	if actor.ID == nuid {
		return invalid("cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, nuid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return internal(err, "failed to delete staff")
	}
	s.invalidate(ctx)
	s.logger.Info("staff deleted", zap.String("nuid", nuid), zap.String("by", actor.ID))
	return nil
}

// Supervision returns the learning assistants assigned to a course lead.
func (s *StaffService) Supervision(ctx context.Context, actor *models.Principal, clNUID string) (*models.Supervision, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReadSupervision, authz.Target{}); err != nil {
		return nil, err
	}
	if _, err := s.courseLead(ctx, clNUID); err != nil {
		return nil, err
	}
	las, err := s.repo.ListSupervised(ctx, clNUID)
	if err != nil {
		return nil, internal(err, "failed to list supervision")
	}
	return &models.Supervision{CLNUID: clNUID, LANUIDs: las}, nil
}

// ReplaceSupervision sets the learning assistants a course lead supervises.
// Only learning assistants can be assigned.
func (s *StaffService) ReplaceSupervision(ctx context.Context, actor *models.Principal, clNUID string, req models.SupervisionRequest) (*models.Supervision, error) {
	if err := s.gate.Authorize(ctx, actor, authz.WriteSupervision, authz.Target{}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.courseLead(ctx, clNUID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(req.LANUIDs))
	las := make([]string, 0, len(req.LANUIDs))
	for _, nuid := range req.LANUIDs {
		if _, dup := seen[nuid]; dup {
			continue
		}
		seen[nuid] = struct{}{}

		la, err := s.repo.FindByNUID(ctx, nuid)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, invalid("unknown staff member " + nuid)
			}
			return nil, internal(err, "failed to load staff")
		}
		if la.Role != models.RoleLearningAssistant {
			return nil, invalid(nuid + " is not a learning assistant")
		}
		las = append(las, nuid)
	}

	if err := s.repo.ReplaceSupervision(ctx, clNUID, las); err != nil {
		return nil, internal(err, "failed to update supervision")
	}
	s.logger.Info("supervision updated", zap.String("cl_nuid", clNUID), zap.Int("la_count", len(las)), zap.String("by", actor.ID))
	return &models.Supervision{CLNUID: clNUID, LANUIDs: las}, nil
}

func (s *StaffService) courseLead(ctx context.Context, nuid string) (*models.Staff, error) {
	staff, err := s.find(ctx, nuid)
	if err != nil {
		return nil, err
	}
	if staff.Role != models.RoleCourseLead {
		return nil, invalid("staff member is not a course lead")
	}
	return staff, nil
}

func (s *StaffService) find(ctx context.Context, nuid string) (*models.Staff, error) {
	staff, err := s.repo.FindByNUID(ctx, nuid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, internal(err, "failed to load staff")
	}
	return staff, nil
}

func (s *StaffService) invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	s.cache.Invalidate(ctx, cacheKeyDirectory, cacheKeyCourses, cacheKeyOfficeHours)
}

func summary(staff *models.Staff, courses []string) *models.StaffSummary {
	if courses == nil {
		courses = []string{}
	}
	return &models.StaffSummary{NUID: staff.NUID, Name: staff.Name, Email: staff.Email, Role: staff.Role, Courses: courses}
}

func normaliseEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
