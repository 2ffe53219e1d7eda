package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/authz"
	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/password"
)

var nuidPattern = regexp.MustCompile(`^[0-9]{7,10}$`)

const timingPadPassword = "la-portal-timing-pad-0"

type authStaffRepository interface {
	FindByNUID(ctx context.Context, nuid string) (*models.Staff, error)
	FindByEmail(ctx context.Context, email string) (*models.Staff, error)
	FindByLogin(ctx context.Context, login string) (*models.Staff, error)
	UpdateLastLogin(ctx context.Context, nuid string, ts time.Time) error
	UpdatePassword(ctx context.Context, nuid, passwordHash string) error
}

type authStudentRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	ListByStatus(ctx context.Context, status models.StudentStatus) ([]models.Student, error)
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus, decidedBy string, decidedAt time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// Authorizer is the authorization gate consulted by every service.
type Authorizer interface {
	Authorize(ctx context.Context, principal *models.Principal, action authz.Action, target authz.Target) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	PasswordPolicy     password.Policy
	StudentEmailDomain string
}

// AuthService resolves identities and manages credentials.
type AuthService struct {
	staff     authStaffRepository
	students  authStudentRepository
	hasher    PasswordHasher
	tokens    *TokenService
	gate      Authorizer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	timingPad string
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(staff authStaffRepository, students authStudentRepository, hasher PasswordHasher, tokens *TokenService, gate Authorizer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	pad, err := hasher.Hash(timingPadPassword)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		staff:     staff,
		students:  students,
		hasher:    hasher,
		tokens:    tokens,
		gate:      gate,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		timingPad: pad,
		now:       time.Now,
	}, nil
}

// candidate is a principal found for a login string, before the password check.
type candidate struct {
	principal models.Principal
	digest    string
	enabled   bool
}

// Login authenticates a staff member or student and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	found, err := s.resolve(ctx, strings.TrimSpace(req.Login))
	if err != nil {
		s.metrics.RecordLogin(LoginErrored, "")
		s.logger.Error("login lookup failed", zap.Error(err))
		return nil, internal(err, "failed to resolve login")
	}

	digest := s.timingPad
	if found != nil && found.digest != "" {
		digest = found.digest
	}
	matched := s.hasher.Verify(req.Password, digest)

	if found == nil || found.digest == "" || !found.enabled || !matched {
		kind := ""
		if found != nil {
			kind = string(found.principal.Kind)
		}
		s.metrics.RecordLogin(LoginRejected, kind)
		return nil, appErrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(found.principal)
	if err != nil {
		s.metrics.RecordLogin(LoginErrored, string(found.principal.Kind))
		return nil, internal(err, "failed to create access token")
	}

	if found.principal.Kind == models.KindStaff {
		if err := s.staff.UpdateLastLogin(ctx, found.principal.ID, s.now().UTC()); err != nil {
			s.logger.Warn("failed to update last login", zap.String("nuid", found.principal.ID), zap.Error(err))
		}
	}

	s.metrics.RecordLogin(LoginSucceeded, string(found.principal.Kind))
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: found.principal}, nil
}

// resolve classifies the login string and returns the first matching principal.
// Staff take precedence over students. A nil candidate means no account matched.
func (s *AuthService) resolve(ctx context.Context, login string) (*candidate, error) {
	switch {
	case nuidPattern.MatchString(login):
		return s.staffCandidate(s.staff.FindByNUID(ctx, login))
	case strings.Contains(login, "@"):
		email := strings.ToLower(login)
		found, err := s.staffCandidate(s.staff.FindByEmail(ctx, email))
		if err != nil || found != nil {
			return found, err
		}
		return s.studentCandidate(s.students.FindByEmail(ctx, email))
	default:
		found, err := s.staffCandidate(s.staff.FindByLogin(ctx, login))
		if err != nil || found != nil {
			return found, err
		}
		return s.studentCandidate(s.students.FindByEmail(ctx, strings.ToLower(login)))
	}
}

func (s *AuthService) staffCandidate(staff *models.Staff, err error) (*candidate, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &candidate{principal: staffPrincipal(staff), digest: deref(staff.PasswordHash), enabled: staff.IsActive && staff.Role.IsStaff()}, nil
}

func (s *AuthService) studentCandidate(student *models.Student, err error) (*candidate, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &candidate{principal: studentPrincipal(student), digest: deref(student.PasswordHash), enabled: student.Status == models.StudentApproved}, nil
}

// Signup registers a pending student.
func (s *AuthService) Signup(ctx context.Context, req models.StudentSignupRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if domain := s.config.StudentEmailDomain; domain != "" && !strings.HasSuffix(email, "@"+domain) {
		return nil, invalid("email must be a @" + domain + " address")
	}
	if err := s.config.PasswordPolicy.Validate(req.Password); err != nil {
		return nil, invalid(err.Error())
	}

	if _, err := s.students.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internal(err, "failed to check student email")
	}
	if _, err := s.staff.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internal(err, "failed to check staff email")
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internal(err, "failed to hash password")
	}

	student := &models.Student{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		NUID:         req.NUID,
		ClassYear:    req.ClassYear,
		Status:       models.StudentPending,
		PasswordHash: &digest,
		Courses:      normaliseCourses(req.Courses),
	}
	if err := s.students.Create(ctx, student); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, internal(err, "failed to create student")
	}

	s.logger.Info("student registered", zap.String("student_id", student.ID))
	return student, nil
}

// ListPending returns students awaiting review.
func (s *AuthService) ListPending(ctx context.Context, actor *models.Principal) ([]models.Student, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReviewStudents, authz.Target{}); err != nil {
		return nil, err
	}
	students, err := s.students.ListByStatus(ctx, models.StudentPending)
	if err != nil {
		return nil, internal(err, "failed to list pending students")
	}
	return students, nil
}

// Approve lets a pending or rejected student log in.
func (s *AuthService) Approve(ctx context.Context, actor *models.Principal, studentID string) error {
	return s.decide(ctx, actor, studentID, models.StudentApproved)
}

// Reject blocks a student registration.
func (s *AuthService) Reject(ctx context.Context, actor *models.Principal, studentID string) error {
	return s.decide(ctx, actor, studentID, models.StudentRejected)
}

func (s *AuthService) decide(ctx context.Context, actor *models.Principal, studentID string, status models.StudentStatus) error {
	if err := s.gate.Authorize(ctx, actor, authz.ReviewStudents, authz.Target{}); err != nil {
		return err
	}
	if err := s.students.UpdateStatus(ctx, studentID, status, actor.ID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return internal(err, "failed to update student status")
	}
	s.logger.Info("student reviewed", zap.String("student_id", studentID), zap.String("status", string(status)), zap.String("by", actor.ID))
	return nil
}

// ChangePassword replaces the caller's own password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, actor *models.Principal, req models.ChangePasswordRequest) error {
	if err := s.gate.Authorize(ctx, actor, authz.ChangeOwnPassword, authz.Target{}); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}
	if err := s.config.PasswordPolicy.Validate(req.NewPassword); err != nil {
		return invalid(err.Error())
	}

	digest, err := s.currentDigest(ctx, actor)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(req.CurrentPassword, digest) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}

	newDigest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return internal(err, "failed to hash password")
	}
	if err := s.updateDigest(ctx, actor.Kind, actor.ID, newDigest); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("kind", string(actor.Kind)), zap.String("id", actor.ID))
	return nil
}

// currentDigest loads the caller's stored digest. A vanished account reads as an empty digest.
func (s *AuthService) currentDigest(ctx context.Context, actor *models.Principal) (string, error) {
	switch actor.Kind {
	case models.KindStaff:
		staff, err := s.staff.FindByNUID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return s.timingPad, nil
			}
			return "", internal(err, "failed to load account")
		}
		return deref(staff.PasswordHash), nil
	case models.KindStudent:
		student, err := s.students.FindByID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return s.timingPad, nil
			}
			return "", internal(err, "failed to load account")
		}
		return deref(student.PasswordHash), nil
	}
	return "", appErrors.ErrUnauthorized
}

func (s *AuthService) updateDigest(ctx context.Context, kind models.PrincipalKind, id, digest string) error {
	var err error
	if kind == models.KindStaff {
		err = s.staff.UpdatePassword(ctx, id, digest)
	} else {
		err = s.students.UpdatePassword(ctx, id, digest)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return internal(err, "failed to update password")
	}
	return nil
}

// AdminResetPassword sets any principal's password. Staff are addressed by NUID, students by email.
func (s *AuthService) AdminResetPassword(ctx context.Context, actor *models.Principal, req models.AdminResetPasswordRequest) error {
	if err := s.gate.Authorize(ctx, actor, authz.ResetPassword, authz.Target{}); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}
	if err := s.config.PasswordPolicy.Validate(req.NewPassword); err != nil {
		return invalid(err.Error())
	}

	targetID := req.NUID
	if req.Target == models.KindStudent {
		student, err := s.students.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "account not found")
			}
			return internal(err, "failed to load student")
		}
		targetID = student.ID
	}

	digest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return internal(err, "failed to hash password")
	}
	if err := s.updateDigest(ctx, req.Target, targetID, digest); err != nil {
		return err
	}
	s.logger.Info("password reset by senior lead", zap.String("target", string(req.Target)), zap.String("id", targetID), zap.String("by", actor.ID))
	return nil
}

// Me reloads the caller so deactivated or unapproved accounts lose access.
func (s *AuthService) Me(ctx context.Context, actor *models.Principal) (*models.Principal, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Kind {
	case models.KindStaff:
		staff, err := s.staff.FindByNUID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrUnauthorized
			}
			return nil, internal(err, "failed to load account")
		}
		if !staff.IsActive {
			return nil, appErrors.ErrUnauthorized
		}
		p := staffPrincipal(staff)
		return &p, nil
	case models.KindStudent:
		student, err := s.students.FindByID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrUnauthorized
			}
			return nil, internal(err, "failed to load account")
		}
		if student.Status != models.StudentApproved {
			return nil, appErrors.ErrUnauthorized
		}
		p := studentPrincipal(student)
		return &p, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func staffPrincipal(staff *models.Staff) models.Principal {
	return models.Principal{Kind: models.KindStaff, ID: staff.NUID, Role: staff.Role, Name: staff.Name, Email: deref(staff.Email)}
}

func studentPrincipal(student *models.Student) models.Principal {
	return models.Principal{Kind: models.KindStudent, ID: student.ID, Role: models.RoleStudent, Name: student.Name, Email: student.Email}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func normaliseCourses(courses []string) []string {
	seen := make(map[string]struct{}, len(courses))
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
