// Package authz decides whether a principal may perform an action on a resource.
//
// Rules are evaluated in a fixed order: self-access, the role policy held in
// casbin, course-lead supervision read, then deny. Anonymous callers are
// denied with 401 and authenticated ones with 403.
package authz

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Resource names an object family in the policy.
type Resource string

const (
	ResourceDirectory   Resource = "directory"
	ResourceCourses     Resource = "courses"
	ResourceOfficeHours Resource = "office_hours"
	ResourceFeedback    Resource = "feedback"
	ResourceSchedule    Resource = "schedule"
	ResourceStaff       Resource = "staff"
	ResourceSupervision Resource = "supervision"
	ResourceStudents    Resource = "students"
	ResourcePassword    Resource = "password"
	ResourceQueue       Resource = "queue"
)

// Verb names an operation in the policy.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbWrite  Verb = "write"
	VerbCreate Verb = "create"
	VerbReview Verb = "review"
	VerbReset  Verb = "reset"
	VerbChange Verb = "change"
	VerbJoin   Verb = "join"
)

// Action pairs a resource with a verb.
type Action struct {
	Resource Resource
	Verb     Verb
}

// Common actions.
var (
	ReadDirectory     = Action{ResourceDirectory, VerbRead}
	ReadCourses       = Action{ResourceCourses, VerbRead}
	ReadOfficeHours   = Action{ResourceOfficeHours, VerbRead}
	CreateFeedback    = Action{ResourceFeedback, VerbCreate}
	ReadFeedback      = Action{ResourceFeedback, VerbRead}
	ReadSchedule      = Action{ResourceSchedule, VerbRead}
	WriteSchedule     = Action{ResourceSchedule, VerbWrite}
	WriteStaff        = Action{ResourceStaff, VerbWrite}
	ReadSupervision   = Action{ResourceSupervision, VerbRead}
	WriteSupervision  = Action{ResourceSupervision, VerbWrite}
	ReviewStudents    = Action{ResourceStudents, VerbReview}
	ResetPassword     = Action{ResourcePassword, VerbReset}
	ChangeOwnPassword = Action{ResourcePassword, VerbChange}
	JoinQueue         = Action{ResourceQueue, VerbJoin}
)

func (a Action) String() string {
	return string(a.Resource) + ":" + string(a.Verb)
}

// Target describes the object of an action. OwnerNUID is the staff member
// owning the schedule being accessed, when there is one.
type Target struct {
	OwnerNUID string
}

const subjectAnonymous = "anonymous"

// SupervisionChecker reports whether a course lead supervises a learning assistant.
type SupervisionChecker interface {
	IsSupervisor(ctx context.Context, clNUID, laNUID string) (bool, error)
}

// Gate centralises every authorization decision.
type Gate struct {
	enforcer    *casbin.SyncedEnforcer
	supervision SupervisionChecker
	logger      *zap.Logger
}

// NewGate loads the embedded model and policy.
func NewGate(supervision SupervisionChecker, logger *zap.Logger) (*Gate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Gate{enforcer: enforcer, supervision: supervision, logger: logger}, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Authorize returns nil when principal may perform action on target. A nil
// principal is an anonymous caller.
func (g *Gate) Authorize(ctx context.Context, principal *models.Principal, action Action, target Target) error {
	if g.isSelf(principal, action, target) {
		return nil
	}

	allowed, err := g.enforcer.Enforce(subject(principal), string(action.Resource), string(action.Verb))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if allowed {
		return nil
	}

	if action == ReadSchedule && principal.IsStaff() && principal.Role == models.RoleCourseLead && target.OwnerNUID != "" {
		supervised, err := g.supervision.IsSupervisor(ctx, principal.ID, target.OwnerNUID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		if supervised {
			return nil
		}
	}

	return g.deny(principal, action)
}

func (g *Gate) isSelf(principal *models.Principal, action Action, target Target) bool {
	if principal == nil {
		return false
	}
	switch action {
	case ChangeOwnPassword:
		return principal.ID != ""
	case ReadSchedule, WriteSchedule:
		return principal.IsStaff() && target.OwnerNUID != "" && target.OwnerNUID == principal.ID
	}
	return false
}

func (g *Gate) deny(principal *models.Principal, action Action) error {
	if principal == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	g.logger.Debug("authorization denied",
		zap.String("principal", principal.ID),
		zap.String("role", string(principal.Role)),
		zap.String("action", action.String()),
	)
	return appErrors.ErrForbidden
}

func subject(principal *models.Principal) string {
	if principal == nil || !principal.Role.Valid() {
		return subjectAnonymous
	}
	return string(principal.Role)
}
