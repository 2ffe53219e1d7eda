package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/password"
)

type authFixture struct {
	svc      *AuthService
	staff    *mockStaffRepo
	students *mockStudentRepo
	hasher   *password.Hasher
	tokens   *TokenService
	metrics  *MetricsService
}

func newAuthFixture(t *testing.T, config AuthConfig) *authFixture {
	t.Helper()
	hasher := newTestHasher(t)
	staff := newMockStaffRepo(
		&models.Staff{NUID: "001234567", Name: "Casey Lead", Email: strPtr("casey@example.edu"), Role: models.RoleCourseLead, IsActive: true, PasswordHash: digestOf(t, hasher, "course1lead")},
		&models.Staff{NUID: "009999999", Name: "Sam Senior", Email: strPtr("sam@example.edu"), Role: models.RoleSeniorLead, IsActive: true, PasswordHash: digestOf(t, hasher, "senior1lead")},
		&models.Staff{NUID: "005555555", Name: "Ina Active", Role: models.RoleLearningAssistant, IsActive: false, PasswordHash: digestOf(t, hasher, "inactive1")},
		&models.Staff{NUID: "007777777", Name: "No Password", Role: models.RoleLearningAssistant, IsActive: true},
	)
	students := newMockStudentRepo()
	tokens := newTestTokens(t, time.Now())
	metrics := NewMetricsService()
	if config.PasswordPolicy.MinLength == 0 {
		config.PasswordPolicy = password.Policy{MinLength: 8}
	}

	svc, err := NewAuthService(staff, students, hasher, tokens, newTestGate(t, staff), metrics, nil, nil, config)
	require.NoError(t, err)
	return &authFixture{svc: svc, staff: staff, students: students, hasher: hasher, tokens: tokens, metrics: metrics}
}

func TestLoginStaffRoleRoundTrip(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})

	for _, login := range []string{"001234567", "CASEY@example.edu"} {
		resp, err := f.svc.Login(context.Background(), models.LoginRequest{Login: login, Password: "course1lead"})
		require.NoError(t, err, login)
		assert.Equal(t, models.RoleCourseLead, resp.User.Role)
		assert.Equal(t, "001234567", resp.User.ID)

		claims, err := f.tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, models.RoleCourseLead, claims.Role)
		assert.Equal(t, models.KindStaff, claims.Kind)
	}
	assert.Contains(t, f.staff.lastLogin, "001234567")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.logins.WithLabelValues(LoginSucceeded, "staff")))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})

	cases := map[string]models.LoginRequest{
		"unknown nuid":   {Login: "000000001", Password: "whatever1"},
		"unknown email":  {Login: "nobody@example.edu", Password: "whatever1"},
		"wrong password": {Login: "001234567", Password: "wrong-pass1"},
		"inactive staff": {Login: "005555555", Password: "inactive1"},
		"no digest":      {Login: "007777777", Password: ""},
	}
	for name, req := range cases {
		if req.Password == "" {
			req.Password = "anything1"
		}
		_, err := f.svc.Login(context.Background(), req)
		appErr := requireAppError(t, err, http.StatusUnauthorized)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Message, appErr.Message, name)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code, name)
	}
}

func TestLoginRequiresFields(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	_, err := f.svc.Login(context.Background(), models.LoginRequest{Login: "001234567"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestLoginLookupFailureIsInternal(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	f.staff.err = errors.New("connection reset")

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Login: "001234567", Password: "course1lead"})
	appErr := requireAppError(t, err, http.StatusInternalServerError)
	assert.NotContains(t, appErr.Message, "connection reset")
}

func TestPendingStudentCannotLoginUntilApproved(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()

	student, err := f.svc.Signup(ctx, models.StudentSignupRequest{Email: "Jo@Example.edu", Name: " Jo ", Password: "student1pw", Courses: []string{"cs101", "CS101 ", "cs200"}})
	require.NoError(t, err)
	assert.Equal(t, models.StudentPending, student.Status)
	assert.Equal(t, "jo@example.edu", student.Email)
	assert.Equal(t, []string{"CS101", "CS200"}, student.Courses)

	_, err = f.svc.Login(ctx, models.LoginRequest{Login: "jo@example.edu", Password: "student1pw"})
	requireAppError(t, err, http.StatusUnauthorized)

	sl := staffActor("009999999", models.RoleSeniorLead)
	pending, err := f.svc.ListPending(ctx, sl)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, f.svc.Approve(ctx, sl, student.ID))
	assert.Equal(t, "009999999", *f.students.students[student.ID].ApprovedBy)

	resp, err := f.svc.Login(ctx, models.LoginRequest{Login: "jo@example.edu", Password: "student1pw"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.Equal(t, models.KindStudent, resp.User.Kind)
}

func TestRejectedStudentCannotLogin(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()
	student, err := f.svc.Signup(ctx, models.StudentSignupRequest{Email: "ri@example.edu", Name: "Ri", Password: "student1pw"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Reject(ctx, staffActor("009999999", models.RoleSeniorLead), student.ID))
	_, err = f.svc.Login(ctx, models.LoginRequest{Login: "ri@example.edu", Password: "student1pw"})
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestReviewRequiresSeniorLead(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()

	_, err := f.svc.ListPending(ctx, staffActor("001234567", models.RoleCourseLead))
	requireAppError(t, err, http.StatusForbidden)

	err = f.svc.Approve(ctx, nil, "missing")
	requireAppError(t, err, http.StatusUnauthorized)

	err = f.svc.Approve(ctx, staffActor("009999999", models.RoleSeniorLead), "missing")
	requireAppError(t, err, http.StatusNotFound)
}

func TestSignupRules(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{StudentEmailDomain: "example.edu"})
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, models.StudentSignupRequest{Email: "x@other.org", Name: "X", Password: "student1pw"})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = f.svc.Signup(ctx, models.StudentSignupRequest{Email: "x@example.edu", Name: "X", Password: "short"})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = f.svc.Signup(ctx, models.StudentSignupRequest{Email: "casey@example.edu", Name: "X", Password: "student1pw"})
	requireAppError(t, err, http.StatusConflict)

	_, err = f.svc.Signup(ctx, models.StudentSignupRequest{Email: "x@example.edu", Name: "X", Password: "student1pw"})
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, models.StudentSignupRequest{Email: "X@example.edu", Name: "X", Password: "student1pw"})
	requireAppError(t, err, http.StatusConflict)
}

func TestChangePasswordWrongCurrentLeavesDigest(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()
	actor := staffActor("001234567", models.RoleCourseLead)
	before := *f.staff.staff["001234567"].PasswordHash

	err := f.svc.ChangePassword(ctx, actor, models.ChangePasswordRequest{CurrentPassword: "not-it-1", NewPassword: "fresh1pass"})
	requireAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, before, *f.staff.staff["001234567"].PasswordHash)
}

func TestChangePasswordThenLogin(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()
	actor := staffActor("001234567", models.RoleCourseLead)

	err := f.svc.ChangePassword(ctx, actor, models.ChangePasswordRequest{CurrentPassword: "course1lead", NewPassword: "short"})
	requireAppError(t, err, http.StatusBadRequest)

	require.NoError(t, f.svc.ChangePassword(ctx, actor, models.ChangePasswordRequest{CurrentPassword: "course1lead", NewPassword: "fresh1pass"}))

	_, err = f.svc.Login(ctx, models.LoginRequest{Login: "001234567", Password: "course1lead"})
	requireAppError(t, err, http.StatusUnauthorized)
	_, err = f.svc.Login(ctx, models.LoginRequest{Login: "001234567", Password: "fresh1pass"})
	require.NoError(t, err)
}

func TestChangePasswordRequiresPrincipal(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	err := f.svc.ChangePassword(context.Background(), nil, models.ChangePasswordRequest{CurrentPassword: "a", NewPassword: "b"})
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestAdminResetPassword(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()
	sl := staffActor("009999999", models.RoleSeniorLead)

	err := f.svc.AdminResetPassword(ctx, staffActor("001234567", models.RoleCourseLead), models.AdminResetPasswordRequest{Target: models.KindStaff, NUID: "007777777", NewPassword: "given1pass"})
	requireAppError(t, err, http.StatusForbidden)

	require.NoError(t, f.svc.AdminResetPassword(ctx, sl, models.AdminResetPasswordRequest{Target: models.KindStaff, NUID: "007777777", NewPassword: "given1pass"}))
	_, err = f.svc.Login(ctx, models.LoginRequest{Login: "007777777", Password: "given1pass"})
	require.NoError(t, err)

	err = f.svc.AdminResetPassword(ctx, sl, models.AdminResetPasswordRequest{Target: models.KindStudent, Email: "ghost@example.edu", NewPassword: "given1pass"})
	requireAppError(t, err, http.StatusNotFound)

	err = f.svc.AdminResetPassword(ctx, sl, models.AdminResetPasswordRequest{Target: models.KindStudent, NewPassword: "given1pass"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestMeReflectsCurrentAccount(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()

	me, err := f.svc.Me(ctx, staffActor("001234567", models.RoleLearningAssistant))
	require.NoError(t, err)
	assert.Equal(t, models.RoleCourseLead, me.Role)

	_, err = f.svc.Me(ctx, staffActor("005555555", models.RoleLearningAssistant))
	requireAppError(t, err, http.StatusUnauthorized)

	_, err = f.svc.Me(ctx, nil)
	requireAppError(t, err, http.StatusUnauthorized)
}
