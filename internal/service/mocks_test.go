package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/la-portal-api/internal/authz"
	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/password"
)

type mockStaffRepo struct {
	staff       map[string]*models.Staff
	courses     map[string][]string
	supervision map[string][]string
	err         error
	lastLogin   map[string]time.Time
}

func newMockStaffRepo(members ...*models.Staff) *mockStaffRepo {
	repo := &mockStaffRepo{
		staff:       map[string]*models.Staff{},
		courses:     map[string][]string{},
		supervision: map[string][]string{},
		lastLogin:   map[string]time.Time{},
	}
	for _, m := range members {
		repo.staff[m.NUID] = m
	}
	return repo
}

func (m *mockStaffRepo) FindByNUID(ctx context.Context, nuid string) (*models.Staff, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.staff[nuid]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStaffRepo) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.staff {
		if s.Email != nil && strings.EqualFold(*s.Email, email) {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStaffRepo) FindByLogin(ctx context.Context, login string) (*models.Staff, error) {
	if s, err := m.FindByNUID(ctx, login); err == nil {
		return s, nil
	}
	return m.FindByEmail(ctx, login)
}

func (m *mockStaffRepo) UpdateLastLogin(ctx context.Context, nuid string, ts time.Time) error {
	m.lastLogin[nuid] = ts
	return nil
}

func (m *mockStaffRepo) UpdatePassword(ctx context.Context, nuid, passwordHash string) error {
	s, ok := m.staff[nuid]
	if !ok {
		return sql.ErrNoRows
	}
	s.PasswordHash = &passwordHash
	return nil
}

func (m *mockStaffRepo) ListDirectory(ctx context.Context, filter models.StaffFilter) ([]models.StaffSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []models.StaffSummary{}
	for _, s := range m.staff {
		if !s.IsActive || (filter.Role != nil && s.Role != *filter.Role) {
			continue
		}
		out = append(out, models.StaffSummary{NUID: s.NUID, Name: s.Name, Email: s.Email, Role: s.Role, Courses: m.courses[s.NUID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStaffRepo) ListCourses(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := []string{}
	for _, list := range m.courses {
		for _, c := range list {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockStaffRepo) ListCoursesForStaff(ctx context.Context, nuid string) ([]string, error) {
	return m.courses[nuid], nil
}

func (m *mockStaffRepo) Create(ctx context.Context, staff *models.Staff, courses []string) error {
	if m.err != nil {
		return m.err
	}
	m.staff[staff.NUID] = staff
	m.courses[staff.NUID] = courses
	return nil
}

func (m *mockStaffRepo) Update(ctx context.Context, staff *models.Staff, courses *[]string) error {
	if _, ok := m.staff[staff.NUID]; !ok {
		return sql.ErrNoRows
	}
	m.staff[staff.NUID] = staff
	if courses != nil {
		m.courses[staff.NUID] = *courses
	}
	for cl, las := range m.supervision {
		if cl == staff.NUID && staff.Role != models.RoleCourseLead {
			delete(m.supervision, cl)
			continue
		}
		if staff.Role != models.RoleLearningAssistant {
			kept := las[:0:0]
			for _, la := range las {
				if la != staff.NUID {
					kept = append(kept, la)
				}
			}
			m.supervision[cl] = kept
		}
	}
	return nil
}

func (m *mockStaffRepo) Delete(ctx context.Context, nuid string) error {
	if _, ok := m.staff[nuid]; !ok {
		return sql.ErrNoRows
	}
	delete(m.staff, nuid)
	delete(m.courses, nuid)
	delete(m.supervision, nuid)
	return nil
}

func (m *mockStaffRepo) ListSupervised(ctx context.Context, clNUID string) ([]string, error) {
	return m.supervision[clNUID], nil
}

func (m *mockStaffRepo) ReplaceSupervision(ctx context.Context, clNUID string, laNUIDs []string) error {
	m.supervision[clNUID] = laNUIDs
	return nil
}

func (m *mockStaffRepo) IsSupervisor(ctx context.Context, clNUID, laNUID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, la := range m.supervision[clNUID] {
		if la != laNUID {
			continue
		}
		member, ok := m.staff[la]
		return ok && member.IsActive && member.Role == models.RoleLearningAssistant, nil
	}
	return false, nil
}

type mockStudentRepo struct {
	students map[string]*models.Student
	err      error
}

func newMockStudentRepo(students ...*models.Student) *mockStudentRepo {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	for _, s := range students {
		repo.students[s.ID] = s
	}
	return repo
}

func (m *mockStudentRepo) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.students {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.err != nil {
		return m.err
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentRepo) ListByStatus(ctx context.Context, status models.StudentStatus) ([]models.Student, error) {
	out := []models.Student{}
	for _, s := range m.students {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) UpdateStatus(ctx context.Context, id string, status models.StudentStatus, decidedBy string, decidedAt time.Time) error {
	s, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = status
	s.ApprovedBy = &decidedBy
	s.ApprovedAt = &decidedAt
	return nil
}

func (m *mockStudentRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	s, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.PasswordHash = &passwordHash
	return nil
}

type mockScheduleRepo struct {
	entries  map[string]*models.ScheduleEntry
	sessions map[string]models.Session
	upcoming []models.UpcomingSession
	hours    []models.OfficeHour
	since    time.Time
	calls    int
	queue    []models.QueueEntry
}

func newMockScheduleRepo(entries ...models.ScheduleEntry) *mockScheduleRepo {
	repo := &mockScheduleRepo{entries: map[string]*models.ScheduleEntry{}, sessions: map[string]models.Session{}}
	for i := range entries {
		e := entries[i]
		repo.entries[e.ID] = &e
	}
	return repo
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	if e, ok := m.entries[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) ListByStaff(ctx context.Context, staffNUID string) ([]models.ScheduleEntry, error) {
	out := []models.ScheduleEntry{}
	for _, e := range m.entries {
		if e.StaffNUID == staffNUID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, entry *models.ScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, entry *models.ScheduleEntry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.entries[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.entries, id)
	return nil
}

func (m *mockScheduleRepo) ReplaceForStaff(ctx context.Context, staffNUID string, entries []models.ScheduleEntry) error {
	for id, e := range m.entries {
		if e.StaffNUID == staffNUID {
			delete(m.entries, id)
		}
	}
	for i := range entries {
		entries[i].StaffNUID = staffNUID
		if err := m.Create(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockScheduleRepo) CreateSessions(ctx context.Context, sessions []models.Session) (int, error) {
	created := 0
	for _, s := range sessions {
		key := s.ScheduleID + "|" + s.SessionStart.Format(time.RFC3339)
		if _, dup := m.sessions[key]; dup {
			continue
		}
		m.sessions[key] = s
		created++
	}
	return created, nil
}

func (m *mockScheduleRepo) ListOfficeHours(ctx context.Context, course string) ([]models.OfficeHour, error) {
	m.calls++
	if course == "" {
		return m.hours, nil
	}
	out := []models.OfficeHour{}
	for _, h := range m.hours {
		if h.CourseCode != nil && *h.CourseCode == course {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) ListUpcomingSessions(ctx context.Context, since time.Time, course string) ([]models.UpcomingSession, error) {
	m.since = since
	out := []models.UpcomingSession{}
	for _, s := range m.upcoming {
		if !s.SessionEnd.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) JoinQueue(ctx context.Context, entry *models.QueueEntry) error {
	known := false
	for _, s := range m.upcoming {
		if s.ID == entry.SessionID {
			known = true
		}
	}
	if !known {
		return sql.ErrNoRows
	}
	for _, q := range m.queue {
		if q.SessionID == entry.SessionID && q.MemberKind == entry.MemberKind && q.MemberID == entry.MemberID {
			return &pq.Error{Code: "23505"}
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.queue = append(m.queue, *entry)
	return nil
}

type mockFeedbackRepo struct {
	items      []models.Feedback
	lastFilter models.FeedbackFilter
}

func (m *mockFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	feedback.ID = uuid.NewString()
	feedback.CreatedAt = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	m.items = append(m.items, *feedback)
	return nil
}

func (m *mockFeedbackRepo) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	m.lastFilter = filter
	return m.items, nil
}

type mockCacheRepo struct {
	values map[string]interface{}
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{values: map[string]interface{}{}}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *[]models.OfficeHour:
		*d = value.([]models.OfficeHour)
	case *[]models.StaffSummary:
		*d = value.([]models.StaffSummary)
	case *[]string:
		*d = value.([]string)
	}
	return nil
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *mockCacheRepo) DeleteByPrefix(ctx context.Context, prefix string) error {
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

func newTestGate(t *testing.T, supervision authz.SupervisionChecker) *authz.Gate {
	t.Helper()
	gate, err := authz.NewGate(supervision, nil)
	require.NoError(t, err)
	return gate
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()
	return password.NewHasher(password.MinCost)
}

func digestOf(t *testing.T, hasher *password.Hasher, plaintext string) *string {
	t.Helper()
	digest, err := hasher.Hash(plaintext)
	require.NoError(t, err)
	return &digest
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func staffActor(nuid string, role models.Role) *models.Principal {
	return &models.Principal{Kind: models.KindStaff, ID: nuid, Role: role, Name: nuid}
}

func requireAppError(t *testing.T, err error, status int) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, status, appErr.Status, appErr.Message)
	return appErr
}
