package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/la-portal-api/internal/models"
)

const staffColumns = `nuid, name, email, role, password_hash, is_active, last_login`

// StaffRepository provides database access for staff members, their course
// assignments and supervision relations.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new instance of StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByNUID returns a staff member by NUID.
func (r *StaffRepository) FindByNUID(ctx context.Context, nuid string) (*models.Staff, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff WHERE nuid = $1 LIMIT 1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, nuid); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by nuid: %w", err)
	}
	return &staff, nil
}

// FindByLogin matches a NUID or a case-insensitive email.
func (r *StaffRepository) FindByLogin(ctx context.Context, login string) (*models.Staff, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff WHERE nuid = $1 OR LOWER(email) = LOWER($1) ORDER BY (nuid = $1) DESC LIMIT 1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, login); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by login: %w", err)
	}
	return &staff, nil
}

// FindByEmail returns a staff member by case-insensitive email.
func (r *StaffRepository) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by email: %w", err)
	}
	return &staff, nil
}

// UpdateLastLogin records a successful login.
func (r *StaffRepository) UpdateLastLogin(ctx context.Context, nuid string, ts time.Time) error {
	const query = `UPDATE staff SET last_login = $2 WHERE nuid = $1`
	if _, err := r.db.ExecContext(ctx, query, nuid, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored digest. It returns sql.ErrNoRows when no row matched.
func (r *StaffRepository) UpdatePassword(ctx context.Context, nuid, passwordHash string) error {
	const query = `UPDATE staff SET password_hash = $2 WHERE nuid = $1`
	res, err := r.db.ExecContext(ctx, query, nuid, passwordHash)
	if err != nil {
		return fmt.Errorf("update staff password: %w", err)
	}
	return requireAffected(res, "update staff password")
}

// ListDirectory returns active staff with their course assignments.
func (r *StaffRepository) ListDirectory(ctx context.Context, filter models.StaffFilter) ([]models.StaffSummary, error) {
	base := `SELECT s.nuid, s.name, s.email, s.role,
		COALESCE(array_agg(sc.course ORDER BY sc.course) FILTER (WHERE sc.course IS NOT NULL), '{}') AS courses
		FROM staff s
		LEFT JOIN staff_courses sc ON sc.staff_nuid = s.nuid
		WHERE s.is_active = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("s.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Course != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM staff_courses f WHERE f.staff_nuid = s.nuid AND f.course = $%d)", len(args)+1))
		args = append(args, filter.Course)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := base + ` GROUP BY s.nuid, s.name, s.email, s.role ORDER BY s.name ASC`
	staff := make([]models.StaffSummary, 0)
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, fmt.Errorf("list staff directory: %w", err)
	}
	return staff, nil
}

// ListCourses returns every distinct course code assigned to staff.
func (r *StaffRepository) ListCourses(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT course FROM staff_courses ORDER BY course ASC`
	courses := make([]string, 0)
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListCoursesForStaff returns the course codes assigned to one staff member.
func (r *StaffRepository) ListCoursesForStaff(ctx context.Context, nuid string) ([]string, error) {
	const query = `SELECT course FROM staff_courses WHERE staff_nuid = $1 ORDER BY course ASC`
	courses := make([]string, 0)
	if err := r.db.SelectContext(ctx, &courses, query, nuid); err != nil {
		return nil, fmt.Errorf("list staff courses: %w", err)
	}
	return courses, nil
}

// Create inserts a staff member and their course assignments.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff, courses []string) error {
	return withTx(ctx, r.db, "create staff", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO staff (nuid, name, email, role, password_hash, is_active) VALUES (:nuid, :name, :email, :role, :password_hash, :is_active)`
		if _, err := tx.NamedExecContext(ctx, query, staff); err != nil {
			return fmt.Errorf("create staff: %w", err)
		}
		return insertCourses(ctx, tx, staff.NUID, courses)
	})
}

// Update writes mutable fields and, when courses is non-nil, replaces course assignments.
func (r *StaffRepository) Update(ctx context.Context, staff *models.Staff, courses *[]string) error {
	return withTx(ctx, r.db, "update staff", func(tx *sqlx.Tx) error {
		const query = `UPDATE staff SET name = :name, email = :email, role = :role, is_active = :is_active WHERE nuid = :nuid`
		res, err := tx.NamedExecContext(ctx, query, staff)
		if err != nil {
			return fmt.Errorf("update staff: %w", err)
		}
		if err := requireAffected(res, "update staff"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, clearStaleSupervision, staff.NUID, string(staff.Role)); err != nil {
			return fmt.Errorf("clear stale supervision: %w", err)
		}
		if courses == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM staff_courses WHERE staff_nuid = $1`, staff.NUID); err != nil {
			return fmt.Errorf("clear staff courses: %w", err)
		}
		return insertCourses(ctx, tx, staff.NUID, *courses)
	})
}

// Delete removes a staff member with their dependent rows.
func (r *StaffRepository) Delete(ctx context.Context, nuid string) error {
	return withTx(ctx, r.db, "delete staff", func(tx *sqlx.Tx) error {
		cleanup := []string{
			`DELETE FROM office_hour_sessions WHERE schedule_id IN (SELECT id FROM staff_schedules WHERE staff_nuid = $1)`,
			`DELETE FROM staff_schedules WHERE staff_nuid = $1`,
			`DELETE FROM staff_courses WHERE staff_nuid = $1`,
			`DELETE FROM cl_assigned_las WHERE cl_nuid = $1 OR la_nuid = $1`,
		}
		for _, stmt := range cleanup {
			if _, err := tx.ExecContext(ctx, stmt, nuid); err != nil {
				return fmt.Errorf("delete staff dependents: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM staff WHERE nuid = $1`, nuid)
		if err != nil {
			return fmt.Errorf("delete staff: %w", err)
		}
		return requireAffected(res, "delete staff")
	})
}

// clearStaleSupervision drops supervision rows the member no longer qualifies
// for after a role change.
const clearStaleSupervision = `DELETE FROM cl_assigned_las WHERE (la_nuid = $1 AND $2 <> 'LA') OR (cl_nuid = $1 AND $2 <> 'CL')`

// IsSupervisor reports whether the course lead supervises laNUID and that
// member is still an active learning assistant.
func (r *StaffRepository) IsSupervisor(ctx context.Context, clNUID, laNUID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM cl_assigned_las a
		JOIN staff la ON la.nuid = a.la_nuid AND la.role = 'LA' AND la.is_active = TRUE
		WHERE a.cl_nuid = $1 AND a.la_nuid = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, clNUID, laNUID); err != nil {
		return false, fmt.Errorf("check supervision: %w", err)
	}
	return exists, nil
}

// ListSupervised returns the learning assistants assigned to a course lead.
func (r *StaffRepository) ListSupervised(ctx context.Context, clNUID string) ([]string, error) {
	const query = `SELECT la_nuid FROM cl_assigned_las WHERE cl_nuid = $1 ORDER BY la_nuid ASC`
	nuids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &nuids, query, clNUID); err != nil {
		return nil, fmt.Errorf("list supervised: %w", err)
	}
	return nuids, nil
}

// ReplaceSupervision swaps the course lead's assigned learning assistants.
func (r *StaffRepository) ReplaceSupervision(ctx context.Context, clNUID string, laNUIDs []string) error {
	return withTx(ctx, r.db, "replace supervision", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cl_assigned_las WHERE cl_nuid = $1`, clNUID); err != nil {
			return fmt.Errorf("clear supervision: %w", err)
		}
		for _, la := range laNUIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO cl_assigned_las (cl_nuid, la_nuid) VALUES ($1, $2)`, clNUID, la); err != nil {
				return fmt.Errorf("insert supervision: %w", err)
			}
		}
		return nil
	})
}

func insertCourses(ctx context.Context, tx *sqlx.Tx, nuid string, courses []string) error {
	for _, course := range courses {
		if _, err := tx.ExecContext(ctx, `INSERT INTO staff_courses (staff_nuid, course) VALUES ($1, $2) ON CONFLICT DO NOTHING`, nuid, course); err != nil {
			return fmt.Errorf("insert staff course: %w", err)
		}
	}
	return nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
