package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/la-portal-api/internal/models"
)

const scheduleColumns = `id, staff_nuid, kind, day_of_week, start_time, end_time, location, course_code, created_at, updated_at`

// ScheduleRepository provides persistence for weekly schedule entries and their generated sessions.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByID loads an entry by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	const query = `SELECT ` + scheduleColumns + ` FROM staff_schedules WHERE id = $1`
	var entry models.ScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByStaff returns a staff member's entries ordered by weekday and start time.
func (r *ScheduleRepository) ListByStaff(ctx context.Context, staffNUID string) ([]models.ScheduleEntry, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM staff_schedules WHERE staff_nuid = $1 ORDER BY day_of_week ASC, start_time ASC`
	entries := make([]models.ScheduleEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, staffNUID); err != nil {
		return nil, fmt.Errorf("list schedule by staff: %w", err)
	}
	return entries, nil
}

// Create stores a new entry.
func (r *ScheduleRepository) Create(ctx context.Context, entry *models.ScheduleEntry) error {
	prepareEntry(entry, time.Now().UTC())
	if err := insertEntry(ctx, r.db, entry); err != nil {
		return fmt.Errorf("create schedule entry: %w", err)
	}
	return nil
}

// Update writes every mutable field of an entry.
func (r *ScheduleRepository) Update(ctx context.Context, entry *models.ScheduleEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff_schedules SET kind = :kind, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, location = :location, course_code = :course_code, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("update schedule entry: %w", err)
	}
	return requireAffected(res, "update schedule entry")
}

// Delete removes an entry and its generated sessions.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return sql.ErrNoRows
	}
	return withTx(ctx, r.db, "delete schedule entry", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM office_hour_sessions WHERE schedule_id = $1`, id); err != nil {
			return fmt.Errorf("delete schedule sessions: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM staff_schedules WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete schedule entry: %w", err)
		}
		return requireAffected(res, "delete schedule entry")
	})
}

// ReplaceForStaff swaps every entry of a staff member in one transaction.
func (r *ScheduleRepository) ReplaceForStaff(ctx context.Context, staffNUID string, entries []models.ScheduleEntry) error {
	return withTx(ctx, r.db, "replace schedule", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM office_hour_sessions WHERE schedule_id IN (SELECT id FROM staff_schedules WHERE staff_nuid = $1)`, staffNUID); err != nil {
			return fmt.Errorf("clear schedule sessions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM staff_schedules WHERE staff_nuid = $1`, staffNUID); err != nil {
			return fmt.Errorf("clear schedule: %w", err)
		}
		now := time.Now().UTC()
		for i := range entries {
			entries[i].StaffNUID = staffNUID
			prepareEntry(&entries[i], now)
			if err := insertEntry(ctx, tx, &entries[i]); err != nil {
				return fmt.Errorf("insert schedule entry: %w", err)
			}
		}
		return nil
	})
}

// ListOfficeHours joins office-hour entries with their active owners.
func (r *ScheduleRepository) ListOfficeHours(ctx context.Context, course string) ([]models.OfficeHour, error) {
	query := `SELECT ss.id, ss.staff_nuid, s.name AS staff_name, s.role AS staff_role, ss.day_of_week, ss.start_time, ss.end_time, ss.location, ss.course_code
		FROM staff_schedules ss
		JOIN staff s ON s.nuid = ss.staff_nuid
		WHERE ss.kind = $1 AND s.is_active = TRUE`
	args := []interface{}{models.KindOfficeHour}
	if course != "" {
		query += ` AND ss.course_code = $2`
		args = append(args, course)
	}
	query += ` ORDER BY ss.day_of_week ASC, ss.start_time ASC, s.name ASC`

	hours := make([]models.OfficeHour, 0)
	if err := r.db.SelectContext(ctx, &hours, query, args...); err != nil {
		return nil, fmt.Errorf("list office hours: %w", err)
	}
	return hours, nil
}

// CreateSessions persists generated sessions, skipping ones already stored for the same start.
func (r *ScheduleRepository) CreateSessions(ctx context.Context, sessions []models.Session) (int, error) {
	if len(sessions) == 0 {
		return 0, nil
	}
	inserted := 0
	err := withTx(ctx, r.db, "create sessions", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO office_hour_sessions (id, schedule_id, session_start, session_end) VALUES (:id, :schedule_id, :session_start, :session_end) ON CONFLICT (schedule_id, session_start) DO NOTHING`
		for i := range sessions {
			if sessions[i].ID == "" {
				sessions[i].ID = uuid.NewString()
			}
			res, err := tx.NamedExecContext(ctx, query, sessions[i])
			if err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("insert session rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListUpcomingSessions returns sessions ending at or after since.
func (r *ScheduleRepository) ListUpcomingSessions(ctx context.Context, since time.Time, course string) ([]models.UpcomingSession, error) {
	query := `SELECT o.id, o.schedule_id, o.session_start, o.session_end, ss.staff_nuid, s.name AS staff_name, ss.location, ss.course_code
		FROM office_hour_sessions o
		JOIN staff_schedules ss ON ss.id = o.schedule_id
		JOIN staff s ON s.nuid = ss.staff_nuid
		WHERE o.session_end >= $1 AND s.is_active = TRUE`
	args := []interface{}{since}
	if course != "" {
		query += ` AND ss.course_code = $2`
		args = append(args, course)
	}
	query += ` ORDER BY o.session_start ASC LIMIT 500`

	sessions := make([]models.UpcomingSession, 0)
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	return sessions, nil
}

// JoinQueue appends a caller to a session's queue. An unknown session yields
// sql.ErrNoRows and a repeat join surfaces the unique violation.
func (r *ScheduleRepository) JoinQueue(ctx context.Context, entry *models.QueueEntry) error {
	if !isUUID(entry.SessionID) {
		return sql.ErrNoRows
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO office_hour_queue (id, session_id, member_kind, member_id, joined_at)
		SELECT $1, o.id, $3, $4, $5 FROM office_hour_sessions o WHERE o.id = $2`
	res, err := r.db.ExecContext(ctx, query, entry.ID, entry.SessionID, string(entry.MemberKind), entry.MemberID, entry.JoinedAt)
	if err != nil {
		return fmt.Errorf("join queue: %w", err)
	}
	return requireAffected(res, "join queue")
}

func prepareEntry(entry *models.ScheduleEntry, now time.Time) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
}

func insertEntry(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	const query = `INSERT INTO staff_schedules (id, staff_nuid, kind, day_of_week, start_time, end_time, location, course_code, created_at, updated_at) VALUES (:id, :staff_nuid, :kind, :day_of_week, :start_time, :end_time, :location, :course_code, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, exec, query, entry)
	return err
}
