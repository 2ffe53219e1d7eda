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

const studentColumns = `id, email, name, nuid, class_year, status, password_hash, approved_at, approved_by, created_at`

// StudentRepository handles persistence of self-registered students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByEmail returns a student by lower-cased email.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE email = LOWER($1) LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	return &student, nil
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	const query = `SELECT ` + studentColumns + ` FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// ListByStatus returns students in the given approval state, oldest first.
func (r *StudentRepository) ListByStatus(ctx context.Context, status models.StudentStatus) ([]models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE status = $1 ORDER BY created_at ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, status); err != nil {
		return nil, fmt.Errorf("list students by status: %w", err)
	}
	return students, nil
}

// Create inserts a student and their course list.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	return withTx(ctx, r.db, "create student", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO students (id, email, name, nuid, class_year, status, password_hash, created_at) VALUES (:id, :email, :name, :nuid, :class_year, :status, :password_hash, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		for _, course := range student.Courses {
			if _, err := tx.ExecContext(ctx, `INSERT INTO student_courses (student_id, course) VALUES ($1, $2) ON CONFLICT DO NOTHING`, student.ID, course); err != nil {
				return fmt.Errorf("insert student course: %w", err)
			}
		}
		return nil
	})
}

// UpdateStatus records an approval decision. It returns sql.ErrNoRows when the id is unknown.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus, decidedBy string, decidedAt time.Time) error {
	if !isUUID(id) {
		return sql.ErrNoRows
	}
	const query = `UPDATE students SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, decidedBy, decidedAt)
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return requireAffected(res, "update student status")
}

// UpdatePassword replaces the stored digest.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if !isUUID(id) {
		return sql.ErrNoRows
	}
	const query = `UPDATE students SET password_hash = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update student password: %w", err)
	}
	return requireAffected(res, "update student password")
}
