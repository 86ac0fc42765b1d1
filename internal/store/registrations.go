package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var registrationColumns = []string{
	"id", "username", "email", "password_hash", "role", "full_name", "phone", "specialization",
	"license_number", "qualification", "years_of_experience", "consultation_fee", "available_days",
	"available_hours", "department", "position", "status", "approved_by", "admin_notes",
	"created_at", "updated_at",
}

var selectRegistrations = "SELECT " + columnList("", registrationColumns) + " FROM pending_registrations"

func scanRegistration(row rowScanner) (*models.PendingRegistration, error) {
	r := &models.PendingRegistration{}
	var (
		phone, specialization, license, qualification sql.NullString
		days, hours, department, position, notes      sql.NullString
		approvedBy                                    sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.Username, &r.Email, &r.PasswordHash, &r.Role, &r.FullName, &phone,
		&specialization, &license, &qualification, &r.YearsOfExperience, &r.ConsultationFee,
		&days, &hours, &department, &position, &r.Status, &approvedBy, &notes,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Phone = phone.String
	r.Specialization = specialization.String
	r.LicenseNumber = license.String
	r.Qualification = qualification.String
	r.AvailableDays = days.String
	r.AvailableHours = hours.String
	r.Department = department.String
	r.Position = position.String
	r.ApprovedBy = intPtr(approvedBy)
	r.AdminNotes = notes.String
	return r, nil
}

// CreatePendingRegistration stores a new submission in the pending state.
func (s *Store) CreatePendingRegistration(ctx context.Context, r *models.PendingRegistration) error {
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = r.CreatedAt
	r.Status = models.RegistrationPending
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO pending_registrations (username, email, password_hash, role, full_name, phone,
		   specialization, license_number, qualification, years_of_experience, consultation_fee,
		   available_days, available_hours, department, position, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Username, r.Email, r.PasswordHash, r.Role, r.FullName, nullString(r.Phone),
		nullString(r.Specialization), nullString(r.LicenseNumber), nullString(r.Qualification),
		r.YearsOfExperience, r.ConsultationFee, nullString(r.AvailableDays), nullString(r.AvailableHours),
		nullString(r.Department), nullString(r.Position), r.Status, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return wrap("create registration", err)
	}
	r.ID, err = res.LastInsertId()
	return wrap("create registration", err)
}

func (s *Store) GetPendingRegistration(ctx context.Context, id int64) (*models.PendingRegistration, error) {
	r, err := scanRegistration(s.q.QueryRowContext(ctx, selectRegistrations+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, wrap("get registration", err)
}

// ListPendingRegistrations returns submissions, oldest first, optionally narrowed by status.
func (s *Store) ListPendingRegistrations(ctx context.Context, status string) ([]*models.PendingRegistration, error) {
	query := selectRegistrations + " ORDER BY created_at, id"
	var args []any
	if status != "" {
		query = selectRegistrations + " WHERE status = ? ORDER BY created_at, id"
		args = append(args, status)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list registrations", err)
	}
	defer rows.Close()

	regs := make([]*models.PendingRegistration, 0)
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, wrap("list registrations", err)
		}
		regs = append(regs, r)
	}
	return regs, wrap("list registrations", rows.Err())
}

// RegistrationIdentityPending reports whether a submission still awaiting review uses the
// username or email.
func (s *Store) RegistrationIdentityPending(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_registrations
		 WHERE status = ? AND (username = ? OR email = ?)`,
		models.RegistrationPending, username, email,
	).Scan(&n)
	if err != nil {
		return false, wrap("registration identity check", err)
	}
	return n > 0, nil
}

// DecidePendingRegistration moves a pending submission to status, recording the reviewer,
// notes and time in the same statement. Only the first decision on a row succeeds; later
// ones get ErrAlreadyDecided.
func (s *Store) DecidePendingRegistration(ctx context.Context, id int64, status string, reviewerID int64, notes string, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE pending_registrations
		 SET status = ?, approved_by = ?, admin_notes = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, reviewerID, nullString(notes), at, id, models.RegistrationPending,
	)
	if err != nil {
		return wrap("decide registration", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("decide registration", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetPendingRegistration(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyDecided
}
