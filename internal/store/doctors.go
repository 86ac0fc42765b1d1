package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var doctorColumns = []string{
	"id", "user_id", "specialization", "license_number", "qualification", "years_of_experience",
	"consultation_fee", "available_days", "available_hours", "bio", "created_at",
}

var selectDoctors = "SELECT " + columnList("d", doctorColumns) +
	", u.full_name, u.email, u.phone FROM doctors d JOIN users u ON u.id = d.user_id"

func scanDoctor(row rowScanner) (*models.Doctor, error) {
	d := &models.Doctor{}
	var specialization, license, qualification, days, hours, bio, phone sql.NullString
	err := row.Scan(&d.ID, &d.UserID, &specialization, &license, &qualification, &d.YearsOfExperience,
		&d.ConsultationFee, &days, &hours, &bio, &d.CreatedAt,
		&d.FullName, &d.Email, &phone)
	if err != nil {
		return nil, err
	}
	d.Specialization = specialization.String
	d.LicenseNumber = license.String
	d.Qualification = qualification.String
	d.AvailableDays = days.String
	d.AvailableHours = hours.String
	d.Bio = bio.String
	d.Phone = phone.String
	return d, nil
}

// CreateDoctor inserts the credentialing profile of an existing doctor user.
func (s *Store) CreateDoctor(ctx context.Context, d *models.Doctor) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO doctors (user_id, specialization, license_number, qualification, years_of_experience,
		   consultation_fee, available_days, available_hours, bio, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, nullString(d.Specialization), nullString(d.LicenseNumber), nullString(d.Qualification),
		d.YearsOfExperience, d.ConsultationFee, nullString(d.AvailableDays), nullString(d.AvailableHours),
		nullString(d.Bio), d.CreatedAt,
	)
	if err != nil {
		return wrap("create doctor", err)
	}
	d.ID, err = res.LastInsertId()
	return wrap("create doctor", err)
}

func (s *Store) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	d, err := scanDoctor(s.q.QueryRowContext(ctx, selectDoctors+" WHERE d.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, wrap("get doctor", err)
}

func (s *Store) GetDoctorByUser(ctx context.Context, userID int64) (*models.Doctor, error) {
	d, err := scanDoctor(s.q.QueryRowContext(ctx, selectDoctors+" WHERE d.user_id = ?", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, wrap("get doctor by user", err)
}

// ListDoctors returns doctors with active accounts, by name.
func (s *Store) ListDoctors(ctx context.Context) ([]*models.Doctor, error) {
	rows, err := s.q.QueryContext(ctx, selectDoctors+" WHERE u.status = ? ORDER BY u.full_name, d.id",
		models.StatusActive)
	if err != nil {
		return nil, wrap("list doctors", err)
	}
	defer rows.Close()

	doctors := make([]*models.Doctor, 0)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, wrap("list doctors", err)
		}
		doctors = append(doctors, d)
	}
	return doctors, wrap("list doctors", rows.Err())
}
