package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var appointmentColumns = []string{
	"id", "patient_id", "doctor_id", "start_time", "end_time", "service", "status", "notes", "created_at",
}

var selectAppointments = "SELECT " + columnList("a", appointmentColumns) +
	", u.full_name FROM appointments a JOIN users u ON u.id = a.patient_id"

// AppointmentFilter narrows ListAppointments. Zero values mean no constraint.
type AppointmentFilter struct {
	PatientID  *int64
	DoctorID   *int64
	Status     string
	From       *time.Time
	To         *time.Time
	Descending bool
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	a := &models.Appointment{}
	var doctorID sql.NullInt64
	var notes sql.NullString
	err := row.Scan(&a.ID, &a.PatientID, &doctorID, &a.StartTime, &a.EndTime, &a.Service,
		&a.Status, &notes, &a.CreatedAt, &a.PatientName)
	if err != nil {
		return nil, err
	}
	a.DoctorID = intPtr(doctorID)
	a.Notes = notes.String
	return a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.Status == "" {
		a.Status = models.AppointmentScheduled
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO appointments (patient_id, doctor_id, start_time, end_time, service, status, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PatientID, nullInt(a.DoctorID), a.StartTime.UTC(), a.EndTime.UTC(), a.Service, a.Status,
		nullString(a.Notes), a.CreatedAt,
	)
	if err != nil {
		return wrap("create appointment", err)
	}
	a.ID, err = res.LastInsertId()
	return wrap("create appointment", err)
}

func (s *Store) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	a, err := scanAppointment(s.q.QueryRowContext(ctx, selectAppointments+" WHERE a.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, wrap("get appointment", err)
}

// ListAppointments returns appointments matching f, sorted by start time.
func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]*models.Appointment, error) {
	var (
		where []string
		args  []any
	)
	if f.PatientID != nil {
		where = append(where, "a.patient_id = ?")
		args = append(args, *f.PatientID)
	}
	if f.DoctorID != nil {
		where = append(where, "a.doctor_id = ?")
		args = append(args, *f.DoctorID)
	}
	if f.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		where = append(where, "a.start_time >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "a.start_time <= ?")
		args = append(args, f.To.UTC())
	}

	query := selectAppointments
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Descending {
		query += " ORDER BY a.start_time DESC, a.id DESC"
	} else {
		query += " ORDER BY a.start_time, a.id"
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list appointments", err)
	}
	defer rows.Close()

	appointments := make([]*models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, wrap("list appointments", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, wrap("list appointments", rows.Err())
}

// UpdateAppointment rewrites the schedulable fields of appointment a.ID.
func (s *Store) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE appointments SET doctor_id = ?, start_time = ?, end_time = ?, service = ?, status = ?, notes = ?
		 WHERE id = ?`,
		nullInt(a.DoctorID), a.StartTime.UTC(), a.EndTime.UTC(), a.Service, a.Status, nullString(a.Notes), a.ID,
	)
	if err != nil {
		return wrap("update appointment", err)
	}
	return affected("update appointment", res)
}

func (s *Store) SetAppointmentStatus(ctx context.Context, id int64, status string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE appointments SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return wrap("set appointment status", err)
	}
	return affected("set appointment status", res)
}
