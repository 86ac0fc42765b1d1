package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var complaintColumns = []string{
	"id", "customer_id", "category", "subject", "message", "status", "created_at", "updated_at",
}

var complaintFeedbackColumns = []string{"id", "complaint_id", "responder_id", "message", "created_at"}

var (
	selectComplaints        = "SELECT " + columnList("", complaintColumns) + " FROM feedback_complaints"
	selectComplaintFeedback = "SELECT " + columnList("", complaintFeedbackColumns) + " FROM complaint_feedback"
)

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	c := &models.Complaint{}
	err := row.Scan(&c.ID, &c.CustomerID, &c.Category, &c.Subject, &c.Message, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Status == "" {
		c.Status = models.ComplaintOpen
	}
	if c.Category == "" {
		c.Category = "complaint"
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO feedback_complaints (customer_id, category, subject, message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.CustomerID, c.Category, c.Subject, c.Message, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return wrap("create complaint", err)
	}
	c.ID, err = res.LastInsertId()
	return wrap("create complaint", err)
}

func (s *Store) GetComplaint(ctx context.Context, id int64) (*models.Complaint, error) {
	c, err := scanComplaint(s.q.QueryRowContext(ctx, selectComplaints+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, wrap("get complaint", err)
}

// ListComplaints returns the newest complaints first; a non-nil customerID limits the result
// to that customer's complaints.
func (s *Store) ListComplaints(ctx context.Context, customerID *int64) ([]*models.Complaint, error) {
	query := selectComplaints + " ORDER BY created_at DESC, id DESC"
	var args []any
	if customerID != nil {
		query = selectComplaints + " WHERE customer_id = ? ORDER BY created_at DESC, id DESC"
		args = append(args, *customerID)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list complaints", err)
	}
	defer rows.Close()

	out := make([]*models.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, wrap("list complaints", err)
		}
		out = append(out, c)
	}
	return out, wrap("list complaints", rows.Err())
}

// AddComplaintFeedback records a response and moves the complaint to status atomically.
func (s *Store) AddComplaintFeedback(ctx context.Context, fb *models.ComplaintFeedback, status string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		now := tx.now()
		res, err := tx.q.ExecContext(ctx,
			`UPDATE feedback_complaints SET status = ?, updated_at = ? WHERE id = ?`, status, now, fb.ComplaintID)
		if err != nil {
			return wrap("update complaint", err)
		}
		if err := affected("update complaint", res); err != nil {
			return err
		}
		fb.CreatedAt = now
		res, err = tx.q.ExecContext(ctx,
			`INSERT INTO complaint_feedback (complaint_id, responder_id, message, created_at) VALUES (?, ?, ?, ?)`,
			fb.ComplaintID, fb.ResponderID, fb.Message, fb.CreatedAt)
		if err != nil {
			return wrap("create complaint feedback", err)
		}
		fb.ID, err = res.LastInsertId()
		return wrap("create complaint feedback", err)
	})
}

func (s *Store) ListComplaintFeedback(ctx context.Context, complaintID int64) ([]*models.ComplaintFeedback, error) {
	rows, err := s.q.QueryContext(ctx, selectComplaintFeedback+" WHERE complaint_id = ? ORDER BY created_at, id", complaintID)
	if err != nil {
		return nil, wrap("list complaint feedback", err)
	}
	defer rows.Close()

	out := make([]*models.ComplaintFeedback, 0)
	for rows.Next() {
		fb := &models.ComplaintFeedback{}
		var responder sql.NullInt64
		if err := rows.Scan(&fb.ID, &fb.ComplaintID, &responder, &fb.Message, &fb.CreatedAt); err != nil {
			return nil, wrap("list complaint feedback", err)
		}
		fb.ResponderID = responder.Int64
		out = append(out, fb)
	}
	return out, wrap("list complaint feedback", rows.Err())
}
