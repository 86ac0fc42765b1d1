package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var ambulanceColumns = []string{
	"id", "customer_id", "pickup_address", "contact_phone", "reason", "status", "created_at", "updated_at",
}

var selectAmbulance = "SELECT " + columnList("", ambulanceColumns) + " FROM ambulance_requests"

func scanAmbulance(row rowScanner) (*models.AmbulanceRequest, error) {
	r := &models.AmbulanceRequest{}
	var phone, reason sql.NullString
	err := row.Scan(&r.ID, &r.CustomerID, &r.PickupAddress, &phone, &reason, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ContactPhone = phone.String
	r.Reason = reason.String
	return r, nil
}

func (s *Store) CreateAmbulanceRequest(ctx context.Context, r *models.AmbulanceRequest) error {
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	if r.Status == "" {
		r.Status = models.AmbulancePending
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO ambulance_requests (customer_id, pickup_address, contact_phone, reason, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.CustomerID, r.PickupAddress, nullString(r.ContactPhone), nullString(r.Reason), r.Status,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return wrap("create ambulance request", err)
	}
	r.ID, err = res.LastInsertId()
	return wrap("create ambulance request", err)
}

func (s *Store) GetAmbulanceRequest(ctx context.Context, id int64) (*models.AmbulanceRequest, error) {
	r, err := scanAmbulance(s.q.QueryRowContext(ctx, selectAmbulance+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, wrap("get ambulance request", err)
}

// ListAmbulanceRequests returns the newest requests first; a non-nil customerID limits the
// result to that customer's requests.
func (s *Store) ListAmbulanceRequests(ctx context.Context, customerID *int64) ([]*models.AmbulanceRequest, error) {
	query := selectAmbulance + " ORDER BY created_at DESC, id DESC"
	var args []any
	if customerID != nil {
		query = selectAmbulance + " WHERE customer_id = ? ORDER BY created_at DESC, id DESC"
		args = append(args, *customerID)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list ambulance requests", err)
	}
	defer rows.Close()

	out := make([]*models.AmbulanceRequest, 0)
	for rows.Next() {
		r, err := scanAmbulance(rows)
		if err != nil {
			return nil, wrap("list ambulance requests", err)
		}
		out = append(out, r)
	}
	return out, wrap("list ambulance requests", rows.Err())
}

func (s *Store) SetAmbulanceStatus(ctx context.Context, id int64, status string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE ambulance_requests SET status = ?, updated_at = ? WHERE id = ?`, status, s.now(), id)
	if err != nil {
		return wrap("set ambulance status", err)
	}
	return affected("set ambulance status", res)
}
