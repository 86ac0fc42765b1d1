package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var userColumns = []string{
	"id", "username", "email", "password", "full_name", "phone", "role", "status", "created_at", "updated_at",
}

var selectUsers = "SELECT " + columnList("", userColumns) + " FROM users"

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var phone sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FullName, &phone,
		&u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	return u, nil
}

// CreateUser inserts u and sets its ID. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	now := s.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO users (username, email, password, full_name, phone, role, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.Password, u.FullName, nullString(u.Phone),
		u.Role, u.Status, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return wrap("create user", err)
	}
	u.ID, err = res.LastInsertId()
	return wrap("create user", err)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, selectUsers+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, wrap("get user", err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, selectUsers+" WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, wrap("get user by email", err)
}

// ListUsers returns all users, or only those with the given role when role is non-empty.
func (s *Store) ListUsers(ctx context.Context, role string) ([]*models.User, error) {
	query := selectUsers + " ORDER BY created_at DESC, id DESC"
	var args []any
	if role != "" {
		query = selectUsers + " WHERE role = ? ORDER BY created_at DESC, id DESC"
		args = append(args, role)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("list users", err)
		}
		users = append(users, u)
	}
	return users, wrap("list users", rows.Err())
}

// IdentityTaken reports whether any user already holds the username, the email or a
// non-empty phone number.
func (s *Store) IdentityTaken(ctx context.Context, username, email, phone string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users
		 WHERE username = ? OR email = ? OR (phone IS NOT NULL AND phone = ?)`,
		username, email, nullString(phone),
	).Scan(&n)
	if err != nil {
		return false, wrap("identity check", err)
	}
	return n > 0, nil
}

// UpdateUserProfile changes the display name and phone of a user.
func (s *Store) UpdateUserProfile(ctx context.Context, id int64, fullName, phone string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET full_name = ?, phone = ?, updated_at = ? WHERE id = ?`,
		fullName, nullString(phone), s.now(), id,
	)
	if err != nil {
		return wrap("update user", err)
	}
	return affected("update user", res)
}

// SetUserStatus suspends or reactivates a non-admin user.
func (s *Store) SetUserStatus(ctx context.Context, id int64, status string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if u.IsAdmin() {
			return ErrImmutableAccount
		}
		res, err := tx.q.ExecContext(ctx,
			`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`, status, tx.now(), id)
		if err != nil {
			return wrap("set user status", err)
		}
		return affected("set user status", res)
	})
}

// DeleteUser removes a non-admin user together with every row that depends on it.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.WithTx(ctx, func(tx *Store) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if u.IsAdmin() {
			return ErrImmutableAccount
		}
		dependents := []string{
			`DELETE FROM customers WHERE user_id = ?`,
			`DELETE FROM doctors WHERE user_id = ?`,
			`DELETE FROM appointments WHERE patient_id = ?`,
			`DELETE FROM ambulance_requests WHERE customer_id = ?`,
			`DELETE FROM feedback_complaints WHERE customer_id = ?`,
		}
		for _, stmt := range dependents {
			if _, err := tx.q.ExecContext(ctx, stmt, id); err != nil {
				return wrap("delete user dependents", err)
			}
		}
		res, err := tx.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return wrap("delete user", err)
		}
		return affected("delete user", res)
	})
}
