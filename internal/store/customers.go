package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var customerColumns = []string{
	"id", "user_id", "date_of_birth", "gender", "blood_group", "address", "medical_conditions",
	"allergies", "medications", "insurance_provider", "insurance_number", "emergency_contact",
	"height_cm", "weight_kg", "created_at", "updated_at",
}

var selectCustomers = "SELECT " + columnList("c", customerColumns) +
	", u.full_name, u.email, u.phone FROM customers c JOIN users u ON u.id = c.user_id"

func scanCustomer(row rowScanner) (*models.Customer, error) {
	c := &models.Customer{}
	var (
		dob                                            sql.NullTime
		gender, bloodGroup, address, conditions        sql.NullString
		allergies, medications, insProvider, insNumber sql.NullString
		emergency, phone                               sql.NullString
		height, weight                                 sql.NullFloat64
	)
	err := row.Scan(&c.ID, &c.UserID, &dob, &gender, &bloodGroup, &address, &conditions,
		&allergies, &medications, &insProvider, &insNumber, &emergency,
		&height, &weight, &c.CreatedAt, &c.UpdatedAt,
		&c.FullName, &c.Email, &phone)
	if err != nil {
		return nil, err
	}
	c.DateOfBirth = timePtr(dob)
	c.Gender = gender.String
	c.BloodGroup = bloodGroup.String
	c.Address = address.String
	c.MedicalConditions = conditions.String
	c.Allergies = allergies.String
	c.Medications = medications.String
	c.InsuranceProvider = insProvider.String
	c.InsuranceNumber = insNumber.String
	c.EmergencyContact = emergency.String
	c.HeightCM = floatPtr(height)
	c.WeightKG = floatPtr(weight)
	c.Phone = phone.String
	return c, nil
}

// CreateCustomer inserts the medical profile of an existing customer user.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO customers (user_id, date_of_birth, gender, blood_group, address, medical_conditions,
		   allergies, medications, insurance_provider, insurance_number, emergency_contact,
		   height_cm, weight_kg, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, nullTime(c.DateOfBirth), nullString(c.Gender), nullString(c.BloodGroup),
		nullString(c.Address), nullString(c.MedicalConditions), nullString(c.Allergies),
		nullString(c.Medications), nullString(c.InsuranceProvider), nullString(c.InsuranceNumber),
		nullString(c.EmergencyContact), nullFloat(c.HeightCM), nullFloat(c.WeightKG),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return wrap("create customer", err)
	}
	c.ID, err = res.LastInsertId()
	return wrap("create customer", err)
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := scanCustomer(s.q.QueryRowContext(ctx, selectCustomers+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, wrap("get customer", err)
}

func (s *Store) GetCustomerByUser(ctx context.Context, userID int64) (*models.Customer, error) {
	c, err := scanCustomer(s.q.QueryRowContext(ctx, selectCustomers+" WHERE c.user_id = ?", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, wrap("get customer by user", err)
}

// ListCustomers returns every patient profile, newest registrations first.
func (s *Store) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	rows, err := s.q.QueryContext(ctx, selectCustomers+" ORDER BY c.created_at DESC, c.id DESC")
	if err != nil {
		return nil, wrap("list customers", err)
	}
	defer rows.Close()

	customers := make([]*models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, wrap("list customers", err)
		}
		customers = append(customers, c)
	}
	return customers, wrap("list customers", rows.Err())
}

// UpdateCustomer overwrites the demographic and medical fields of profile c.ID.
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	c.UpdatedAt = s.now()
	res, err := s.q.ExecContext(ctx,
		`UPDATE customers SET date_of_birth = ?, gender = ?, blood_group = ?, address = ?,
		   medical_conditions = ?, allergies = ?, medications = ?, insurance_provider = ?,
		   insurance_number = ?, emergency_contact = ?, height_cm = ?, weight_kg = ?, updated_at = ?
		 WHERE id = ?`,
		nullTime(c.DateOfBirth), nullString(c.Gender), nullString(c.BloodGroup), nullString(c.Address),
		nullString(c.MedicalConditions), nullString(c.Allergies), nullString(c.Medications),
		nullString(c.InsuranceProvider), nullString(c.InsuranceNumber), nullString(c.EmergencyContact),
		nullFloat(c.HeightCM), nullFloat(c.WeightKG), c.UpdatedAt, c.ID,
	)
	if err != nil {
		return wrap("update customer", err)
	}
	return affected("update customer", res)
}
