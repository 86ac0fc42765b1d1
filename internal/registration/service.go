// Package registration moves doctor and staff signups through admin review.
//
// A submission is stored as a pending registration holding an already hashed password.
// Approval turns it into a user account (plus a doctor profile for doctors) in a single
// transaction; rejection only records the decision. Each registration is decided once.
package registration

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-api/internal/metrics"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidRole      = errors.New("role must be doctor or staff")
	ErrInvalidInput     = errors.New("invalid registration")
	ErrNotesRequired    = errors.New("notes are required when rejecting a registration")
	ErrReviewerNotAdmin = errors.New("reviewer must be an active admin")
)

// Notifier is told about every decision after it commits.
type Notifier interface {
	SendRegistrationDecisionSMS(reg *models.PendingRegistration)
}

// Submission is what an applicant sends. Password is plaintext.
type Submission struct {
	Username          string
	Email             string
	Password          string
	Role              string
	FullName          string
	Phone             string
	Specialization    string
	LicenseNumber     string
	Qualification     string
	YearsOfExperience int
	ConsultationFee   float64
	AvailableDays     string
	AvailableHours    string
	Department        string
	Position          string
}

type Service struct {
	store    *store.Store
	hasher   *utils.PasswordHasher
	notifier Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st *store.Store, hasher *utils.PasswordHasher, opts ...Option) *Service {
	s := &Service{
		store:  st,
		hasher: hasher,
		log:    zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalize(sub *Submission) {
	sub.Username = strings.TrimSpace(sub.Username)
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	sub.FullName = strings.TrimSpace(sub.FullName)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Role = strings.ToLower(strings.TrimSpace(sub.Role))
}

func validate(sub *Submission) error {
	if sub.Role != models.RoleDoctor && sub.Role != models.RoleStaff {
		return ErrInvalidRole
	}
	switch {
	case sub.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	case sub.FullName == "":
		return fmt.Errorf("%w: full name is required", ErrInvalidInput)
	case len(sub.Password) < 6:
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	case sub.YearsOfExperience < 0 || sub.ConsultationFee < 0:
		return fmt.Errorf("%w: experience and fee cannot be negative", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(sub.Email); err != nil || addr.Address != sub.Email {
		return fmt.Errorf("%w: email address is malformed", ErrInvalidInput)
	}
	return nil
}

// Submit validates and stores a new pending registration. The username, email and phone
// must not belong to an existing user, and username and email must not belong to another
// registration still awaiting review.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.PendingRegistration, error) {
	normalize(&sub)
	if err := validate(&sub); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(sub.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	reg := &models.PendingRegistration{
		Username:          sub.Username,
		Email:             sub.Email,
		PasswordHash:      hash,
		Role:              sub.Role,
		FullName:          sub.FullName,
		Phone:             sub.Phone,
		Specialization:    sub.Specialization,
		LicenseNumber:     sub.LicenseNumber,
		Qualification:     sub.Qualification,
		YearsOfExperience: sub.YearsOfExperience,
		ConsultationFee:   sub.ConsultationFee,
		AvailableDays:     sub.AvailableDays,
		AvailableHours:    sub.AvailableHours,
		Department:        sub.Department,
		Position:          sub.Position,
		CreatedAt:         s.now(),
	}

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		taken, err := tx.IdentityTaken(ctx, reg.Username, reg.Email, reg.Phone)
		if err != nil {
			return err
		}
		if !taken {
			taken, err = tx.RegistrationIdentityPending(ctx, reg.Username, reg.Email)
			if err != nil {
				return err
			}
		}
		if taken {
			return store.ErrDuplicateIdentity
		}
		return tx.CreatePendingRegistration(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubmission(reg.Role)
	s.log.Info().Int64("registration_id", reg.ID).Str("role", reg.Role).Msg("registration submitted")
	return reg, nil
}

// Approve creates the user account for a pending registration and returns its id. The
// stored hash is copied onto the user unchanged. Everything happens in one transaction:
// on any failure no user, doctor profile or status change is left behind.
func (s *Service) Approve(ctx context.Context, pendingID, reviewerID int64, notes string) (int64, error) {
	var (
		reg  *models.PendingRegistration
		user *models.User
	)
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		reg, err = s.pendingForReview(ctx, tx, pendingID, reviewerID)
		if err != nil {
			return err
		}

		taken, err := tx.IdentityTaken(ctx, reg.Username, reg.Email, reg.Phone)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrDuplicateIdentity
		}

		at := s.now()
		if err := tx.DecidePendingRegistration(ctx, reg.ID, models.RegistrationApproved, reviewerID, notes, at); err != nil {
			return err
		}

		user = &models.User{
			Username:  reg.Username,
			Email:     reg.Email,
			Password:  reg.PasswordHash,
			FullName:  reg.FullName,
			Phone:     reg.Phone,
			Role:      reg.Role,
			Status:    models.StatusActive,
			CreatedAt: at,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		if reg.Role == models.RoleDoctor {
			doc := &models.Doctor{
				UserID:            user.ID,
				Specialization:    reg.Specialization,
				LicenseNumber:     reg.LicenseNumber,
				Qualification:     reg.Qualification,
				YearsOfExperience: reg.YearsOfExperience,
				ConsultationFee:   reg.ConsultationFee,
				AvailableDays:     reg.AvailableDays,
				AvailableHours:    reg.AvailableHours,
				CreatedAt:         at,
			}
			if err := tx.CreateDoctor(ctx, doc); err != nil {
				return err
			}
		}

		reg.Status = models.RegistrationApproved
		reg.ApprovedBy = &reviewerID
		reg.AdminNotes = notes
		reg.UpdatedAt = at
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.decided(reg, reviewerID)
	return user.ID, nil
}

// Reject records a terminal rejection. Notes explaining the reason are mandatory.
func (s *Service) Reject(ctx context.Context, pendingID, reviewerID int64, notes string) error {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ErrNotesRequired
	}

	var reg *models.PendingRegistration
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		reg, err = s.pendingForReview(ctx, tx, pendingID, reviewerID)
		if err != nil {
			return err
		}
		at := s.now()
		if err := tx.DecidePendingRegistration(ctx, reg.ID, models.RegistrationRejected, reviewerID, notes, at); err != nil {
			return err
		}
		reg.Status = models.RegistrationRejected
		reg.ApprovedBy = &reviewerID
		reg.AdminNotes = notes
		reg.UpdatedAt = at
		return nil
	})
	if err != nil {
		return err
	}

	s.decided(reg, reviewerID)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.PendingRegistration, error) {
	return s.store.GetPendingRegistration(ctx, id)
}

// List returns registrations oldest first. An empty status lists all of them.
func (s *Service) List(ctx context.Context, status string) ([]*models.PendingRegistration, error) {
	switch status {
	case "", models.RegistrationPending, models.RegistrationApproved, models.RegistrationRejected:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.store.ListPendingRegistrations(ctx, status)
}

// pendingForReview loads the registration and checks that it can still be decided by
// reviewerID.
func (s *Service) pendingForReview(ctx context.Context, tx *store.Store, pendingID, reviewerID int64) (*models.PendingRegistration, error) {
	reg, err := tx.GetPendingRegistration(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationPending {
		return nil, store.ErrAlreadyDecided
	}

	reviewer, err := tx.GetUser(ctx, reviewerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReviewerNotAdmin
	}
	if err != nil {
		return nil, err
	}
	if !reviewer.IsAdmin() || reviewer.Status != models.StatusActive {
		return nil, ErrReviewerNotAdmin
	}
	return reg, nil
}

func (s *Service) decided(reg *models.PendingRegistration, reviewerID int64) {
	s.metrics.RecordDecision(reg.Status)
	s.log.Info().
		Int64("registration_id", reg.ID).
		Int64("reviewer_id", reviewerID).
		Str("role", reg.Role).
		Str("decision", reg.Status).
		Msg("registration decided")
	if s.notifier != nil {
		s.notifier.SendRegistrationDecisionSMS(reg)
	}
}
