package registration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/clinic-api/internal/metrics"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

type recordingNotifier struct {
	mu   sync.Mutex
	regs []models.PendingRegistration
}

func (n *recordingNotifier) SendRegistrationDecisionSMS(reg *models.PendingRegistration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.regs = append(n.regs, *reg)
}

type fixture struct {
	store    *store.Store
	svc      *Service
	metrics  *metrics.Metrics
	notifier *recordingNotifier
	admin    *models.User
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { st.Close() })

	admin := &models.User{
		Username: "admin", Email: "admin@clinic.test", Password: "$2a$04$hash",
		FullName: "Admin", Role: models.RoleAdmin,
	}
	require.NoError(t, st.CreateUser(ctx, admin))

	m := metrics.New()
	n := &recordingNotifier{}
	svc := NewService(st, utils.NewPasswordHasher(bcrypt.MinCost),
		WithMetrics(m), WithNotifier(n), WithClock(func() time.Time { return fixedNow }))
	return &fixture{store: st, svc: svc, metrics: m, notifier: n, admin: admin}
}

func doctorSubmission() Submission {
	return Submission{
		Username:          "drjane",
		Email:             "  Jane@Clinic.Test ",
		Password:          "s3cret-pass",
		Role:              models.RoleDoctor,
		FullName:          "Jane Doe",
		Phone:             "+15550100",
		Specialization:    "Orthodontics",
		LicenseNumber:     "LIC-42",
		Qualification:     "DDS",
		YearsOfExperience: 7,
		ConsultationFee:   80,
		AvailableDays:     "Mon,Wed",
		AvailableHours:    "09:00-17:00",
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, reg.Status)
	assert.Equal(t, "jane@clinic.test", reg.Email)
	assert.NotEqual(t, "s3cret-pass", reg.PasswordHash)
	assert.True(t, utils.CheckPasswordHash("s3cret-pass", reg.PasswordHash))

	stored, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.PasswordHash, stored.PasswordHash)
	assert.Equal(t, "Orthodontics", stored.Specialization)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationsSubmitted.WithLabelValues("doctor")))
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Submission)
		want   error
	}{
		{"customer role", func(s *Submission) { s.Role = models.RoleCustomer }, ErrInvalidRole},
		{"admin role", func(s *Submission) { s.Role = models.RoleAdmin }, ErrInvalidRole},
		{"missing username", func(s *Submission) { s.Username = " " }, ErrInvalidInput},
		{"bad email", func(s *Submission) { s.Email = "not-an-email" }, ErrInvalidInput},
		{"display name email", func(s *Submission) { s.Email = "Jane <jane@clinic.test>" }, ErrInvalidInput},
		{"short password", func(s *Submission) { s.Password = "123" }, ErrInvalidInput},
		{"negative fee", func(s *Submission) { s.ConsultationFee = -1 }, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := doctorSubmission()
			tt.mutate(&sub)
			_, err := f.svc.Submit(ctx, sub)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	regs, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestSubmitDuplicateIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)

	// Same email while the first one is still pending.
	again := doctorSubmission()
	again.Username = "someoneelse"
	again.Phone = ""
	_, err = f.svc.Submit(ctx, again)
	assert.ErrorIs(t, err, store.ErrDuplicateIdentity)

	// Email of an existing user.
	clash := doctorSubmission()
	clash.Username = "other"
	clash.Email = "ADMIN@clinic.test"
	clash.Phone = ""
	_, err = f.svc.Submit(ctx, clash)
	assert.ErrorIs(t, err, store.ErrDuplicateIdentity)
}

func TestSubmitAllowedAfterRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)
	require.NoError(t, f.svc.Reject(ctx, reg.ID, f.admin.ID, "incomplete license"))

	_, err = f.svc.Submit(ctx, doctorSubmission())
	assert.NoError(t, err)
}

func TestApproveDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)

	userID, err := f.svc.Approve(ctx, reg.ID, f.admin.ID, "welcome")
	require.NoError(t, err)

	user, err := f.store.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, user.Role)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.Equal(t, reg.PasswordHash, user.Password, "stored hash must be copied, not re-hashed")
	assert.True(t, utils.CheckPasswordHash("s3cret-pass", user.Password))

	doc, err := f.store.GetDoctorByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "LIC-42", doc.LicenseNumber)
	assert.Equal(t, 80.0, doc.ConsultationFee)
	assert.Equal(t, 7, doc.YearsOfExperience)

	decided, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationApproved, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, f.admin.ID, *decided.ApprovedBy)
	assert.Equal(t, "welcome", decided.AdminNotes)
	assert.True(t, decided.UpdatedAt.Equal(fixedNow))

	require.Len(t, f.notifier.regs, 1)
	assert.Equal(t, models.RegistrationApproved, f.notifier.regs[0].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationDecisions.WithLabelValues("approved")))
}

func TestApproveStaffCreatesNoDoctorProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := doctorSubmission()
	sub.Role = models.RoleStaff
	sub.Department = "Front desk"
	reg, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)

	userID, err := f.svc.Approve(ctx, reg.ID, f.admin.ID, "")
	require.NoError(t, err)

	_, err = f.store.GetDoctorByUser(ctx, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	doctors, err := f.store.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Empty(t, doctors)
}

func TestApproveTwiceCreatesOneUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, reg.ID, f.admin.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, reg.ID, f.admin.ID, "")
	assert.ErrorIs(t, err, store.ErrAlreadyDecided)

	err = f.svc.Reject(ctx, reg.ID, f.admin.ID, "too late")
	assert.ErrorIs(t, err, store.ErrAlreadyDecided)

	doctors, err := f.store.ListUsers(ctx, models.RoleDoctor)
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
}

func TestConcurrentDecisionsFirstWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 6)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = f.svc.Approve(ctx, reg.ID, f.admin.ID, "")
			} else {
				errs[i] = f.svc.Reject(ctx, reg.ID, f.admin.ID, "no")
			}
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, store.ErrAlreadyDecided)
	}
	assert.Equal(t, 1, ok)

	decided, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	users, err := f.store.ListUsers(ctx, models.RoleDoctor)
	require.NoError(t, err)
	if decided.Status == models.RegistrationApproved {
		assert.Len(t, users, 1)
	} else {
		assert.Empty(t, users)
	}
}

func TestApproveUnknownRegistration(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), 404, f.admin.ID, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, f.svc.Reject(context.Background(), 404, f.admin.ID, "x"), store.ErrNotFound)
}

func TestApproveRequiresAdminReviewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	staff := &models.User{Username: "desk", Email: "desk@clinic.test", Password: "x", FullName: "Desk", Role: models.RoleStaff}
	require.NoError(t, f.store.CreateUser(ctx, staff))

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, reg.ID, staff.ID, "")
	assert.ErrorIs(t, err, ErrReviewerNotAdmin)
	_, err = f.svc.Approve(ctx, reg.ID, 999, "")
	assert.ErrorIs(t, err, ErrReviewerNotAdmin)

	still, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, still.Status)
}

func TestApproveRollsBackOnIdentityClash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)

	// A user with the same email appears between submission and approval.
	squatter := &models.User{Username: "squat", Email: "jane@clinic.test", Password: "x", FullName: "Squat", Role: models.RoleCustomer}
	require.NoError(t, f.store.CreateUser(ctx, squatter))

	_, err = f.svc.Approve(ctx, reg.ID, f.admin.ID, "")
	assert.ErrorIs(t, err, store.ErrDuplicateIdentity)

	still, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, still.Status)
	assert.Nil(t, still.ApprovedBy)

	doctors, err := f.store.ListUsers(ctx, models.RoleDoctor)
	require.NoError(t, err)
	assert.Empty(t, doctors)
	assert.Empty(t, f.notifier.regs)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Reject(ctx, reg.ID, f.admin.ID, ""), ErrNotesRequired)
	assert.ErrorIs(t, f.svc.Reject(ctx, reg.ID, f.admin.ID, "   "), ErrNotesRequired)

	require.NoError(t, f.svc.Reject(ctx, reg.ID, f.admin.ID, " license expired "))

	decided, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, decided.Status)
	assert.Equal(t, "license expired", decided.AdminNotes)

	users, err := f.store.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 1, "only the admin exists")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationDecisions.WithLabelValues("rejected")))
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, doctorSubmission())
	require.NoError(t, err)
	second := doctorSubmission()
	second.Username, second.Email, second.Phone = "bob", "bob@clinic.test", ""
	second.Role = models.RoleStaff
	_, err = f.svc.Submit(ctx, second)
	require.NoError(t, err)
	require.NoError(t, f.svc.Reject(ctx, first.ID, f.admin.ID, "no"))

	pending, err := f.svc.List(ctx, models.RegistrationPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].Username)

	all, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.List(ctx, "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
