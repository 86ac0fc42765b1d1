package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/clinic-api/internal/metrics"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/registration"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	t      *testing.T
	store  *store.Store
	router *gin.Engine
	tokens *utils.Tokens

	admin    *models.User
	doctor   *models.User
	staff    *models.User
	customer *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { st.Close() })

	hasher := utils.NewPasswordHasher(bcrypt.MinCost)
	m := metrics.New()
	sms := services.NewNotificationService("", "", zerolog.Nop(), m)
	reg := registration.NewService(st, hasher, registration.WithNotifier(sms), registration.WithMetrics(m))

	h := NewHandler(st, reg, sms, hasher)
	h.Now = func() time.Time { return testNow }

	tokens := utils.NewTokens("handler-test-secret", time.Hour)
	env := &testEnv{
		t:      t,
		store:  st,
		tokens: tokens,
		router: NewRouter(h, RouterOptions{Tokens: tokens, Metrics: m, Logger: zerolog.Nop()}),
	}
	env.admin = env.createUser(models.RoleAdmin, "admin")
	env.doctor = env.createUser(models.RoleDoctor, "doc")
	env.staff = env.createUser(models.RoleStaff, "desk")
	env.customer = env.createUser(models.RoleCustomer, "pat")
	require.NoError(t, st.CreateDoctor(ctx, &models.Doctor{UserID: env.doctor.ID, Specialization: "General"}))
	return env
}

func (e *testEnv) createUser(role, name string) *models.User {
	e.t.Helper()
	u := &models.User{
		Username: name,
		Email:    name + "@clinic.test",
		Password: "$2a$04$hash",
		FullName: "User " + name,
		Role:     role,
	}
	require.NoError(e.t, e.store.CreateUser(context.Background(), u))
	if role == models.RoleCustomer {
		require.NoError(e.t, e.store.CreateCustomer(context.Background(), &models.Customer{UserID: u.ID}))
	}
	return u
}

func (e *testEnv) token(u *models.User) string {
	e.t.Helper()
	tok, err := e.tokens.GenerateJWT(u.ID, u.Role)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path string, as *models.User, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(as))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetCustomersRoleGate(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/customers", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/customers", env.customer, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/customers", env.staff, nil).Code)

	for _, u := range []*models.User{env.doctor, env.admin} {
		w := env.do(http.MethodGet, "/api/customers", u, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[struct {
			Customers []models.Customer `json:"customers"`
		}](t, w)
		require.Len(t, body.Customers, 1)
		assert.Equal(t, env.customer.ID, body.Customers[0].UserID)
	}
}

func TestGetCustomersFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	smith := env.createUser(models.RoleCustomer, "smith")
	profile, err := env.store.GetCustomerByUser(ctx, smith.ID)
	require.NoError(t, err)
	dob := testNow.AddDate(-40, 0, 0)
	profile.DateOfBirth = &dob
	profile.Gender = "female"
	profile.BloodGroup = "O+"
	profile.MedicalConditions = "Asthma"
	require.NoError(t, env.store.UpdateCustomer(ctx, profile))

	list := func(query string) []models.Customer {
		w := env.do(http.MethodGet, "/api/customers?"+query, env.doctor, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[struct {
			Customers []models.Customer `json:"customers"`
		}](t, w).Customers
	}

	assert.Len(t, list("search=SMITH"), 1)
	assert.Len(t, list("gender=female&bloodGroup=O%2B&ageGroup=31-50&hasConditions=yes"), 1)
	assert.Empty(t, list("gender=female&ageGroup=19-30"))
	assert.Len(t, list("hasConditions=no"), 1)
	assert.Len(t, list("gender=all"), 2)

	w := env.do(http.MethodGet, "/api/customers?ageGroup=elderly", env.doctor, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerStatsAndExport(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/customers/stats?gender=male", env.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":1,"byGender":{"unspecified":1},"newThisMonth":0}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/customers/export", env.doctor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "patients-20240615.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/customers/export", env.customer, nil).Code)
}

func TestCustomerProfileAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	own, err := env.store.GetCustomerByUser(ctx, env.customer.ID)
	require.NoError(t, err)
	other := env.createUser(models.RoleCustomer, "other")

	path := fmt.Sprintf("/api/customers/%d", own.ID)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, env.customer, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, env.staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, path, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/customers/9999", env.admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/customers/abc", env.admin, nil).Code)

	w := env.do(http.MethodPut, path, env.customer, map[string]any{
		"dateOfBirth": "1990-02-03",
		"allergies":   "Penicillin",
		"heightCm":    172.5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Customer](t, w)
	assert.Equal(t, "Penicillin", updated.Allergies)
	require.NotNil(t, updated.DateOfBirth)
	assert.Equal(t, "1990-02-03", updated.DateOfBirth.Format("2006-01-02"))

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, path, env.doctor, map[string]any{"allergies": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, path, env.customer, map[string]any{"dateOfBirth": "2030-01-01"}).Code)
}

func TestGetDoctors(t *testing.T) {
	env := newTestEnv(t)
	for _, u := range []*models.User{env.customer, env.staff, env.doctor, env.admin} {
		w := env.do(http.MethodGet, "/api/doctors", u, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[struct {
			Doctors []models.Doctor `json:"doctors"`
		}](t, w)
		require.Len(t, body.Doctors, 1)
		assert.Equal(t, "General", body.Doctors[0].Specialization)
	}
}

func TestRegisterCustomer(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/register", nil, map[string]any{
		"username":    "newbie",
		"fullName":    "New Patient",
		"email":       "New@Clinic.test",
		"password":    "secret123",
		"phone":       "+15559999",
		"dateOfBirth": "2001-09-09",
		"gender":      "male",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret123")
	assert.NotContains(t, w.Body.String(), "password")

	u, err := env.store.GetUserByEmail(context.Background(), "new@clinic.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.True(t, utils.CheckPasswordHash("secret123", u.Password))
	profile, err := env.store.GetCustomerByUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "male", profile.Gender)

	w = env.do(http.MethodPost, "/auth/register", nil, map[string]any{
		"username": "newbie2", "fullName": "Dup", "email": "new@clinic.test", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/auth/register", nil, map[string]any{"email": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationWorkflow(t *testing.T) {
	env := newTestEnv(t)

	submit := map[string]any{
		"username":        "drnew",
		"email":           "drnew@clinic.test",
		"password":        "doctorpass",
		"role":            "doctor",
		"fullName":        "Dr New",
		"specialization":  "Pediatrics",
		"licenseNumber":   "LIC-1",
		"consultationFee": 45.5,
	}
	w := env.do(http.MethodPost, "/auth/registrations", nil, submit)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[struct {
		Registration models.PendingRegistration `json:"registration"`
	}](t, w)
	regID := body.Registration.ID
	assert.Equal(t, models.RegistrationPending, body.Registration.Status)
	assert.NotContains(t, w.Body.String(), "doctorpass")

	// Same email while pending.
	submit["username"] = "drnew2"
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/auth/registrations", nil, submit).Code)

	bad := map[string]any{"username": "x", "email": "x@clinic.test", "password": "123456", "role": "customer", "fullName": "X"}
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/auth/registrations", nil, bad).Code)

	w = env.do(http.MethodGet, "/api/registrations?status=pending", env.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Registrations []models.PendingRegistration `json:"registrations"`
	}](t, w)
	require.Len(t, list.Registrations, 1)

	approvePath := fmt.Sprintf("/api/registrations/%d/approve", regID)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, approvePath, env.staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, approvePath, env.doctor, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/registrations/999/approve", env.admin, nil).Code)

	w = env.do(http.MethodPost, approvePath, env.admin, map[string]any{"notes": "verified"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decode[struct {
		UserID int64 `json:"userId"`
	}](t, w)
	assert.NotZero(t, approved.UserID)

	w = env.do(http.MethodPost, approvePath, env.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	rejectPath := fmt.Sprintf("/api/registrations/%d/reject", regID)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, rejectPath, env.admin, map[string]any{"notes": "late"}).Code)

	w = env.do(http.MethodGet, "/api/doctors", env.customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	doctors := decode[struct {
		Doctors []models.Doctor `json:"doctors"`
	}](t, w)
	assert.Len(t, doctors.Doctors, 2)
}

func TestRejectRequiresNotes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/registrations", nil, map[string]any{
		"username": "stf", "email": "stf@clinic.test", "password": "staffpass",
		"role": "staff", "fullName": "Staff Member", "department": "Billing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	regID := decode[struct {
		Registration models.PendingRegistration `json:"registration"`
	}](t, w).Registration.ID

	path := fmt.Sprintf("/api/registrations/%d/reject", regID)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, path, env.admin, map[string]any{"notes": "  "}).Code)

	w = env.do(http.MethodPost, path, env.admin, map[string]any{"notes": "Position filled"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/registrations/%d", regID), env.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reg := decode[models.PendingRegistration](t, w)
	assert.Equal(t, models.RegistrationRejected, reg.Status)
	assert.Equal(t, "Position filled", reg.AdminNotes)
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/users?role=doctor", env.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Users []models.User `json:"users"`
	}](t, w).Users, 1)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/users", env.staff, nil).Code)

	statusPath := fmt.Sprintf("/api/users/%d/status", env.doctor.ID)
	w = env.do(http.MethodPatch, statusPath, env.admin, map[string]any{"status": "suspended"})
	require.Equal(t, http.StatusOK, w.Code)

	// A suspended account can no longer use its token.
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/doctors", env.doctor, nil).Code)

	adminPath := fmt.Sprintf("/api/users/%d/status", env.admin.ID)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPatch, adminPath, env.admin, map[string]any{"status": "suspended"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, statusPath, env.admin, map[string]any{"status": "banned"}).Code)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", env.admin.ID), env.admin, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", env.customer.ID), env.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", env.customer.ID), env.admin, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/me", env.customer, nil).Code)
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/me", env.doctor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"specialization":"General"`)

	w = env.do(http.MethodPut, "/api/me", env.customer, map[string]any{"fullName": "Pat Renamed", "phone": "+1555"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u, err := env.store.GetUser(context.Background(), env.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat Renamed", u.FullName)

	// Phone numbers are unique across accounts.
	w = env.do(http.MethodPut, "/api/me", env.staff, map[string]any{"phone": "+1555"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/me", env.staff, map[string]any{}).Code)
}

func TestAppointments(t *testing.T) {
	env := newTestEnv(t)
	start := testNow.Add(48 * time.Hour)

	w := env.do(http.MethodPost, "/api/appointments", env.customer, map[string]any{
		"doctorId":  env.doctor.ID,
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(30 * time.Minute).Format(time.RFC3339),
		"service":   "Checkup",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	apt := decode[models.Appointment](t, w)
	assert.Equal(t, env.customer.ID, apt.PatientID)
	assert.Equal(t, models.AppointmentScheduled, apt.Status)

	w = env.do(http.MethodPost, "/api/appointments", env.doctor, map[string]any{
		"startTime": start.Format(time.RFC3339), "endTime": start.Add(time.Hour).Format(time.RFC3339), "service": "x",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/appointments", env.customer, map[string]any{
		"startTime": start.Format(time.RFC3339), "endTime": start.Add(-time.Hour).Format(time.RFC3339), "service": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	other := env.createUser(models.RoleCustomer, "other")
	w = env.do(http.MethodGet, "/api/appointments", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(http.MethodGet, "/api/appointments?startDate="+start.Format("2006-01-02")+"&endDate="+start.Format("2006-01-02"), env.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Appointment](t, w), 1)

	path := fmt.Sprintf("/api/appointments/%d", apt.ID)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, path, env.customer, map[string]any{"service": "y"}).Code)
	w = env.do(http.MethodPut, path, env.doctor, map[string]any{"service": "Cleaning", "status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cancelPath := path + "/cancel"
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPatch, cancelPath, other, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPatch, cancelPath, env.customer, nil).Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPatch, cancelPath, env.staff, nil).Code)
}

func TestAmbulanceRequests(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/ambulance-requests", env.customer, map[string]any{"pickupAddress": "1 Main St", "reason": "fall"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decode[models.AmbulanceRequest](t, w)
	assert.Equal(t, models.AmbulancePending, r.Status)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/ambulance-requests", env.staff, map[string]any{"pickupAddress": "x"}).Code)

	path := fmt.Sprintf("/api/ambulance-requests/%d/status", r.ID)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPatch, path, env.customer, map[string]any{"status": "dispatched"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, path, env.staff, map[string]any{"status": "flying"}).Code)
	w = env.do(http.MethodPatch, path, env.staff, map[string]any{"status": "dispatched"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AmbulanceDispatched, decode[models.AmbulanceRequest](t, w).Status)

	w = env.do(http.MethodGet, "/api/ambulance-requests", env.customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Requests []models.AmbulanceRequest `json:"requests"`
	}](t, w).Requests, 1)
}

func TestComplaints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/complaints", env.customer, map[string]any{"subject": "Wait time", "message": "Too long"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	complaint := decode[models.Complaint](t, w)
	assert.Equal(t, models.ComplaintOpen, complaint.Status)

	feedbackPath := fmt.Sprintf("/api/complaints/%d/feedback", complaint.ID)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, feedbackPath, env.customer, map[string]any{"message": "x"}).Code)
	w = env.do(http.MethodPost, feedbackPath, env.staff, map[string]any{"message": "Sorry about that", "status": "resolved"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodGet, feedbackPath, env.customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Complaint models.Complaint           `json:"complaint"`
		Feedback  []models.ComplaintFeedback `json:"feedback"`
	}](t, w)
	assert.Equal(t, models.ComplaintResolved, body.Complaint.Status)
	require.Len(t, body.Feedback, 1)
	assert.Equal(t, env.staff.ID, body.Feedback[0].ResponderID)

	other := env.createUser(models.RoleCustomer, "other")
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, feedbackPath, other, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/complaints", env.doctor, nil).Code)

	w = env.do(http.MethodGet, "/api/complaints", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"complaints":[]}`, w.Body.String())
}

func TestPersistenceFailureIsGeneric500(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	w := env.do(http.MethodGet, "/api/customers", env.admin, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "sql")

	w = env.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
