package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/api"
	"github.com/hackgods/clinic-appointments/internal/audit"
	"github.com/hackgods/clinic-appointments/internal/auth"
	"github.com/hackgods/clinic-appointments/internal/auth/authtest"
	"github.com/hackgods/clinic-appointments/internal/clinic"
	"github.com/hackgods/clinic-appointments/internal/clinic/clinictest"
)

const clientOrigin = "http://localhost:5173"

type fixture struct {
	handler  http.Handler
	repo     *clinictest.Memory
	tokens   *auth.TokenIssuer
	sessions *authtest.Sessions
	provider *authtest.Provider
}

func newFixture(t *testing.T, limiter *api.RateLimiter) *fixture {
	t.Helper()
	repo := clinictest.NewMemory()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	sessions := authtest.NewSessions()
	provider := &authtest.Provider{Profile: auth.Profile{
		ID:         "google-42",
		Email:      "House@PPTH.org",
		GivenName:  "Gregory",
		FamilyName: "House",
	}}
	rec := audit.NopRecorder{}

	handler := api.NewRouter(api.RouterConfig{
		Users:        clinic.NewUserService(repo, rec),
		Doctors:      clinic.NewDoctorService(repo, rec),
		Patients:     clinic.NewPatientService(repo, rec),
		Appointments: clinic.NewAppointmentService(repo, rec),
		Gate:         auth.NewGate(tokens, sessions, repo),
		Tokens:       tokens,
		Linker:       auth.NewLinker(repo, rec, []string{"cuddy@ppth.org"}),
		Provider:     provider,
		Sessions:     sessions,
		Limiter:      limiter,
		Logger:       zerolog.Nop(),
		ClientOrigin: clientOrigin,
		SessionTTL:   time.Hour,
		Env:          "test",
		Version:      "test",
	})
	return &fixture{handler: handler, repo: repo, tokens: tokens, sessions: sessions, provider: provider}
}

type option func(*http.Request)

func bearer(token string) option {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) option {
	return func(r *http.Request) { r.AddCookie(c) }
}

func (f *fixture) do(t *testing.T, method, path string, body any, opts ...option) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(r)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

// staffToken stores an admin and returns a bearer token for it.
func (f *fixture) staffToken(t *testing.T) string {
	t.Helper()
	u := &clinic.User{FirstName: "Lisa", LastName: "Cuddy", Email: "cuddy@ppth.org", Role: clinic.RoleAdmin}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))
	token, err := f.tokens.Issue(auth.IdentityOf(u))
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var (
	doctorBody      = map[string]any{"firstName": "James", "lastName": "Wilson", "email": "wilson@ppth.org", "specialization": "Oncology"}
	patientBody     = map[string]any{"firstName": "Jane", "lastName": "Doe", "email": "jane@x.com", "dateOfBirth": "1990-01-01"}
	userUpdateBody  = map[string]any{"phone": "555-0100"}
	patientPutBody  = map[string]any{"phone": "555-0100"}
	appointmentBody = func(doctor, patient string) map[string]any {
		return map[string]any{"doctor": doctor, "patient": patient, "date": "2024-06-01", "time": "14:00"}
	}
)

func TestProtectedRoutesRequireAuth(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{"/api/users", "/api/doctors", "/api/patients", "/api/appointments"} {
		w := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Unauthorized", decode[api.ErrorResponse](t, w).Error)
	}
	assert.Zero(t, f.repo.Calls.Load())
}

func TestMalformedIDNeverReachesStore(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)
	before := f.repo.Calls.Load()

	bodies := map[string]any{
		"users":        userUpdateBody,
		"doctors":      doctorBody,
		"patients":     patientPutBody,
		"appointments": appointmentBody(primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()),
	}
	for kind, body := range bodies {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			w := f.do(t, method, "/api/"+kind+"/not-an-id", body, bearer(token))
			assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s", method, kind)
			assert.Contains(t, decode[api.ErrorResponse](t, w).Error, "ID format")
		}
	}
	for _, path := range []string{"/api/appointments/doctor/123", "/api/appointments/patient/xyz"} {
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, path, nil, bearer(token)).Code, path)
	}

	assert.Equal(t, before, f.repo.Calls.Load(), "no store access for malformed ids")
}

func TestNonexistentIDIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)

	cases := map[string]struct {
		body any
		msg  string
	}{
		"users":        {userUpdateBody, "User not found."},
		"doctors":      {doctorBody, "Doctor not found."},
		"patients":     {patientPutBody, "Patient not found."},
		"appointments": {appointmentBody(primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()), "Appointment not found."},
	}
	for kind, tc := range cases {
		path := "/api/" + kind + "/" + primitive.NewObjectID().Hex()
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			w := f.do(t, method, path, tc.body, bearer(token))
			assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", method, kind)
			assert.Equal(t, tc.msg, decode[api.ErrorResponse](t, w).Error)
		}
	}
}

func TestDuplicateSignupRejected(t *testing.T) {
	f := newFixture(t, nil)
	body := map[string]any{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "password": "engine"}

	w := f.do(t, http.MethodPost, "/auth/signup", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body["email"] = "  ADA@example.com"
	w = f.do(t, http.MethodPost, "/auth/signup", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode[api.ErrorResponse](t, w).Error)

	users, err := f.repo.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSignupThenLogin(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"firstName": "Ada", "lastName": "Lovelace", "email": "Ada@Example.COM", "password": "engine", "role": "patient",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	signup, err := f.tokens.Parse(decode[api.TokenResponse](t, w).Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", signup.Email)
	assert.Equal(t, "patient", signup.Role)

	w = f.do(t, http.MethodPost, "/auth/login", map[string]any{"email": " ADA@example.com ", "password": "engine"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login, err := f.tokens.Parse(decode[api.TokenResponse](t, w).Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", login.Email)
	assert.Equal(t, signup.UserID, login.UserID)

	users, err := f.repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.NotNil(t, users[0].LastLogin)

	w = f.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "nobody@example.com", "password": "engine"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/auth/signup", map[string]any{"email": "nope", "role": "superuser"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var fields []string
	for _, fe := range decode[api.ValidationResponse](t, w).Errors {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"firstName", "lastName", "email", "password", "role"}, fields)
}

func TestSignupRejectsEmptyRole(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "password": "engine", "role": "",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	errs := decode[api.ValidationResponse](t, w).Errors
	require.Len(t, errs, 1)
	assert.Equal(t, "role", errs[0].Field)
}

func TestOverlongPasswordRejected(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)
	long := strings.Repeat("p", 80)

	users, err := f.repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	staffID := users[0].ID.Hex()

	requests := []struct {
		method, path string
		body         map[string]any
		opts         []option
	}{
		{http.MethodPost, "/auth/signup", map[string]any{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "password": long}, nil},
		{http.MethodPost, "/api/users", map[string]any{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "password": long}, []option{bearer(token)}},
		{http.MethodPut, "/api/users/" + staffID, map[string]any{"password": long}, []option{bearer(token)}},
	}
	for _, req := range requests {
		w := f.do(t, req.method, req.path, req.body, req.opts...)
		require.Equal(t, http.StatusBadRequest, w.Code, "%s %s: %s", req.method, req.path, w.Body.String())
		errs := decode[api.ValidationResponse](t, w).Errors
		require.Len(t, errs, 1)
		assert.Equal(t, "password", errs[0].Field)
		assert.Equal(t, "Password must be at most 72 bytes", errs[0].Message)
	}

	users, err = f.repo.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestOversizedBodyRejected(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/auth/signup", map[string]any{"firstName": strings.Repeat("a", 1<<20)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request body too large", decode[api.ErrorResponse](t, w).Error)
}

func TestExpiredTokenIgnoresValidSession(t *testing.T) {
	f := newFixture(t, nil)
	u := &clinic.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))

	sid, err := f.sessions.Create(context.Background(), u.ID.Hex())
	require.NoError(t, err)
	session := withCookie(&http.Cookie{Name: auth.SessionCookie, Value: sid})

	expired, err := auth.NewTokenIssuer("test-secret", -time.Minute).Issue(auth.IdentityOf(u))
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/auth/status", nil, bearer(expired), session)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[api.StatusResponse](t, w)
	assert.False(t, status.Authenticated)
	assert.Nil(t, status.User)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/doctors", nil, bearer(expired), session).Code)

	w = f.do(t, http.MethodGet, "/auth/status", nil, session)
	status = decode[api.StatusResponse](t, w)
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, "ada@example.com", status.User.Email)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/doctors", nil, session).Code)
}

func TestAppointmentRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)

	w := f.do(t, http.MethodPost, "/api/doctors", doctorBody, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doctor := decode[clinic.Doctor](t, w)

	w = f.do(t, http.MethodPost, "/api/patients", patientBody, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	patient := decode[clinic.Patient](t, w)

	w = f.do(t, http.MethodPost, "/api/appointments", appointmentBody(doctor.ID.Hex(), patient.ID.Hex()), bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[clinic.Appointment](t, w)
	assert.Equal(t, clinic.StatusPending, created.Status)

	w = f.do(t, http.MethodGet, "/api/appointments/"+created.ID.Hex(), nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[clinic.AppointmentDetail](t, w)
	require.NotNil(t, got.Doctor)
	require.NotNil(t, got.Patient)
	assert.Equal(t, doctor.ID, got.Doctor.ID)
	assert.Equal(t, "wilson@ppth.org", got.Doctor.Email)
	assert.Equal(t, "Oncology", got.Doctor.Specialization)
	assert.Equal(t, patient.ID, got.Patient.ID)
	assert.Equal(t, "1990-01-01", got.Patient.DateOfBirth)
	assert.Equal(t, "2024-06-01", got.Date)
	assert.Equal(t, "14:00", got.Time)

	w = f.do(t, http.MethodGet, "/api/appointments/doctor/"+doctor.ID.Hex(), nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]clinic.Appointment](t, w), 1)

	w = f.do(t, http.MethodGet, "/api/appointments/patient/"+primitive.NewObjectID().Hex(), nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	upd := appointmentBody(doctor.ID.Hex(), patient.ID.Hex())
	upd["status"] = "completed"
	w = f.do(t, http.MethodPut, "/api/appointments/"+created.ID.Hex(), upd, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, clinic.StatusCompleted, decode[clinic.Appointment](t, w).Status)
}

func TestCreatePatientJane(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)

	w := f.do(t, http.MethodPost, "/api/patients", patientBody, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[clinic.Patient](t, w)
	assert.False(t, created.ID.IsZero())

	w = f.do(t, http.MethodGet, "/api/patients/"+created.ID.Hex(), nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[clinic.Patient](t, w)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "jane@x.com", got.Email)
	assert.Equal(t, "1990-01-01", got.DateOfBirth)
}

func TestBogusAppointmentStatusRejected(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)

	for _, status := range []string{"bogus", ""} {
		body := appointmentBody(primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
		body["status"] = status
		w := f.do(t, http.MethodPost, "/api/appointments", body, bearer(token))
		require.Equal(t, http.StatusBadRequest, w.Code, "status %q", status)

		errs := decode[api.ValidationResponse](t, w).Errors
		require.Len(t, errs, 1)
		assert.Equal(t, "status", errs[0].Field)
	}

	all, err := f.repo.ListAppointments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteConfirms(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)

	w := f.do(t, http.MethodPost, "/api/doctors", doctorBody, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[clinic.Doctor](t, w).ID.Hex()

	w = f.do(t, http.MethodDelete, "/api/doctors/"+id, nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Doctor "+id+" deleted.", decode[api.MessageResponse](t, w).Message)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/doctors/"+id, nil, bearer(token)).Code)
}

func TestStoreFailures(t *testing.T) {
	f := newFixture(t, nil)
	token := f.staffToken(t)
	f.repo.Fail = clinictest.ErrStoreDown

	w := f.do(t, http.MethodGet, "/api/doctors", nil, bearer(token))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An error occured while fetching all doctors.", decode[api.ErrorResponse](t, w).Error)

	w = f.do(t, http.MethodGet, "/api/patients/"+primitive.NewObjectID().Hex(), nil, bearer(token))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An error occured while fetching the patient.", decode[api.ErrorResponse](t, w).Error)

	w = f.do(t, http.MethodPost, "/api/doctors", doctorBody, bearer(token))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, w).Error, clinictest.ErrStoreDown.Error())
}

func TestGoogleLoginFlow(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/auth/google", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := cookieNamed(w, "clinic.oauth_state")
	require.NotNil(t, state)
	assert.Equal(t, state.Value, loc.Query().Get("state"))

	w = f.do(t, http.MethodGet, "/auth/google/callback?code=good&state="+state.Value, nil, withCookie(state))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "GOOGLE_AUTH_SUCCESS")
	assert.Contains(t, w.Body.String(), clientOrigin)

	sid := cookieNamed(w, auth.SessionCookie)
	require.NotNil(t, sid)
	assert.True(t, sid.HttpOnly)
	assert.Equal(t, 1, f.sessions.Len())

	w = f.do(t, http.MethodGet, "/auth/status", nil, withCookie(sid))
	status := decode[api.StatusResponse](t, w)
	require.True(t, status.Authenticated)
	assert.Equal(t, "house@ppth.org", status.User.Email)
	assert.Equal(t, "doctor", status.User.Role)

	w = f.do(t, http.MethodGet, "/logout", nil, withCookie(sid))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Zero(t, f.sessions.Len())
	cleared := cookieNamed(w, auth.SessionCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	assert.False(t, decode[api.StatusResponse](t, f.do(t, http.MethodGet, "/auth/status", nil, withCookie(sid))).Authenticated)
}

func TestGoogleCallbackFailures(t *testing.T) {
	f := newFixture(t, nil)
	state := &http.Cookie{Name: "clinic.oauth_state", Value: "s1"}

	w := f.do(t, http.MethodGet, "/auth/google/callback?code=good&state=other", nil, withCookie(state))
	assert.Equal(t, http.StatusFound, w.Code, "state mismatch")

	w = f.do(t, http.MethodGet, "/auth/google/callback?code=bad&state=s1", nil, withCookie(state))
	assert.Equal(t, http.StatusFound, w.Code, "exchange failure")

	f.provider.Profile.FamilyName = ""
	w = f.do(t, http.MethodGet, "/auth/google/callback?code=good&state=s1", nil, withCookie(state))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "First name and last name are required", decode[api.ErrorResponse](t, w).Error)

	users, err := f.repo.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users, "no incomplete record is created")
	assert.Zero(t, f.sessions.Len())
}

func TestAuthEndpointsRateLimited(t *testing.T) {
	f := newFixture(t, api.NewRateLimiter(0.001, 2))
	body := map[string]any{"email": "x@y.io", "password": "pw"}

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/auth/login", body).Code)
	}
	w := f.do(t, http.MethodPost, "/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// protected routes are not limited
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/doctors", nil).Code)
}

func TestHealthAndWelcome(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health/live", nil).Code)

	w := f.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[api.ReadinessResponse](t, w).Status)

	w = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
