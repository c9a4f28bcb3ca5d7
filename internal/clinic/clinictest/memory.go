// Package clinictest provides an in-memory clinic.Repository for tests.
package clinictest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/clinic"
)

var _ clinic.Repository = (*Memory)(nil)

// Memory keeps records in insertion order. Calls counts every repository call,
// and a non-nil Fail is returned by every call instead of touching the data.
type Memory struct {
	mu           sync.Mutex
	users        []clinic.User
	doctors      []clinic.Doctor
	patients     []clinic.Patient
	appointments []clinic.Appointment

	Calls atomic.Int64
	Fail  error
}

func NewMemory() *Memory {
	return &Memory{}
}

// enter counts the call and locks; the returned func unlocks.
func (m *Memory) enter() func() {
	m.Calls.Add(1)
	m.mu.Lock()
	return m.mu.Unlock
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func indexOf[T any](items []T, id primitive.ObjectID, idOf func(*T) primitive.ObjectID) int {
	for i := range items {
		if idOf(&items[i]) == id {
			return i
		}
	}
	return -1
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func userID(u *clinic.User) primitive.ObjectID               { return u.ID }
func doctorID(d *clinic.Doctor) primitive.ObjectID           { return d.ID }
func patientID(p *clinic.Patient) primitive.ObjectID         { return p.ID }
func appointmentID(a *clinic.Appointment) primitive.ObjectID { return a.ID }

// Users

func (m *Memory) ListUsers(ctx context.Context) ([]clinic.User, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	return append([]clinic.User{}, m.users...), nil
}

func (m *Memory) GetUser(ctx context.Context, id primitive.ObjectID) (*clinic.User, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.users, id, userID)
	if i < 0 {
		return nil, clinic.ErrUserNotFound
	}
	u := m.users[i]
	return &u, nil
}

func (m *Memory) findUser(match func(*clinic.User) bool) (*clinic.User, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	for i := range m.users {
		if match(&m.users[i]) {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, clinic.ErrUserNotFound
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*clinic.User, error) {
	return m.findUser(func(u *clinic.User) bool { return u.Email == email })
}

func (m *Memory) GetUserByGoogleID(ctx context.Context, googleID string) (*clinic.User, error) {
	return m.findUser(func(u *clinic.User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

func (m *Memory) CreateUser(ctx context.Context, u *clinic.User) error {
	defer m.enter()()
	if m.Fail != nil {
		return m.Fail
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return clinic.ErrEmailTaken
		}
	}
	t := now()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = t, t
	if u.Role == "" {
		u.Role = clinic.RoleUser
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *Memory) UpdateUser(ctx context.Context, id primitive.ObjectID, ch clinic.UserChanges) (*clinic.User, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.users, id, userID)
	if i < 0 {
		return nil, clinic.ErrUserNotFound
	}
	if ch.Email != nil {
		for j, other := range m.users {
			if j != i && other.Email == *ch.Email {
				return nil, clinic.ErrEmailTaken
			}
		}
	}
	u := &m.users[i]
	setIf(&u.FirstName, ch.FirstName)
	setIf(&u.LastName, ch.LastName)
	setIf(&u.Email, ch.Email)
	setIf(&u.PasswordHash, ch.PasswordHash)
	setIf(&u.Phone, ch.Phone)
	setIf(&u.Address, ch.Address)
	setIf(&u.Role, ch.Role)
	u.UpdatedAt = now()
	out := *u
	return &out, nil
}

func (m *Memory) TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	defer m.enter()()
	if m.Fail != nil {
		return m.Fail
	}
	i := indexOf(m.users, id, userID)
	if i < 0 {
		return clinic.ErrUserNotFound
	}
	m.users[i].LastLogin = &at
	m.users[i].UpdatedAt = now()
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, id primitive.ObjectID) (*clinic.User, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.users, id, userID)
	if i < 0 {
		return nil, clinic.ErrUserNotFound
	}
	u := m.users[i]
	m.users = append(m.users[:i], m.users[i+1:]...)
	return &u, nil
}

// Doctors

func (m *Memory) ListDoctors(ctx context.Context) ([]clinic.Doctor, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	return append([]clinic.Doctor{}, m.doctors...), nil
}

func (m *Memory) GetDoctor(ctx context.Context, id primitive.ObjectID) (*clinic.Doctor, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.doctors, id, doctorID)
	if i < 0 {
		return nil, clinic.ErrDoctorNotFound
	}
	d := m.doctors[i]
	return &d, nil
}

func (m *Memory) CreateDoctor(ctx context.Context, d *clinic.Doctor) error {
	defer m.enter()()
	if m.Fail != nil {
		return m.Fail
	}
	t := now()
	d.ID = primitive.NewObjectID()
	d.CreatedAt, d.UpdatedAt = t, t
	m.doctors = append(m.doctors, *d)
	return nil
}

func (m *Memory) UpdateDoctor(ctx context.Context, id primitive.ObjectID, in clinic.DoctorInput) (*clinic.Doctor, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.doctors, id, doctorID)
	if i < 0 {
		return nil, clinic.ErrDoctorNotFound
	}
	d := &m.doctors[i]
	d.FirstName, d.LastName, d.Email = in.FirstName, in.LastName, in.Email
	d.Specialization, d.Phone, d.Address = in.Specialization, in.Phone, in.Address
	d.UpdatedAt = now()
	out := *d
	return &out, nil
}

func (m *Memory) DeleteDoctor(ctx context.Context, id primitive.ObjectID) (*clinic.Doctor, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.doctors, id, doctorID)
	if i < 0 {
		return nil, clinic.ErrDoctorNotFound
	}
	d := m.doctors[i]
	m.doctors = append(m.doctors[:i], m.doctors[i+1:]...)
	return &d, nil
}

// Patients

func (m *Memory) ListPatients(ctx context.Context) ([]clinic.Patient, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	return append([]clinic.Patient{}, m.patients...), nil
}

func (m *Memory) GetPatient(ctx context.Context, id primitive.ObjectID) (*clinic.Patient, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.patients, id, patientID)
	if i < 0 {
		return nil, clinic.ErrPatientNotFound
	}
	p := m.patients[i]
	return &p, nil
}

func (m *Memory) CreatePatient(ctx context.Context, p *clinic.Patient) error {
	defer m.enter()()
	if m.Fail != nil {
		return m.Fail
	}
	t := now()
	p.ID = primitive.NewObjectID()
	p.CreatedAt, p.UpdatedAt = t, t
	m.patients = append(m.patients, *p)
	return nil
}

func (m *Memory) UpdatePatient(ctx context.Context, id primitive.ObjectID, in clinic.PatientUpdate) (*clinic.Patient, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.patients, id, patientID)
	if i < 0 {
		return nil, clinic.ErrPatientNotFound
	}
	p := &m.patients[i]
	setIf(&p.FirstName, in.FirstName)
	setIf(&p.LastName, in.LastName)
	setIf(&p.Email, in.Email)
	setIf(&p.Phone, in.Phone)
	setIf(&p.Address, in.Address)
	setIf(&p.DateOfBirth, in.DateOfBirth)
	p.UpdatedAt = now()
	out := *p
	return &out, nil
}

func (m *Memory) DeletePatient(ctx context.Context, id primitive.ObjectID) (*clinic.Patient, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.patients, id, patientID)
	if i < 0 {
		return nil, clinic.ErrPatientNotFound
	}
	p := m.patients[i]
	m.patients = append(m.patients[:i], m.patients[i+1:]...)
	return &p, nil
}

// Appointments

// expand must be called with mu held.
func (m *Memory) expand(a clinic.Appointment) clinic.AppointmentDetail {
	d := clinic.AppointmentDetail{
		ID:        a.ID,
		Date:      a.Date,
		Time:      a.Time,
		Notes:     a.Notes,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if i := indexOf(m.doctors, a.Doctor, doctorID); i >= 0 {
		doc := m.doctors[i]
		d.Doctor = &doc
	}
	if i := indexOf(m.patients, a.Patient, patientID); i >= 0 {
		pat := m.patients[i]
		d.Patient = &pat
	}
	return d
}

func (m *Memory) ListAppointments(ctx context.Context) ([]clinic.AppointmentDetail, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]clinic.AppointmentDetail, 0, len(m.appointments))
	for _, a := range m.appointments {
		out = append(out, m.expand(a))
	}
	return out, nil
}

func (m *Memory) GetAppointment(ctx context.Context, id primitive.ObjectID) (*clinic.AppointmentDetail, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.appointments, id, appointmentID)
	if i < 0 {
		return nil, clinic.ErrAppointmentNotFound
	}
	d := m.expand(m.appointments[i])
	return &d, nil
}

func (m *Memory) filterAppointments(match func(*clinic.Appointment) bool) ([]clinic.Appointment, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := []clinic.Appointment{}
	for i := range m.appointments {
		if match(&m.appointments[i]) {
			out = append(out, m.appointments[i])
		}
	}
	return out, nil
}

func (m *Memory) ListAppointmentsByDoctor(ctx context.Context, id primitive.ObjectID) ([]clinic.Appointment, error) {
	return m.filterAppointments(func(a *clinic.Appointment) bool { return a.Doctor == id })
}

func (m *Memory) ListAppointmentsByPatient(ctx context.Context, id primitive.ObjectID) ([]clinic.Appointment, error) {
	return m.filterAppointments(func(a *clinic.Appointment) bool { return a.Patient == id })
}

func (m *Memory) CreateAppointment(ctx context.Context, a *clinic.Appointment) error {
	defer m.enter()()
	if m.Fail != nil {
		return m.Fail
	}
	t := now()
	a.ID = primitive.NewObjectID()
	a.CreatedAt, a.UpdatedAt = t, t
	if a.Status == "" {
		a.Status = clinic.StatusPending
	}
	m.appointments = append(m.appointments, *a)
	return nil
}

func (m *Memory) UpdateAppointment(ctx context.Context, id primitive.ObjectID, ch clinic.AppointmentChanges) (*clinic.Appointment, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.appointments, id, appointmentID)
	if i < 0 {
		return nil, clinic.ErrAppointmentNotFound
	}
	a := &m.appointments[i]
	a.Doctor, a.Patient = ch.Doctor, ch.Patient
	a.Date, a.Time, a.Notes = ch.Date, ch.Time, ch.Notes
	setIf(&a.Status, ch.Status)
	a.UpdatedAt = now()
	out := *a
	return &out, nil
}

func (m *Memory) DeleteAppointment(ctx context.Context, id primitive.ObjectID) (*clinic.Appointment, error) {
	defer m.enter()()
	if m.Fail != nil {
		return nil, m.Fail
	}
	i := indexOf(m.appointments, id, appointmentID)
	if i < 0 {
		return nil, clinic.ErrAppointmentNotFound
	}
	a := m.appointments[i]
	m.appointments = append(m.appointments[:i], m.appointments[i+1:]...)
	return &a, nil
}

// ErrStoreDown is a convenient value for Fail.
var ErrStoreDown = errors.New("store unavailable")
