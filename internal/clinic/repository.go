package clinic

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrEmailTaken          = errors.New("user already exists")
)

// UserChanges is a partial user update as stored; the password is already hashed.
type UserChanges struct {
	FirstName    *string
	LastName     *string
	Email        *string
	PasswordHash *string
	Phone        *string
	Address      *string
	Role         *Role
}

// AppointmentChanges replaces every appointment field; a nil Status keeps the current one.
type AppointmentChanges struct {
	Doctor  primitive.ObjectID
	Patient primitive.ObjectID
	Date    string
	Time    string
	Notes   string
	Status  *AppointmentStatus
}

// Create methods assign the id and timestamps on the passed record.
// Update methods return the record after the update; Delete methods the record before it.
// Both report the kind's not-found error when nothing matched.

type UserRepository interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, id primitive.ObjectID, ch UserChanges) (*User, error)
	TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) (*User, error)
}

type DoctorRepository interface {
	ListDoctors(ctx context.Context) ([]Doctor, error)
	GetDoctor(ctx context.Context, id primitive.ObjectID) (*Doctor, error)
	CreateDoctor(ctx context.Context, d *Doctor) error
	UpdateDoctor(ctx context.Context, id primitive.ObjectID, in DoctorInput) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id primitive.ObjectID) (*Doctor, error)
}

type PatientRepository interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	GetPatient(ctx context.Context, id primitive.ObjectID) (*Patient, error)
	CreatePatient(ctx context.Context, p *Patient) error
	UpdatePatient(ctx context.Context, id primitive.ObjectID, in PatientUpdate) (*Patient, error)
	DeletePatient(ctx context.Context, id primitive.ObjectID) (*Patient, error)
}

type AppointmentRepository interface {
	// List and Get expand the doctor and patient references.
	ListAppointments(ctx context.Context) ([]AppointmentDetail, error)
	GetAppointment(ctx context.Context, id primitive.ObjectID) (*AppointmentDetail, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID primitive.ObjectID) ([]Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, id primitive.ObjectID, ch AppointmentChanges) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id primitive.ObjectID) (*Appointment, error)
}

// Repository is the whole entity store.
type Repository interface {
	UserRepository
	DoctorRepository
	PatientRepository
	AppointmentRepository
}
