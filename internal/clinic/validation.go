package clinic

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dateLayout = "2006-01-02"

// bcrypt refuses longer input.
const maxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failed rule in declaration order.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type checker struct {
	errs []FieldError
}

func (c *checker) fail(field, msg string) {
	c.errs = append(c.errs, FieldError{Field: field, Message: msg})
}

func (c *checker) required(field, val, msg string) {
	if val == "" {
		c.fail(field, msg)
	}
}

func (c *checker) maxBytes(field, val string, n int, msg string) {
	if len(val) > n {
		c.fail(field, msg)
	}
}

func (c *checker) email(field, val, msg string) {
	if !emailPattern.MatchString(val) {
		c.fail(field, msg)
	}
}

func (c *checker) oneOf(field, val string, allowed []string, msg string) {
	if !slices.Contains(allowed, val) {
		c.fail(field, msg)
	}
}

func (c *checker) date(field, val, msg string) {
	if _, err := time.Parse(dateLayout, val); err != nil {
		c.fail(field, msg)
	}
}

func (c *checker) objectID(field, val, msg string) {
	if val == "" {
		return
	}
	if _, err := primitive.ObjectIDFromHex(val); err != nil {
		c.fail(field, msg)
	}
}

func (c *checker) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: c.errs}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimPtr(p *string) {
	if p != nil {
		*p = strings.TrimSpace(*p)
	}
}

type SignupInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	// Role is nil when absent; an empty string is present and invalid.
	Role *string `json:"role"`
}

// Validate normalizes the input in place and checks it.
func (in *SignupInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)

	var c checker
	c.required("firstName", in.FirstName, "First name is required")
	c.required("lastName", in.LastName, "Last name is required")
	c.email("email", in.Email, "Email is invalid")
	c.required("password", in.Password, "Password is required")
	c.maxBytes("password", in.Password, maxPasswordBytes, "Password must be at most 72 bytes")
	if in.Role != nil {
		c.oneOf("role", *in.Role, signupRoles, "Role must be admin, doctor or patient")
	}
	return c.err()
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() error {
	in.Email = normalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)

	var c checker
	c.email("email", in.Email, "Email is invalid")
	c.required("password", in.Password, "Password is required")
	return c.err()
}

// UserUpdate carries only the fields present in the request body.
type UserUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Role      *string `json:"role"`
}

func (in *UserUpdate) Validate() error {
	trimPtr(in.FirstName)
	trimPtr(in.LastName)
	trimPtr(in.Password)
	trimPtr(in.Phone)
	trimPtr(in.Address)
	if in.Email != nil {
		*in.Email = normalizeEmail(*in.Email)
	}

	var c checker
	if in.FirstName != nil {
		c.required("firstName", *in.FirstName, "First name is required")
	}
	if in.LastName != nil {
		c.required("lastName", *in.LastName, "Last name is required")
	}
	if in.Email != nil {
		c.email("email", *in.Email, "Email is invalid")
	}
	if in.Password != nil {
		c.required("password", *in.Password, "Password is required")
		c.maxBytes("password", *in.Password, maxPasswordBytes, "Password must be at most 72 bytes")
	}
	if in.Role != nil {
		c.oneOf("role", *in.Role, signupRoles, "Role must be admin, doctor or patient")
	}
	return c.err()
}

type DoctorInput struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Specialization string `json:"specialization"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
}

func (in *DoctorInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Specialization = strings.TrimSpace(in.Specialization)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)

	var c checker
	c.required("firstName", in.FirstName, "First name is required.")
	c.required("lastName", in.LastName, "Last name is required.")
	c.email("email", in.Email, "A valid email is required.")
	c.required("specialization", in.Specialization, "Specialization is required.")
	return c.err()
}

type PatientInput struct {
	// Name is split into first and last name when neither is given.
	Name        string `json:"name"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"dateOfBirth"`
}

func (in *PatientInput) Validate() error {
	if name := strings.TrimSpace(in.Name); name != "" && in.FirstName == "" && in.LastName == "" {
		first, rest, _ := strings.Cut(name, " ")
		in.FirstName, in.LastName = first, strings.TrimSpace(rest)
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)

	var c checker
	c.required("firstName", in.FirstName, "First name is required.")
	c.required("lastName", in.LastName, "Last name is required.")
	c.email("email", in.Email, "A valid email is required.")
	c.required("dateOfBirth", in.DateOfBirth, "Date of birth is required.")
	if in.DateOfBirth != "" {
		c.date("dateOfBirth", in.DateOfBirth, "Invalid date of birth")
	}
	return c.err()
}

type PatientUpdate struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	DateOfBirth *string `json:"dateOfBirth"`
}

func (in *PatientUpdate) Validate() error {
	trimPtr(in.FirstName)
	trimPtr(in.LastName)
	trimPtr(in.Phone)
	trimPtr(in.Address)
	trimPtr(in.DateOfBirth)
	if in.Email != nil {
		*in.Email = normalizeEmail(*in.Email)
	}

	var c checker
	if in.FirstName != nil {
		c.required("firstName", *in.FirstName, "First name is required")
	}
	if in.LastName != nil {
		c.required("lastName", *in.LastName, "Last name is required")
	}
	if in.Email != nil {
		c.email("email", *in.Email, "Valid email is required")
	}
	if in.DateOfBirth != nil {
		c.date("dateOfBirth", *in.DateOfBirth, "Invalid date of birth")
	}
	return c.err()
}

type AppointmentInput struct {
	Doctor  string `json:"doctor"`
	Patient string `json:"patient"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Notes   string `json:"notes"`
	// Status is nil when absent; an empty string is present and invalid.
	Status *string `json:"status"`
}

func (in *AppointmentInput) Validate() error {
	in.Doctor = strings.TrimSpace(in.Doctor)
	in.Patient = strings.TrimSpace(in.Patient)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Notes = strings.TrimSpace(in.Notes)

	var c checker
	c.required("doctor", in.Doctor, "Doctor ID is required.")
	c.objectID("doctor", in.Doctor, "Doctor ID is invalid.")
	c.required("patient", in.Patient, "Patient ID is required.")
	c.objectID("patient", in.Patient, "Patient ID is invalid.")
	c.required("date", in.Date, "Appointment date is required.")
	c.required("time", in.Time, "Appointment time is required.")
	if in.Status != nil {
		c.oneOf("status", *in.Status, appointmentStatuses,
			"Status must be pending, confirmed, cancelled or completed")
	}
	return c.err()
}

// refs returns the parsed doctor and patient ids of a validated input.
func (in *AppointmentInput) refs() (doctor, patient primitive.ObjectID, err error) {
	if doctor, err = primitive.ObjectIDFromHex(in.Doctor); err != nil {
		return doctor, patient, fmt.Errorf("doctor id: %w", err)
	}
	if patient, err = primitive.ObjectIDFromHex(in.Patient); err != nil {
		return doctor, patient, fmt.Errorf("patient id: %w", err)
	}
	return doctor, patient, nil
}
