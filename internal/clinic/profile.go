package clinic

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The profile types below are the fuller doctor and patient records linked one to
// one with a User. They are not what /api/doctors and /api/patients store or serve;
// those use the flat Doctor and Patient records.

var Specialties = []string{
	"General Medicine", "Pediatrics", "Dermatology", "Cardiology", "Neurology",
	"Psychiatry", "OB-GYN", "ENT", "Orthopedics", "Surgery", "Family Medicine",
	"Radiology", "Pathology", "Urology", "Dentistry", "Ophthalmology",
}

var Departments = []string{
	"Outpatient", "Inpatient", "Emergency", "Surgery", "Diagnostics", "Telemedicine",
	"Pediatrics", "Internal Medicine", "Mental Health", "Rehabilitation", "Specialty Clinics",
}

var DoctorTitles = []string{"Dr.", "MD", "DO", "Consultant"}

var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var Genders = []string{"Male", "Female", "Other"}

// StartSlots run 08:00..17:00 and EndSlots 08:30..17:30, both in half-hour steps.
var (
	StartSlots = halfHourSlots(8*60, 17*60)
	EndSlots   = halfHourSlots(8*60+30, 17*60+30)
)

func halfHourSlots(from, to int) []string {
	var out []string
	for m := from; m <= to; m += 30 {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

type Location struct {
	ClinicName string `bson:"clinicName,omitempty" json:"clinicName,omitempty"`
	Address1   string `bson:"address1,omitempty" json:"address1,omitempty"`
	Address2   string `bson:"address2,omitempty" json:"address2,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	Province   string `bson:"province,omitempty" json:"province,omitempty"`
	Postcode   string `bson:"postcode,omitempty" json:"postcode,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

// Availability is a weekly window. Overlaps between windows are not checked.
type Availability struct {
	Day       string   `bson:"day" json:"day"`
	StartTime string   `bson:"startTime" json:"startTime"`
	EndTime   string   `bson:"endTime" json:"endTime"`
	Location  Location `bson:"location" json:"location"`
}

type DoctorProfile struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	FirstName       string             `bson:"firstName" json:"firstName"`
	LastName        string             `bson:"lastName" json:"lastName"`
	Title           string             `bson:"title,omitempty" json:"title,omitempty"`
	Specialty       string             `bson:"specialty" json:"specialty"`
	Department      string             `bson:"department,omitempty" json:"department,omitempty"`
	Bio             string             `bson:"bio" json:"bio"`
	ExperienceYears int                `bson:"experienceYears,omitempty" json:"experienceYears,omitempty"`
	Email           string             `bson:"email" json:"email"`
	Phone           string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Availability    []Availability     `bson:"availability" json:"availability"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (p *DoctorProfile) Validate() error {
	var c checker
	if p.UserID.IsZero() {
		c.fail("userId", "User reference is required")
	}
	c.required("firstName", p.FirstName, "First name is required")
	c.required("lastName", p.LastName, "Last name is required")
	if p.Title != "" {
		c.oneOf("title", p.Title, DoctorTitles, "Unknown title")
	}
	c.oneOf("specialty", p.Specialty, Specialties, "Specialty is required and must be a known specialty")
	if p.Department != "" {
		c.oneOf("department", p.Department, Departments, "Unknown department")
	}
	c.required("email", p.Email, "Email is required")
	for i, a := range p.Availability {
		prefix := fmt.Sprintf("availability[%d].", i)
		c.oneOf(prefix+"day", a.Day, Weekdays, "Unknown day")
		c.oneOf(prefix+"startTime", a.StartTime, StartSlots, "Start time must be a half-hour slot between 08:00 and 17:00")
		c.oneOf(prefix+"endTime", a.EndTime, EndSlots, "End time must be a half-hour slot between 08:30 and 17:30")
	}
	return c.err()
}

type EmergencyContact struct {
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
	Relation string `bson:"relation,omitempty" json:"relation,omitempty"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type PatientProfile struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	FirstName        string             `bson:"firstName" json:"firstName"`
	LastName         string             `bson:"lastName" json:"lastName"`
	Email            string             `bson:"email" json:"email"`
	Phone            string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender           string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Birthdate        *time.Time         `bson:"birthdate,omitempty" json:"birthdate,omitempty"`
	Address          Location           `bson:"address" json:"address"`
	EmergencyContact EmergencyContact   `bson:"emergencyContact" json:"emergencyContact"`
	MedicalHistory   []string           `bson:"medicalHistory" json:"medicalHistory"`
}

func (p *PatientProfile) Validate() error {
	var c checker
	if p.UserID.IsZero() {
		c.fail("userId", "User reference is required")
	}
	c.required("firstName", p.FirstName, "First name is required")
	c.required("lastName", p.LastName, "Last name is required")
	c.required("email", p.Email, "Email is required")
	if p.Gender != "" {
		c.oneOf("gender", p.Gender, Genders, "Gender must be Male, Female or Other")
	}
	return c.err()
}
