package clinic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSlotEnumerations(t *testing.T) {
	assert.Len(t, StartSlots, 19)
	assert.Equal(t, "08:00", StartSlots[0])
	assert.Equal(t, "17:00", StartSlots[len(StartSlots)-1])
	assert.Len(t, EndSlots, 19)
	assert.Equal(t, "08:30", EndSlots[0])
	assert.Equal(t, "17:30", EndSlots[len(EndSlots)-1])
}

func TestDoctorProfileValidate(t *testing.T) {
	p := DoctorProfile{
		UserID:    primitive.NewObjectID(),
		FirstName: "Meredith",
		LastName:  "Grey",
		Title:     "MD",
		Specialty: "Surgery",
		Email:     "grey@sgmw.org",
		Availability: []Availability{
			{Day: "Monday", StartTime: "09:00", EndTime: "12:30"},
		},
	}
	assert.NoError(t, p.Validate())

	p.Specialty = "Alchemy"
	p.Availability = append(p.Availability, Availability{Day: "Funday", StartTime: "07:45", EndTime: "08:00"})
	assert.Equal(t,
		[]string{"specialty", "availability[1].day", "availability[1].startTime", "availability[1].endTime"},
		fieldsOf(t, p.Validate()))
}

func TestPatientProfileValidate(t *testing.T) {
	p := PatientProfile{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Gender: "Unknown"}
	assert.Equal(t, []string{"userId", "gender"}, fieldsOf(t, p.Validate()))
}
