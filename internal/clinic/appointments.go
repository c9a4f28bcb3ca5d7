package clinic

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/audit"
)

// AppointmentService does not check that the referenced doctor and patient exist;
// a dangling reference shows up as a null expansion on read.
type AppointmentService struct {
	repo  AppointmentRepository
	audit audit.Recorder
}

func NewAppointmentService(repo AppointmentRepository, rec audit.Recorder) *AppointmentService {
	return &AppointmentService{repo: repo, audit: rec}
}

func (s *AppointmentService) List(ctx context.Context) ([]AppointmentDetail, error) {
	return s.repo.ListAppointments(ctx)
}

func (s *AppointmentService) Get(ctx context.Context, id primitive.ObjectID) (*AppointmentDetail, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *AppointmentService) ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]Appointment, error) {
	return s.repo.ListAppointmentsByDoctor(ctx, doctorID)
}

func (s *AppointmentService) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]Appointment, error) {
	return s.repo.ListAppointmentsByPatient(ctx, patientID)
}

func (s *AppointmentService) Create(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	doctor, patient, err := in.refs()
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if in.Status != nil {
		status = AppointmentStatus(*in.Status)
	}

	a := &Appointment{
		Doctor:  doctor,
		Patient: patient,
		Date:    in.Date,
		Time:    in.Time,
		Notes:   in.Notes,
		Status:  status,
	}
	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		return nil, err
	}

	record(ctx, s.audit, audit.EventAppointmentCreated, a.ID, map[string]any{
		"doctor":  doctor.Hex(),
		"patient": patient.Hex(),
		"date":    a.Date,
		"time":    a.Time,
	})
	return a, nil
}

// Update replaces the appointment fields. Any status may follow any other.
func (s *AppointmentService) Update(ctx context.Context, id primitive.ObjectID, in AppointmentInput) (*Appointment, error) {
	doctor, patient, err := in.refs()
	if err != nil {
		return nil, err
	}

	ch := AppointmentChanges{
		Doctor:  doctor,
		Patient: patient,
		Date:    in.Date,
		Time:    in.Time,
		Notes:   in.Notes,
	}
	if in.Status != nil {
		st := AppointmentStatus(*in.Status)
		ch.Status = &st
	}

	a, err := s.repo.UpdateAppointment(ctx, id, ch)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventAppointmentUpdated, id, map[string]any{"status": a.Status})
	return a, nil
}

func (s *AppointmentService) Delete(ctx context.Context, id primitive.ObjectID) (*Appointment, error) {
	a, err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventAppointmentDeleted, id, nil)
	return a, nil
}
