package clinic

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/audit"
)

type PatientService struct {
	repo  PatientRepository
	audit audit.Recorder
}

func NewPatientService(repo PatientRepository, rec audit.Recorder) *PatientService {
	return &PatientService{repo: repo, audit: rec}
}

func (s *PatientService) List(ctx context.Context) ([]Patient, error) {
	return s.repo.ListPatients(ctx)
}

func (s *PatientService) Get(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	return s.repo.GetPatient(ctx, id)
}

func (s *PatientService) Create(ctx context.Context, in PatientInput) (*Patient, error) {
	p := &Patient{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		DateOfBirth: in.DateOfBirth,
	}
	if err := s.repo.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventPatientCreated, p.ID, nil)
	return p, nil
}

func (s *PatientService) Update(ctx context.Context, id primitive.ObjectID, in PatientUpdate) (*Patient, error) {
	p, err := s.repo.UpdatePatient(ctx, id, in)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventPatientUpdated, id, nil)
	return p, nil
}

func (s *PatientService) Delete(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	p, err := s.repo.DeletePatient(ctx, id)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventPatientDeleted, id, nil)
	return p, nil
}
