package clinic

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/audit"
)

type DoctorService struct {
	repo  DoctorRepository
	audit audit.Recorder
}

func NewDoctorService(repo DoctorRepository, rec audit.Recorder) *DoctorService {
	return &DoctorService{repo: repo, audit: rec}
}

func (s *DoctorService) List(ctx context.Context) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx)
}

func (s *DoctorService) Get(ctx context.Context, id primitive.ObjectID) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

func (s *DoctorService) Create(ctx context.Context, in DoctorInput) (*Doctor, error) {
	d := &Doctor{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Specialization: in.Specialization,
		Phone:          in.Phone,
		Address:        in.Address,
	}
	if err := s.repo.CreateDoctor(ctx, d); err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventDoctorCreated, d.ID, map[string]any{"specialization": d.Specialization})
	return d, nil
}

func (s *DoctorService) Update(ctx context.Context, id primitive.ObjectID, in DoctorInput) (*Doctor, error) {
	d, err := s.repo.UpdateDoctor(ctx, id, in)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventDoctorUpdated, id, nil)
	return d, nil
}

func (s *DoctorService) Delete(ctx context.Context, id primitive.ObjectID) (*Doctor, error) {
	d, err := s.repo.DeleteDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	record(ctx, s.audit, audit.EventDoctorDeleted, id, nil)
	return d, nil
}
