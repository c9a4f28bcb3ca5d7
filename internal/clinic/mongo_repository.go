package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection        = "users"
	doctorsCollection      = "doctors"
	patientsCollection     = "patients"
	appointmentsCollection = "appointments"
)

type MongoRepository struct {
	users        *mongo.Collection
	doctors      *mongo.Collection
	patients     *mongo.Collection
	appointments *mongo.Collection
	now          func() time.Time
}

var _ Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		users:        db.Collection(usersCollection),
		doctors:      db.Collection(doctorsCollection),
		patients:     db.Collection(patientsCollection),
		appointments: db.Collection(appointmentsCollection),
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the indexes the store relies on. Safe to call on every start.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	_, err = r.appointments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "doctor", Value: 1}}},
		{Keys: bson.D{{Key: "patient", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("appointment indexes: %w", err)
	}
	return nil
}

// Helpers

func byID(id primitive.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.D) ([]T, error) {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeOne[T any](res *mongo.SingleResult, notFound error) (*T, error) {
	var v T
	if err := res.Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *MongoRepository) updateByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, set bson.M) *mongo.SingleResult {
	set["updatedAt"] = r.now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return coll.FindOneAndUpdate(ctx, byID(id), bson.M{"$set": set}, opts)
}

func setIf[T any](set bson.M, key string, v *T) {
	if v != nil {
		set[key] = *v
	}
}

// Users

func (r *MongoRepository) ListUsers(ctx context.Context) ([]User, error) {
	return findAll[User](ctx, r.users, bson.D{})
}

func (r *MongoRepository) GetUser(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return decodeOne[User](r.users.FindOne(ctx, byID(id)), ErrUserNotFound)
}

func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return decodeOne[User](r.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}), ErrUserNotFound)
}

func (r *MongoRepository) GetUserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return decodeOne[User](r.users.FindOne(ctx, bson.D{{Key: "googleId", Value: googleID}}), ErrUserNotFound)
}

func (r *MongoRepository) CreateUser(ctx context.Context, u *User) error {
	now := r.now()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == "" {
		u.Role = RoleUser
	}

	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *MongoRepository) UpdateUser(ctx context.Context, id primitive.ObjectID, ch UserChanges) (*User, error) {
	set := bson.M{}
	setIf(set, "firstName", ch.FirstName)
	setIf(set, "lastName", ch.LastName)
	setIf(set, "email", ch.Email)
	setIf(set, "password", ch.PasswordHash)
	setIf(set, "phone", ch.Phone)
	setIf(set, "address", ch.Address)
	setIf(set, "role", ch.Role)

	u, err := decodeOne[User](r.updateByID(ctx, r.users, id, set), ErrUserNotFound)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil, ErrEmailTaken
	}
	return u, err
}

func (r *MongoRepository) TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := r.users.UpdateOne(ctx, byID(id), bson.M{"$set": bson.M{"lastLogin": at, "updatedAt": r.now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteUser(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return decodeOne[User](r.users.FindOneAndDelete(ctx, byID(id)), ErrUserNotFound)
}

// Doctors

func (r *MongoRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return findAll[Doctor](ctx, r.doctors, bson.D{})
}

func (r *MongoRepository) GetDoctor(ctx context.Context, id primitive.ObjectID) (*Doctor, error) {
	return decodeOne[Doctor](r.doctors.FindOne(ctx, byID(id)), ErrDoctorNotFound)
}

func (r *MongoRepository) CreateDoctor(ctx context.Context, d *Doctor) error {
	now := r.now()
	d.ID = primitive.NewObjectID()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := r.doctors.InsertOne(ctx, d)
	return err
}

func (r *MongoRepository) UpdateDoctor(ctx context.Context, id primitive.ObjectID, in DoctorInput) (*Doctor, error) {
	set := bson.M{
		"firstName":      in.FirstName,
		"lastName":       in.LastName,
		"email":          in.Email,
		"specialization": in.Specialization,
		"phone":          in.Phone,
		"address":        in.Address,
	}
	return decodeOne[Doctor](r.updateByID(ctx, r.doctors, id, set), ErrDoctorNotFound)
}

func (r *MongoRepository) DeleteDoctor(ctx context.Context, id primitive.ObjectID) (*Doctor, error) {
	return decodeOne[Doctor](r.doctors.FindOneAndDelete(ctx, byID(id)), ErrDoctorNotFound)
}

// Patients

func (r *MongoRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	return findAll[Patient](ctx, r.patients, bson.D{})
}

func (r *MongoRepository) GetPatient(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	return decodeOne[Patient](r.patients.FindOne(ctx, byID(id)), ErrPatientNotFound)
}

func (r *MongoRepository) CreatePatient(ctx context.Context, p *Patient) error {
	now := r.now()
	p.ID = primitive.NewObjectID()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.patients.InsertOne(ctx, p)
	return err
}

func (r *MongoRepository) UpdatePatient(ctx context.Context, id primitive.ObjectID, in PatientUpdate) (*Patient, error) {
	set := bson.M{}
	setIf(set, "firstName", in.FirstName)
	setIf(set, "lastName", in.LastName)
	setIf(set, "email", in.Email)
	setIf(set, "phone", in.Phone)
	setIf(set, "address", in.Address)
	setIf(set, "dateOfBirth", in.DateOfBirth)
	return decodeOne[Patient](r.updateByID(ctx, r.patients, id, set), ErrPatientNotFound)
}

func (r *MongoRepository) DeletePatient(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	return decodeOne[Patient](r.patients.FindOneAndDelete(ctx, byID(id)), ErrPatientNotFound)
}

// Appointments

func expandRefs(match bson.D) mongo.Pipeline {
	lookup := func(from, field string) bson.D {
		return bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: field},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: field},
		}}}
	}
	unwind := func(field string) bson.D {
		return bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + field},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		lookup(doctorsCollection, "doctor"),
		lookup(patientsCollection, "patient"),
		unwind("doctor"),
		unwind("patient"),
	}
}

func (r *MongoRepository) aggregateDetails(ctx context.Context, match bson.D) ([]AppointmentDetail, error) {
	cur, err := r.appointments.Aggregate(ctx, expandRefs(match))
	if err != nil {
		return nil, err
	}
	out := []AppointmentDetail{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) ListAppointments(ctx context.Context) ([]AppointmentDetail, error) {
	return r.aggregateDetails(ctx, bson.D{})
}

func (r *MongoRepository) GetAppointment(ctx context.Context, id primitive.ObjectID) (*AppointmentDetail, error) {
	details, err := r.aggregateDetails(ctx, byID(id))
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return &details[0], nil
}

func (r *MongoRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]Appointment, error) {
	return findAll[Appointment](ctx, r.appointments, bson.D{{Key: "doctor", Value: doctorID}})
}

func (r *MongoRepository) ListAppointmentsByPatient(ctx context.Context, patientID primitive.ObjectID) ([]Appointment, error) {
	return findAll[Appointment](ctx, r.appointments, bson.D{{Key: "patient", Value: patientID}})
}

func (r *MongoRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	now := r.now()
	a.ID = primitive.NewObjectID()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Status == "" {
		a.Status = StatusPending
	}
	_, err := r.appointments.InsertOne(ctx, a)
	return err
}

func (r *MongoRepository) UpdateAppointment(ctx context.Context, id primitive.ObjectID, ch AppointmentChanges) (*Appointment, error) {
	set := bson.M{
		"doctor":  ch.Doctor,
		"patient": ch.Patient,
		"date":    ch.Date,
		"time":    ch.Time,
		"notes":   ch.Notes,
	}
	setIf(set, "status", ch.Status)
	return decodeOne[Appointment](r.updateByID(ctx, r.appointments, id, set), ErrAppointmentNotFound)
}

func (r *MongoRepository) DeleteAppointment(ctx context.Context, id primitive.ObjectID) (*Appointment, error) {
	return decodeOne[Appointment](r.appointments.FindOneAndDelete(ctx, byID(id)), ErrAppointmentNotFound)
}
