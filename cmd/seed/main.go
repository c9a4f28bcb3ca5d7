package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/audit"
	"github.com/hackgods/clinic-appointments/internal/clinic"
	"github.com/hackgods/clinic-appointments/internal/db"
	"github.com/hackgods/clinic-appointments/internal/logging"
)

type seedOptions struct {
	mongoURI      string
	database      string
	doctors       int
	patients      int
	appointments  int
	adminEmail    string
	adminPassword string
	seed          int64
}

func main() {
	_ = godotenv.Load()

	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Fill the clinic database with fake doctors, patients and appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.mongoURI, "mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection string")
	f.StringVar(&opts.database, "database", envOr("MONGO_DATABASE", "clinic"), "database name")
	f.IntVar(&opts.doctors, "doctors", 50, "doctors to create")
	f.IntVar(&opts.patients, "patients", 500, "patients to create")
	f.IntVar(&opts.appointments, "appointments", 1000, "appointments to create")
	f.StringVar(&opts.adminEmail, "admin-email", "", "also create a password admin with this email")
	f.StringVar(&opts.adminPassword, "admin-password", "", "password for --admin-email")
	f.Int64Var(&opts.seed, "seed", 0, "random seed, 0 picks one from the clock")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("seed failed")
	}
}

func run(ctx context.Context, opts seedOptions) error {
	if opts.mongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	if (opts.adminEmail == "") != (opts.adminPassword == "") {
		return errors.New("--admin-email and --admin-password go together")
	}

	logger := logging.New(envOr("APP_ENV", "dev"))
	ctx = logger.WithContext(ctx)
	logger.Info().Msg("seed starting")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, database, err := db.ConnectMongo(connectCtx, opts.mongoURI, opts.database)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo := clinic.NewMongoRepository(database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}

	if opts.seed == 0 {
		opts.seed = time.Now().UnixNano()
	}
	gofakeit.Seed(opts.seed)

	if opts.adminEmail != "" {
		if err := seedAdmin(ctx, repo, opts.adminEmail, opts.adminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	doctors, err := seedDoctors(ctx, clinic.NewDoctorService(repo, audit.NopRecorder{}), opts.doctors)
	if err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	patients, err := seedPatients(ctx, clinic.NewPatientService(repo, audit.NopRecorder{}), opts.patients)
	if err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	if err := seedAppointments(ctx, clinic.NewAppointmentService(repo, audit.NopRecorder{}), doctors, patients, opts.appointments); err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}

	logger.Info().Int64("seed", opts.seed).Msg("seed complete")
	return nil
}

func seedAdmin(ctx context.Context, repo clinic.UserRepository, email, password string) error {
	role := string(clinic.RoleAdmin)
	in := clinic.SignupInput{
		FirstName: "Clinic",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
		Role:      &role,
	}
	if err := in.Validate(); err != nil {
		return err
	}
	u, err := clinic.NewUserService(repo, audit.NopRecorder{}).Create(ctx, in)
	if errors.Is(err, clinic.ErrEmailTaken) {
		zerolog.Ctx(ctx).Info().Str("email", in.Email).Msg("admin already present")
		return nil
	}
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("email", u.Email).Str("id", u.ID.Hex()).Msg("admin created")
	return nil
}

func seedDoctors(ctx context.Context, svc *clinic.DoctorService, count int) ([]primitive.ObjectID, error) {
	zerolog.Ctx(ctx).Info().Int("count", count).Msg("seeding doctors")

	ids := make([]primitive.ObjectID, 0, count)
	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		in := clinic.DoctorInput{
			FirstName:      first,
			LastName:       last,
			Email:          fakeEmail(first, last, i),
			Specialization: clinic.Specialties[gofakeit.Number(0, len(clinic.Specialties)-1)],
			Phone:          gofakeit.Phone(),
			Address:        gofakeit.Address().Address,
		}
		d, err := svc.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func seedPatients(ctx context.Context, svc *clinic.PatientService, count int) ([]primitive.ObjectID, error) {
	zerolog.Ctx(ctx).Info().Int("count", count).Msg("seeding patients")

	const batchSize = 100
	ids := make([]primitive.ObjectID, 0, count)
	oldest := time.Now().AddDate(-90, 0, 0)

	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		in := clinic.PatientInput{
			FirstName:   first,
			LastName:    last,
			Email:       fakeEmail(first, last, i),
			Phone:       gofakeit.Phone(),
			Address:     gofakeit.Address().Address,
			DateOfBirth: gofakeit.DateRange(oldest, time.Now()).Format("2006-01-02"),
		}
		p, err := svc.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)

		if done := i + 1; done%batchSize == 0 || done == count {
			zerolog.Ctx(ctx).Info().Msgf("patients seeded: %d/%d", done, count)
		}
	}
	return ids, nil
}

func seedAppointments(ctx context.Context, svc *clinic.AppointmentService, doctors, patients []primitive.ObjectID, count int) error {
	if len(doctors) == 0 || len(patients) == 0 {
		zerolog.Ctx(ctx).Warn().Msg("no doctors or patients, skipping appointments")
		return nil
	}
	zerolog.Ctx(ctx).Info().Int("count", count).Msg("seeding appointments")

	statuses := []string{"pending", "confirmed", "cancelled", "completed"}
	from := time.Now().AddDate(0, -1, 0)
	to := time.Now().AddDate(0, 2, 0)

	for i := 0; i < count; i++ {
		in := clinic.AppointmentInput{
			Doctor:  doctors[gofakeit.Number(0, len(doctors)-1)].Hex(),
			Patient: patients[gofakeit.Number(0, len(patients)-1)].Hex(),
			Date:    gofakeit.DateRange(from, to).Format("2006-01-02"),
			Time:    clinic.StartSlots[gofakeit.Number(0, len(clinic.StartSlots)-1)],
			Notes:   fmt.Sprintf("%s %s", gofakeit.Verb(), gofakeit.Noun()),
			Status:  &statuses[gofakeit.Number(0, len(statuses)-1)],
		}
		if _, err := svc.Create(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

// fakeEmail keeps generated emails unique across a run.
func fakeEmail(first, last string, n int) string {
	return fmt.Sprintf("%s.%s.%d@%s", strings.ToLower(first), strings.ToLower(last), n, gofakeit.DomainName())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
