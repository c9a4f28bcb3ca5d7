package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	UpdateRatio  float64
	ReadRatio    float64
	Email        string
	Password     string
}

type DataPool struct {
	Doctors      []string
	Patients     []string
	mu           sync.RWMutex
	appointments []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

// Record files a call as success (2xx), rejected (4xx) or error.
func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking       OperationMetrics
	Update        OperationMetrics
	ReadByID      OperationMetrics
	ListByDoctor  OperationMetrics
	ListByPatient OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	token   string
	log     zerolog.Logger
	metrics Metrics
}

func main() {
	_ = godotenv.Load()

	cfg := SimConfig{}
	cmd := &cobra.Command{
		Use:           "simulate",
		Short:         "Drive concurrent appointment traffic against a running API and report latencies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.APIBaseURL, "base-url", envOr("SIM_API_BASE_URL", "http://localhost:8080"), "API base URL")
	f.DurationVar(&cfg.Duration, "duration", 30*time.Second, "how long to run")
	f.IntVar(&cfg.Workers, "workers", 10, "concurrent workers")
	f.Float64Var(&cfg.BookingRatio, "booking-ratio", 0.4, "share of appointment creations")
	f.Float64Var(&cfg.UpdateRatio, "update-ratio", 0.2, "share of appointment status updates")
	f.Float64Var(&cfg.ReadRatio, "read-ratio", 0.4, "share of reads")
	f.StringVar(&cfg.Email, "email", os.Getenv("SIM_EMAIL"), "log in as this user instead of signing up a fresh one")
	f.StringVar(&cfg.Password, "password", os.Getenv("SIM_PASSWORD"), "password for --email")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("simulation failed")
	}
}

func run(ctx context.Context, cfg SimConfig) error {
	if err := validateConfig(&cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
	sim.log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("update", cfg.UpdateRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	token, err := sim.authenticate(setupCtx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	sim.token = token

	pool, err := sim.loadDataPool(setupCtx)
	if err != nil {
		return fmt.Errorf("load data pool: %w", err)
	}
	sim.pool = pool
	sim.log.Info().Int("doctors", len(pool.Doctors)).Int("patients", len(pool.Patients)).Msg("loaded data pool")

	sim.Run(ctx)
	sim.PrintReport()
	return nil
}

func validateConfig(cfg *SimConfig) error {
	if cfg.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("duration must be > 0")
	}
	if (cfg.Email == "") != (cfg.Password == "") {
		return errors.New("email and password go together")
	}

	total := cfg.BookingRatio + cfg.UpdateRatio + cfg.ReadRatio
	if total <= 0 {
		return errors.New("at least one ratio must be > 0")
	}
	cfg.BookingRatio /= total
	cfg.UpdateRatio /= total
	cfg.ReadRatio /= total
	return nil
}

// authenticate logs in with the configured account or signs up a throwaway one.
func (s *Simulator) authenticate(ctx context.Context) (string, error) {
	path, body := "/auth/login", map[string]string{"email": s.config.Email, "password": s.config.Password}
	if s.config.Email == "" {
		path = "/auth/signup"
		body = map[string]string{
			"firstName": "Load",
			"lastName":  "Tester",
			"email":     fmt.Sprintf("sim-%s@example.com", uuid.NewString()[:8]),
			"password":  uuid.NewString(),
			"role":      "admin",
		}
	}

	var out struct {
		Token string `json:"token"`
	}
	status, err := s.call(ctx, http.MethodPost, path, body, &out)
	if err != nil {
		return "", err
	}
	if status/100 != 2 || out.Token == "" {
		return "", fmt.Errorf("%s answered %d", path, status)
	}
	return out.Token, nil
}

func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	type record struct {
		ID string `json:"_id"`
	}
	ids := func(path string) ([]string, error) {
		var recs []record
		status, err := s.call(ctx, http.MethodGet, path, nil, &recs)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("%s answered %d", path, status)
		}
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.ID
		}
		return out, nil
	}

	pool := &DataPool{}
	var err error
	if pool.Doctors, err = ids("/api/doctors"); err != nil {
		return nil, err
	}
	if pool.Patients, err = ids("/api/patients"); err != nil {
		return nil, err
	}
	if len(pool.Doctors) == 0 || len(pool.Patients) == 0 {
		return nil, errors.New("no doctors or patients, run the seed command first")
	}
	return pool, nil
}

func (s *Simulator) Run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.config.Duration)
	defer cancel()

	s.log.Info().Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.UpdateRatio:
				s.doUpdate(ctx, rng)
			default:
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doListBy(ctx, "doctor", s.pool.Doctors, &s.metrics.ListByDoctor, rng)
				case 2:
					s.doListBy(ctx, "patient", s.pool.Patients, &s.metrics.ListByPatient, rng)
				}
			}
		}
	}
}

var (
	slots    = []string{"08:00", "09:00", "10:30", "13:00", "14:30", "16:00"}
	statuses = []string{"pending", "confirmed", "cancelled", "completed"}
)

func (s *Simulator) appointmentBody(rng *rand.Rand) map[string]string {
	return map[string]string{
		"doctor":  s.pool.Doctors[rng.Intn(len(s.pool.Doctors))],
		"patient": s.pool.Patients[rng.Intn(len(s.pool.Patients))],
		"date":    time.Now().AddDate(0, 0, rng.Intn(60)).Format("2006-01-02"),
		"time":    slots[rng.Intn(len(slots))],
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	var created struct {
		ID string `json:"_id"`
	}
	start := time.Now()
	status, _ := s.call(ctx, http.MethodPost, "/api/appointments", s.appointmentBody(rng), &created)
	s.metrics.Booking.Record(time.Since(start), status)

	if status == http.StatusCreated && created.ID != "" {
		s.pool.AddAppointment(created.ID)
	}
}

func (s *Simulator) doUpdate(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	body := s.appointmentBody(rng)
	body["status"] = statuses[rng.Intn(len(statuses))]

	start := time.Now()
	status, _ := s.call(ctx, http.MethodPut, "/api/appointments/"+id, body, nil)
	s.metrics.Update.Record(time.Since(start), status)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	start := time.Now()
	status, _ := s.call(ctx, http.MethodGet, "/api/appointments/"+id, nil, nil)
	s.metrics.ReadByID.Record(time.Since(start), status)
}

func (s *Simulator) doListBy(ctx context.Context, owner string, ids []string, om *OperationMetrics, rng *rand.Rand) {
	start := time.Now()
	status, _ := s.call(ctx, http.MethodGet, "/api/appointments/"+owner+"/"+ids[rng.Intn(len(ids))], nil, nil)
	om.Record(time.Since(start), status)
}

// call sends a JSON request with the bearer token and decodes a 2xx body into out.
// Transport failures report status 0.
func (s *Simulator) call(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Update", &s.metrics.Update)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Doctor", &s.metrics.ListByDoctor)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
