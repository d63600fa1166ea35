package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/identity"
	"github.com/hackgods/practice-booking/internal/session"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	Days         int
	BookingRatio float64
	CancelRatio  float64
	ListRatio    float64
	PatientLimit int
}

// patient is a contact with pre-minted bearer tokens, so the run measures
// booking rather than the e-mailed second factor.
type patient struct {
	id            string
	checkedToken  string
	verifiedToken string
}

type booked struct {
	id      string
	patient *patient
}

type Simulator struct {
	config   SimConfig
	patients []*patient
	client   *http.Client
	metrics  Metrics

	mu     sync.Mutex
	booked []booked
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	base, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}
	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d days=%d booking=%.2f cancel=%.2f list=%.2f",
		cfg.Duration, cfg.Workers, cfg.Days, cfg.BookingRatio, cfg.CancelRatio, cfg.ListRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, base.PostgresDSN, db.PoolOptions{MaxConns: 2}, nil)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	issuer := session.NewIssuer(session.Config{
		Secret: base.Session.Secret,
		Issuer: base.Session.Issuer,
		TTL:    cfg.Duration + 5*time.Minute,
	})
	patients, err := loadPatients(ctx, pgPool, issuer, cfg.PatientLimit)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	log.Printf("loaded: %d patients", len(patients))

	sim := &Simulator{
		config:   cfg,
		patients: patients,
		client:   &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.metrics.Print(cfg.Duration, cfg.Workers)
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		Days:         getInt("SIM_DAYS", 5),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ListRatio:    getFloat("SIM_LIST_RATIO", 0.3),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 1000),
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ListRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ListRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("SIM_DAYS must be > 0")
	}
	return nil
}

func loadPatients(ctx context.Context, pool *pgxpool.Pool, issuer *session.Issuer, limit int) ([]*patient, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, last_name, first_name, email FROM contacts ORDER BY id LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []*patient
	for rows.Next() {
		var s identity.Session
		if err := rows.Scan(&s.PatientID, &s.LastName, &s.FirstName, &s.Email); err != nil {
			return nil, err
		}

		p := &patient{id: s.PatientID}
		if p.checkedToken, _, err = issuer.Issue(s); err != nil {
			return nil, err
		}
		s.Verified = true
		if p.verifiedToken, _, err = issuer.Issue(s); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no contacts loaded, run cmd/seed first")
	}
	return out, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		p := s.patients[rng.Intn(len(s.patients))]

		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng, p)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, rng)
		default:
			s.doList(ctx, p)
		}
	}
}

// doBooking looks up the offers for a random upcoming day and books one of them.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, p *patient) {
	day := appointment.StartOfDay(time.Now()).AddDate(0, 0, 1+rng.Intn(s.config.Days))
	date := appointment.FormatDate(day)

	var offers struct {
		Slots []struct {
			StartMinute int `json:"start_minute"`
		} `json:"slots"`
	}
	status, latency, err := s.call(ctx, http.MethodGet, "/api/slots?date="+date, p.checkedToken, nil, &offers)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		status = 0
	}
	s.metrics.Slots.Record(latency, classify(status, http.StatusOK))
	if status != http.StatusOK || len(offers.Slots) == 0 {
		return
	}

	start := offers.Slots[rng.Intn(len(offers.Slots))].StartMinute
	var created struct {
		ID string `json:"id"`
	}
	status, latency, err = s.call(ctx, http.MethodPost, "/api/appointments", p.checkedToken, map[string]any{
		"date":         date,
		"start_minute": start,
		"reason":       "load test",
	}, &created)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		status = 0
	}
	s.metrics.Booking.Record(latency, classify(status, http.StatusCreated))

	if status == http.StatusCreated && created.ID != "" {
		s.mu.Lock()
		s.booked = append(s.booked, booked{id: created.ID, patient: p})
		s.mu.Unlock()
	}
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	s.mu.Lock()
	if len(s.booked) == 0 {
		s.mu.Unlock()
		return
	}
	i := rng.Intn(len(s.booked))
	b := s.booked[i]
	s.booked = append(s.booked[:i], s.booked[i+1:]...)
	s.mu.Unlock()

	status, latency, err := s.call(ctx, http.MethodDelete, "/api/appointments/"+b.id, b.patient.verifiedToken, nil, nil)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		status = 0
	}
	s.metrics.Cancel.Record(latency, classify(status, http.StatusNoContent))
}

func (s *Simulator) doList(ctx context.Context, p *patient) {
	status, latency, err := s.call(ctx, http.MethodGet, "/api/appointments", p.verifiedToken, nil, nil)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		status = 0
	}
	s.metrics.List.Record(latency, classify(status, http.StatusOK))
}

func (s *Simulator) call(ctx context.Context, method, path, token string, body, out any) (int, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, latency, nil
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
