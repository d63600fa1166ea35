package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/db"
)

var reasons = []string{
	"Checkup",
	"Vaccination",
	"Blood test",
	"Follow-up",
	"Prescription renewal",
	"Back pain",
	"",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	contacts := flag.Int("contacts", 500, "number of contacts to create")
	days := flag.Int("days", 14, "number of days, starting today, to fill with appointments")
	perDay := flag.Int("per-day", 8, "maximum appointments per day")
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	area := envOr("AREA", "practice")
	created := envOr("CREATED_STATUS", "scheduled")
	cancelled := envOr("CANCELLED_STATUS", "cancelled")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{}, nil)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool, db.SchemaOptions{
		CancelledLabel: cancelled,
		SkipSlotIndex:  os.Getenv("UNIQUE_SLOT_INDEX") == "false",
	}); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	ids, err := seedContacts(context.Background(), pool, *contacts)
	if err != nil {
		log.Fatalf("seed contacts: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, ids, area, created, cancelled, *days, *perDay); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func seedContacts(ctx context.Context, pool *pgxpool.Pool, count int) ([]string, error) {
	log.Printf("seeding %d contacts", count)

	const batchSize = 500
	ids := make([]string, 0, count)
	oldest := time.Date(1930, 1, 1, 0, 0, 0, 0, appointment.Location)
	youngest := time.Now().AddDate(-1, 0, 0)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.NewString()
			born := gofakeit.DateRange(oldest, youngest)
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO contacts (id, last_name, first_name, birthdate, email)
				VALUES ($1, $2, $3, $4, $5)
			`, id, gofakeit.LastName(), gofakeit.FirstName(), appointment.EncodeDay(born), email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			if i == 0 {
				log.Printf("sample login: birthdate=%s email=%s", appointment.FormatDate(born), email)
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("contacts seeded: %d/%d", end, count)
	}

	return ids, nil
}

// seedAppointments fills the calendar with quarter-hour aligned bookings
// between 08:00 and 17:45. Colliding starts are skipped by the unique index.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, patients []string, area, created, cancelled string, days, perDay int) error {
	if len(patients) == 0 {
		return nil
	}
	log.Printf("seeding up to %d appointments per day for %d days", perDay, days)

	durations := []int{15, 30, 45, 60}
	today := appointment.StartOfDay(time.Now())
	inserted := 0

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for d := 0; d < days; d++ {
		day := today.AddDate(0, 0, d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		n := gofakeit.Number(0, perDay)
		for i := 0; i < n; i++ {
			status := created
			if gofakeit.Number(1, 10) == 1 {
				status = cancelled
			}

			tag, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, area, day, start_minute, duration_minutes, kind, status, reason, patient_id, created_by, created_at, deleted)
				VALUES ($1, $2, $3, $4, $5, 'practice', $6, $7, $8, 'seed', now(), false)
				ON CONFLICT DO NOTHING
			`,
				uuid.NewString(),
				area,
				appointment.EncodeDay(day),
				480+15*gofakeit.Number(0, 39),
				durations[gofakeit.Number(0, len(durations)-1)],
				status,
				gofakeit.RandomString(reasons),
				patients[gofakeit.Number(0, len(patients)-1)],
			)
			if err != nil {
				return err
			}
			inserted += int(tag.RowsAffected())
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", inserted)
	return nil
}
