package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"fastpayment/internal/auth"
	"fastpayment/internal/config"
	"fastpayment/internal/database"
	"fastpayment/internal/logger"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"
)

var (
	adminEmail    = flag.String("admin-email", os.Getenv("SEED_ADMIN_EMAIL"), "Admin account email")
	adminPassword = flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "Admin account password")
	demo          = flag.Bool("demo", false, "Create a demo catalog with upcoming schedules")
	days          = flag.Int("days", 14, "Spread demo schedules over this many days")
	dryRun        = flag.Bool("dry-run", false, "Show what would be created without making changes")
)

type Seeder struct {
	repos *repository.Repositories
	now   time.Time
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting seeder...")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	seeder := &Seeder{repos: repository.NewRepositories(db), now: time.Now().UTC()}

	if *adminEmail != "" {
		if err := seeder.SeedAdmin(ctx, *adminEmail, *adminPassword); err != nil {
			logger.Fatal("Failed to seed admin", "error", err)
		}
	}

	if *demo {
		if err := seeder.SeedCatalog(ctx); err != nil {
			logger.Fatal("Failed to seed catalog", "error", err)
		}
	}

	slog.Info("Seeding completed successfully!")
}

func (s *Seeder) SeedAdmin(ctx context.Context, email, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	if *dryRun {
		slog.Info("[DRY RUN] Would create admin", "email", email)
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin, err := s.repos.Persons.UpsertAdmin(ctx, email, "Administrator", hash)
	if err != nil {
		return err
	}
	slog.Info("Admin ready", "person_id", admin.ID, "email", admin.Email)
	return nil
}

type demoEvent struct {
	name       string
	slug       string
	priceCents int64
}

var demoEvents = []demoEvent{
	{name: "Pilates", slug: "pilates", priceCents: 4500},
	{name: "Yoga", slug: "yoga", priceCents: 3990},
	{name: "Functional Training", slug: "functional", priceCents: 5500},
}

func (s *Seeder) SeedCatalog(ctx context.Context) error {
	existing, err := s.repos.Catalog.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("Catalog already has events, skipping demo data", "existing_count", len(existing))
		return nil
	}

	if *dryRun {
		slog.Info("[DRY RUN] Would create demo catalog", "events", len(demoEvents), "days", *days)
		return nil
	}

	unit := &models.Unit{Name: "Downtown Studio"}
	if err := s.repos.Catalog.CreateUnit(ctx, unit); err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}

	eventType := &models.EventType{Name: "Class", Slug: "class"}
	if err := s.repos.Catalog.CreateEventType(ctx, eventType); err != nil {
		return fmt.Errorf("failed to create event type: %w", err)
	}

	created := 0
	for _, de := range demoEvents {
		event := &models.Event{Name: de.name, Slug: de.slug, PriceCents: de.priceCents}
		if err := s.repos.Catalog.CreateEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to create event %s: %w", de.slug, err)
		}

		for day := 1; day <= *days; day++ {
			start := time.Date(s.now.Year(), s.now.Month(), s.now.Day()+day, 8+rand.Intn(10), 0, 0, 0, time.UTC)
			schedule := &models.Schedule{
				EventID:     event.ID,
				UnitID:      unit.ID,
				EventTypeID: eventType.ID,
				ScheduledAt: start,
				Vacancies:   rand.Intn(16) + 5,
			}
			if err := s.repos.Schedules.Create(ctx, schedule); err != nil {
				slog.Error("Failed to create schedule", "event_id", event.ID, "scheduled_at", start, "error", err)
				continue
			}
			created++
		}
		slog.Info("Generated schedules for event", "event_id", event.ID, "name", event.Name)
	}

	slog.Info("Demo catalog created", "schedules", created)
	return nil
}
