package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"fastpayment/internal/config"
	"fastpayment/internal/database"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"

	"github.com/stretchr/testify/require"
)

// Integration tests need a running Postgres configured through the usual
// DB_* variables and INTEGRATION_TESTS=1.
func setupDB(t *testing.T) (*database.DB, *repository.Repositories) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("INTEGRATION_TESTS not set")
	}

	cfg := config.Load()
	db, err := database.Connect(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RunMigrations(context.Background()))
	return db, repository.NewRepositories(db)
}

// seedSchedule creates a fresh event, unit and type and one schedule with the given capacity.
func seedSchedule(t *testing.T, repos *repository.Repositories, vacancies int) *models.Schedule {
	t.Helper()
	ctx := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	unit := &models.Unit{Name: "Unit " + suffix}
	require.NoError(t, repos.Catalog.CreateUnit(ctx, unit))

	et := &models.EventType{Name: "Type " + suffix, Slug: "type-" + suffix}
	require.NoError(t, repos.Catalog.CreateEventType(ctx, et))

	event := &models.Event{Name: "Event " + suffix, Slug: "event-" + suffix, PriceCents: 5000}
	require.NoError(t, repos.Catalog.CreateEvent(ctx, event))

	schedule := &models.Schedule{
		EventID:     event.ID,
		UnitID:      unit.ID,
		EventTypeID: et.ID,
		ScheduledAt: time.Now().Add(48 * time.Hour).UTC(),
		Vacancies:   vacancies,
	}
	require.NoError(t, repos.Schedules.Create(ctx, schedule))
	return schedule
}

func seedPersons(t *testing.T, repos *repository.Repositories, n int) []*models.Person {
	t.Helper()
	suffix := time.Now().UnixNano()
	persons := make([]*models.Person, 0, n)
	for i := 0; i < n; i++ {
		p, err := repos.Persons.Upsert(context.Background(), fmt.Sprintf("buyer%d-%d@example.com", i, suffix), "Buyer", "")
		require.NoError(t, err)
		persons = append(persons, p)
	}
	return persons
}

// LogTestStep logs a test step
func LogTestStep(t *testing.T, step string, args ...interface{}) {
	t.Logf("🔹 "+step, args...)
}

// LogTestResult logs a test result
func LogTestResult(t *testing.T, result string, args ...interface{}) {
	t.Logf("✅ "+result, args...)
}
