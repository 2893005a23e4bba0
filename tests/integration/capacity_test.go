package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacity_ConcurrentCommitsNeverOversell(t *testing.T) {
	_, repos := setupDB(t)
	ctx := context.Background()

	const capacity, buyers = 3, 12
	schedule := seedSchedule(t, repos, capacity)
	persons := seedPersons(t, repos, buyers)
	LogTestStep(t, "Schedule %d with %d seats, %d concurrent buyers", schedule.ID, capacity, buyers)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
		noVacancy int
	)
	for i, p := range persons {
		wg.Add(1)
		go func(i int, p *models.Person) {
			defer wg.Done()
			_, err := repos.Subscriptions.Complete(ctx, repository.CommitInput{
				PersonID:   p.ID,
				ScheduleID: schedule.ID,
				PaymentID:  fmt.Sprintf("it-%d-%d", schedule.ID, i),
				Now:        time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				confirmed++
			case errors.Is(err, apperr.ErrNoVacancy):
				noVacancy++
			default:
				t.Errorf("unexpected commit error: %v", err)
			}
		}(i, p)
	}
	wg.Wait()

	assert.Equal(t, capacity, confirmed)
	assert.Equal(t, buyers-capacity, noVacancy)

	after, err := repos.Schedules.GetByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Vacancies)
	assert.Equal(t, models.ScheduleUnavailable, after.Status)
	LogTestResult(t, "%d confirmed, %d rejected for lack of vacancy", confirmed, noVacancy)
}

func TestReconcile_RedeliveredApprovalCommitsOnce(t *testing.T) {
	_, repos := setupDB(t)
	ctx := context.Background()

	schedule := seedSchedule(t, repos, 5)
	person := seedPersons(t, repos, 1)[0]
	providerID := fmt.Sprintf("mp-%d", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		out, err := repos.Payments.Reconcile(ctx, repository.ReconcileInput{
			ProviderPaymentID: providerID,
			ExternalReference: fmt.Sprintf("FP-%d-%d-it", person.ID, schedule.ID),
			Status:            models.PaymentApproved,
			ProviderStatus:    "approved",
			PayerEmail:        person.Email,
			AmountCents:       5000,
			Currency:          "BRL",
			PersonID:          &person.ID,
			ScheduleID:        &schedule.ID,
			Now:               time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, i == 0, out.Transitioned)

		existing, err := repos.Subscriptions.GetRegistrationByPaymentID(ctx, providerID)
		require.NoError(t, err)
		if existing != nil {
			continue
		}
		_, err = repos.Subscriptions.Complete(ctx, repository.CommitInput{
			PersonID:   person.ID,
			ScheduleID: schedule.ID,
			PaymentID:  providerID,
			Now:        time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	after, err := repos.Schedules.GetByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, after.Vacancies)
}
