package service

import (
	"context"
	"fmt"
	"strings"

	"fastpayment/internal/clock"
	"fastpayment/internal/config"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/logger"
	"fastpayment/internal/metrics"
	"fastpayment/internal/models"
)

// ScheduleService управляет жизненным циклом расписаний
type ScheduleService struct {
	schedules ScheduleStore
	catalog   CatalogStore
	clock     clock.Clock
	policy    config.SchedulePolicy
}

func NewScheduleService(schedules ScheduleStore, catalog CatalogStore, clk clock.Clock, policy config.SchedulePolicy) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		catalog:   catalog,
		clock:     clk,
		policy:    policy,
	}
}

// Sweep closes every available schedule whose start time has passed.
func (s *ScheduleService) Sweep(ctx context.Context) (int64, error) {
	closed, err := s.schedules.Sweep(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep schedules: %w", err)
	}

	metrics.RecordSweep(closed)
	if closed > 0 {
		logger.WithContext(ctx).Info("Closed past schedules", "count", closed)
	}
	return closed, nil
}

// ListAvailable возвращает открытые для записи расписания
func (s *ScheduleService) ListAvailable(ctx context.Context, slug, typeSlug string) ([]models.ScheduleView, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	views, err := s.schedules.ListAvailable(ctx, slug, typeSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return views, nil
}

func (s *ScheduleService) ListAll(ctx context.Context) ([]models.ScheduleView, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	views, err := s.schedules.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return views, nil
}

// Create validates lead time, capacity and catalog references before
// inserting an available schedule.
func (s *ScheduleService) Create(ctx context.Context, req *models.CreateScheduleRequest) (int64, error) {
	now := s.clock.Now()

	if req.Vacancies < 1 {
		return 0, apperr.Validation("vacancies must be at least 1")
	}
	earliest := now.Add(s.policy.MinLeadTime)
	if req.ScheduledAt.Before(earliest) {
		return 0, apperr.Validation("scheduled_at must be at least %s after now", s.policy.MinLeadTime)
	}

	missing, err := s.catalog.MissingReferences(ctx, req.EventID, req.UnitID, req.EventTypeID)
	if err != nil {
		return 0, fmt.Errorf("failed to check references: %w", err)
	}
	if len(missing) > 0 {
		return 0, apperr.Validation("unknown %s", strings.Join(missing, ", "))
	}

	schedule := &models.Schedule{
		EventID:     req.EventID,
		UnitID:      req.UnitID,
		EventTypeID: req.EventTypeID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Vacancies:   req.Vacancies,
		Status:      models.ScheduleAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return 0, fmt.Errorf("failed to create schedule: %w", err)
	}

	logger.WithContext(ctx).Info("Schedule created",
		"schedule_id", schedule.ID,
		"event_id", schedule.EventID,
		"vacancies", schedule.Vacancies)
	return schedule.ID, nil
}

func (s *ScheduleService) Delete(ctx context.Context, id int64) error {
	if err := s.schedules.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	logger.WithContext(ctx).Info("Schedule deleted", "schedule_id", id)
	return nil
}

// AdjustVacancies sets the remaining capacity. Zero closes the schedule; a
// closed schedule reopens only when the reopen policy is enabled.
func (s *ScheduleService) AdjustVacancies(ctx context.Context, id int64, vacancies int) (*models.Schedule, error) {
	if vacancies < 0 {
		return nil, apperr.Validation("vacancies must not be negative")
	}

	now := s.clock.Now()
	schedule, err := s.schedules.SetVacancies(ctx, id, vacancies, s.policy.ReopenOnCapacity, now.Add(s.policy.ReopenMargin), now)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust vacancies: %w", err)
	}

	logger.WithContext(ctx).Info("Schedule vacancies adjusted",
		"schedule_id", id,
		"vacancies", schedule.Vacancies,
		"status", schedule.Status)
	return schedule, nil
}
