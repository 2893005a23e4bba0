package service

import (
	"context"
	"fmt"
	"strings"

	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
)

// CatalogService manages units, event types and events.
type CatalogService struct {
	catalog CatalogStore
}

func NewCatalogService(catalog CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) CreateUnit(ctx context.Context, req *models.CreateUnitRequest) (int64, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return 0, apperr.Validation("name is required")
	}

	unit := &models.Unit{Name: name}
	if err := s.catalog.CreateUnit(ctx, unit); err != nil {
		return 0, fmt.Errorf("failed to create unit: %w", err)
	}
	return unit.ID, nil
}

func (s *CatalogService) ListUnits(ctx context.Context) ([]models.Unit, error) {
	return s.catalog.ListUnits(ctx)
}

func (s *CatalogService) CreateEventType(ctx context.Context, req *models.CreateEventTypeRequest) (int64, error) {
	name, slug := strings.TrimSpace(req.Name), strings.TrimSpace(req.Slug)
	if name == "" || slug == "" {
		return 0, apperr.Validation("name and slug are required")
	}

	et := &models.EventType{Name: name, Slug: slug}
	if err := s.catalog.CreateEventType(ctx, et); err != nil {
		return 0, fmt.Errorf("failed to create event type: %w", err)
	}
	return et.ID, nil
}

func (s *CatalogService) ListEventTypes(ctx context.Context) ([]models.EventType, error) {
	return s.catalog.ListEventTypes(ctx)
}

func (s *CatalogService) CreateEvent(ctx context.Context, req *models.CreateEventRequest) (int64, error) {
	name, slug := strings.TrimSpace(req.Name), strings.TrimSpace(req.Slug)
	if name == "" || slug == "" {
		return 0, apperr.Validation("name and slug are required")
	}
	if req.PriceCents < 0 {
		return 0, apperr.Validation("price_cents must not be negative")
	}

	event := &models.Event{Name: name, Slug: slug, PriceCents: req.PriceCents}
	if err := s.catalog.CreateEvent(ctx, event); err != nil {
		return 0, fmt.Errorf("failed to create event: %w", err)
	}
	return event.ID, nil
}

func (s *CatalogService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.catalog.ListEvents(ctx)
}

// DeleteUnit, DeleteEventType and DeleteEvent answer Conflict while schedules
// still reference the row.
func (s *CatalogService) DeleteUnit(ctx context.Context, id int64) error {
	return s.catalog.DeleteUnit(ctx, id)
}

func (s *CatalogService) DeleteEventType(ctx context.Context, id int64) error {
	return s.catalog.DeleteEventType(ctx, id)
}

func (s *CatalogService) DeleteEvent(ctx context.Context, id int64) error {
	return s.catalog.DeleteEvent(ctx, id)
}
