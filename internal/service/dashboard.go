package service

import (
	"context"
	"fmt"

	"fastpayment/internal/logger"
	"fastpayment/internal/models"
	"fastpayment/internal/search"
)

const dashboardLimit = 200

// DashboardService serves the admin report and the audit trail.
type DashboardService struct {
	dashboard DashboardStore
	history   HistoryStore
	searcher  HistorySearcher
}

func NewDashboardService(dashboard DashboardStore, history HistoryStore, searcher HistorySearcher) *DashboardService {
	return &DashboardService{dashboard: dashboard, history: history, searcher: searcher}
}

func (s *DashboardService) Dashboard(ctx context.Context) (*models.DashboardResponse, error) {
	entries, err := s.dashboard.Report(ctx, dashboardLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	stats, err := s.dashboard.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return &models.DashboardResponse{Entries: entries, Stats: stats}, nil
}

// SearchHistory queries the audit index. Without an index, or when it fails,
// it falls back to the newest rows of the history table.
func (s *DashboardService) SearchHistory(ctx context.Context, q search.HistoryQuery) ([]models.HistoryLog, int64, error) {
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}

	if s.searcher != nil {
		logs, total, err := s.searcher.SearchHistory(ctx, q)
		if err == nil {
			return logs, total, nil
		}
		logger.WithContext(ctx).Warn("History search failed, reading from database", "error", err)
	}

	logs, err := s.history.Recent(ctx, q.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read history: %w", err)
	}
	return logs, int64(len(logs)), nil
}
