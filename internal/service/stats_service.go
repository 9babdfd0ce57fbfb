package service

import (
	"context"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/repository"
)

// StatsService serves the super-admin dashboard aggregates.
type StatsService struct {
	stats repository.StatsRepository
}

// NewStatsService builds the service.
func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats}
}

// Dashboard returns entity counts grouped by status plus invoice totals.
func (s *StatsService) Dashboard(ctx context.Context, actor *domain.User) (*repository.DashboardStats, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	return s.stats.Dashboard(ctx)
}
