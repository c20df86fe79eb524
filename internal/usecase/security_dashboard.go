package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/metrics"
)

const (
	DefaultScanWindow      = 60 * time.Minute
	DefaultDashboardEvents = 50
)

// SecurityDashboardUseCase monta o painel sob demanda; nada fica guardado aqui.
type SecurityDashboardUseCase struct {
	Backend    entity.SecurityBackend
	ScanWindow time.Duration
	EventLimit int
	Now        func() time.Time
	Logger     *zap.Logger
}

func NewSecurityDashboardUseCase(backend entity.SecurityBackend, scanWindow time.Duration, logger *zap.Logger) *SecurityDashboardUseCase {
	if scanWindow <= 0 {
		scanWindow = DefaultScanWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityDashboardUseCase{
		Backend:    backend,
		ScanWindow: scanWindow,
		EventLimit: DefaultDashboardEvents,
		Now:        time.Now,
		Logger:     logger,
	}
}

func (uc *SecurityDashboardUseCase) Execute(ctx context.Context) (*SecurityDashboard, error) {
	activities, err := uc.Backend.Scan(ctx, int(uc.ScanWindow.Minutes()))
	if err != nil {
		uc.Logger.Error("falha no scan de atividade suspeita", zap.Error(err))
		return nil, &TechnicalError{Code: CodeSecurityBackend, Message: "no se pudo obtener la actividad sospechosa", Err: err}
	}

	events, err := uc.Backend.RecentEvents(ctx, uc.EventLimit)
	if err != nil {
		uc.Logger.Error("falha ao buscar eventos de segurança", zap.Error(err))
		return nil, &TechnicalError{Code: CodeSecurityBackend, Message: "no se pudieron obtener los eventos de seguridad", Err: err}
	}

	if activities == nil {
		activities = []entity.SuspiciousActivity{}
	}
	if events == nil {
		events = []entity.SecurityEvent{}
	}

	score := CalculateSecurityScore(activities)
	metrics.SetSecurityScore(score.Score)

	return &SecurityDashboard{
		Score:        score,
		Summary:      ClassifyActivities(activities),
		Activities:   activities,
		RecentEvents: events,
		GeneratedAt:  uc.Now().UTC(),
	}, nil
}
