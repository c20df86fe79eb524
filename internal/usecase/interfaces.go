package usecase

import (
	"context"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

type LeadRepositoryInterface = entity.LeadRepositoryInterface

// RateLimiter é satisfeito por *ratelimit.Limiter.
type RateLimiter interface {
	Allow(key string) bool
}

// Notifier avisa a equipe sobre um lead novo. Falhas não derrubam o envio do formulário.
type Notifier interface {
	Notify(ctx context.Context, n entity.LeadNotification) error
}

// IPOperationLeadSubmit é a operação registrada em check_ip_rate_limit.
const IPOperationLeadSubmit = "lead_submit"

// IPRateChecker é satisfeito por *database.SecurityRepository.
type IPRateChecker interface {
	CheckIPRateLimit(ctx context.Context, ip, operation string, maxAttempts, windowMinutes, blockMinutes int) (*entity.RateLimitResult, error)
}

type IPRatePolicy struct {
	Operation     string
	MaxAttempts   int
	WindowMinutes int
	BlockMinutes  int
}
