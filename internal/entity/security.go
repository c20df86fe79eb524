package entity

import (
	"context"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsAlert indica se a severidade exige um evento de alerta próprio.
func (s Severity) IsAlert() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// SecurityEvent é gravado pelas procedures do banco. O serviço só lê.
type SecurityEvent struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	Severity  Severity       `json:"severity"`
	Actor     string         `json:"actor,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SuspiciousActivity vem de detect_suspicious_activity.
type SuspiciousActivity struct {
	ActivityType   string    `json:"activity_type"`
	Identifier     string    `json:"identifier"`
	AttemptCount   int       `json:"attempt_count"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	Severity       Severity  `json:"severity"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// RateLimitResult é a resposta de check_ip_rate_limit.
type RateLimitResult struct {
	Allowed      bool       `json:"allowed"`
	Attempts     int        `json:"attempts"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

// RateLimitEntry é o contador em memória de uma chave (ex: "contact:ana@example.com").
type RateLimitEntry struct {
	Identifier   string
	Count        int
	FirstAttempt time.Time
	LastAttempt  time.Time
}

// SecurityBackend abstrai as procedures de segurança do banco.
type SecurityBackend interface {
	Scan(ctx context.Context, windowMinutes int) ([]SuspiciousActivity, error)
	Cleanup(ctx context.Context) error
	LogEvent(ctx context.Context, eventType string, details map[string]any, severity Severity) error
	CheckIPRateLimit(ctx context.Context, ip, operation string, maxAttempts, windowMinutes, blockMinutes int) (*RateLimitResult, error)
	RecentEvents(ctx context.Context, limit int) ([]SecurityEvent, error)
}
