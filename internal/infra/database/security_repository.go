package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

// Procedures de segurança instaladas pela migration do banco.
const (
	procDetectSuspicious = "detect_suspicious_activity"
	procCleanup          = "schedule_security_cleanup"
	procLogEvent         = "log_security_event"
	procCheckIPLimit     = "check_ip_rate_limit"
)

const securityEventsTable = "security_events"

type SecurityRepository struct {
	DB *sql.DB
	// Schema onde a migration instalou procedures e tabela; vazio usa o search_path.
	Schema string
}

func NewSecurityRepository(db *sql.DB) *SecurityRepository {
	return &SecurityRepository{DB: db}
}

// WithSchema vem de configuração, então o nome sempre passa por QuoteIdentifier.
func (r *SecurityRepository) WithSchema(schema string) *SecurityRepository {
	r.Schema = schema
	return r
}

func (r *SecurityRepository) ident(name string) string {
	if r.Schema == "" {
		return pq.QuoteIdentifier(name)
	}
	return pq.QuoteIdentifier(r.Schema) + "." + pq.QuoteIdentifier(name)
}

func (r *SecurityRepository) Scan(ctx context.Context, windowMinutes int) ([]entity.SuspiciousActivity, error) {
	query := fmt.Sprintf(`SELECT activity_type, identifier, attempt_count, first_seen, last_seen, severity, recommendation
		FROM %s($1)`, r.ident(procDetectSuspicious))

	rows, err := r.DB.QueryContext(ctx, query, windowMinutes)
	if err != nil {
		return nil, fmt.Errorf("erro ao detectar atividade suspeita: %w", err)
	}
	defer rows.Close()

	activities := []entity.SuspiciousActivity{}
	for rows.Next() {
		var (
			a              entity.SuspiciousActivity
			severity       string
			recommendation sql.NullString
		)
		if err := rows.Scan(&a.ActivityType, &a.Identifier, &a.AttemptCount, &a.FirstSeen, &a.LastSeen, &severity, &recommendation); err != nil {
			return nil, fmt.Errorf("erro ao escanear atividade: %w", err)
		}
		a.Severity = entity.Severity(severity)
		a.Recommendation = recommendation.String
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao detectar atividade suspeita: %w", err)
	}
	return activities, nil
}

func (r *SecurityRepository) Cleanup(ctx context.Context) error {
	query := fmt.Sprintf(`SELECT %s()`, r.ident(procCleanup))
	if _, err := r.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("erro na limpeza de segurança: %w", err)
	}
	return nil
}

func (r *SecurityRepository) LogEvent(ctx context.Context, eventType string, details map[string]any, severity entity.Severity) error {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("erro ao serializar detalhes do evento: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s($1, $2::jsonb, $3)`, r.ident(procLogEvent))
	if _, err := r.DB.ExecContext(ctx, query, eventType, string(payload), string(severity)); err != nil {
		return fmt.Errorf("erro ao registrar evento de segurança: %w", err)
	}
	return nil
}

// CheckIPRateLimit devolve o jsonb da procedure já decodificado.
func (r *SecurityRepository) CheckIPRateLimit(ctx context.Context, ip, operation string, maxAttempts, windowMinutes, blockMinutes int) (*entity.RateLimitResult, error) {
	query := fmt.Sprintf(`SELECT %s($1, $2, $3, $4, $5)`, r.ident(procCheckIPLimit))

	var raw []byte
	err := r.DB.QueryRowContext(ctx, query, ip, operation, maxAttempts, windowMinutes, blockMinutes).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("erro ao verificar limite por IP: %w", err)
	}

	var result entity.RateLimitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("resposta inválida de %s: %w", procCheckIPLimit, err)
	}
	return &result, nil
}

func (r *SecurityRepository) RecentEvents(ctx context.Context, limit int) ([]entity.SecurityEvent, error) {
	table := securityEventsTable
	if r.Schema != "" {
		table = r.ident(securityEventsTable)
	}
	query := fmt.Sprintf(`SELECT id, event_type, severity, actor, ip_address, user_agent, details, created_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT $1`, table)

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar eventos de segurança: %w", err)
	}
	defer rows.Close()

	events := []entity.SecurityEvent{}
	for rows.Next() {
		var (
			e                        entity.SecurityEvent
			severity                 string
			actor, ipAddr, userAgent sql.NullString
			details                  []byte
		)
		if err := rows.Scan(&e.ID, &e.EventType, &severity, &actor, &ipAddr, &userAgent, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("erro ao escanear evento: %w", err)
		}
		e.Severity = entity.Severity(severity)
		e.Actor = actor.String
		e.IPAddress = ipAddr.String
		e.UserAgent = userAgent.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("detalhes inválidos no evento %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao listar eventos de segurança: %w", err)
	}
	return events, nil
}
