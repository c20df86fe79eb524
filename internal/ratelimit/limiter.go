package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

// Policy define quantas tentativas cabem numa janela.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultLeadPolicy: 3 envios por hora para cada formulário+email.
var DefaultLeadPolicy = Policy{MaxAttempts: 3, Window: time.Hour}

// Limiter é um contador de janela fixa ancorada na primeira tentativa.
// O estado vive só na memória do processo; reiniciar zera tudo.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entity.RateLimitEntry
	policy  Policy
	now     func() time.Time
}

type Option func(*Limiter)

// WithClock troca o relógio (usado nos testes).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(policy Policy, opts ...Option) *Limiter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultLeadPolicy.MaxAttempts
	}
	if policy.Window <= 0 {
		policy.Window = DefaultLeadPolicy.Window
	}

	l := &Limiter{
		entries: make(map[string]*entity.RateLimitEntry),
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LeadKey monta o identificador "formType:email".
func LeadKey(formType, email string) string {
	return formType + ":" + strings.ToLower(strings.TrimSpace(email))
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictExpired(now)

	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entity.RateLimitEntry{
			Identifier:   key,
			Count:        1,
			FirstAttempt: now,
			LastAttempt:  now,
		}
		return true
	}

	e.LastAttempt = now
	if e.Count >= l.policy.MaxAttempts {
		return false
	}
	e.Count++
	return true
}

// Remaining devolve quantas tentativas ainda cabem na janela atual.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[key]
	if !exists || l.expired(e, l.now()) {
		return l.policy.MaxAttempts
	}
	return l.policy.MaxAttempts - e.Count
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len conta as chaves em memória, incluindo as ainda não despejadas.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) Policy() Policy {
	return l.policy
}

func (l *Limiter) expired(e *entity.RateLimitEntry, now time.Time) bool {
	return now.Sub(e.FirstAttempt) > l.policy.Window
}

// Despejo preguiçoso: roda a cada Allow, sem goroutine de limpeza.
func (l *Limiter) evictExpired(now time.Time) {
	for key, e := range l.entries {
		if l.expired(e, now) {
			delete(l.entries, key)
		}
	}
}
