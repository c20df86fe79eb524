package usecase_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindAll(ctx context.Context) ([]*entity.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, id string, status entity.LeadStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n entity.LeadNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// fakeSecurityBackend grava as chamadas em memória.
type fakeSecurityBackend struct {
	mu         sync.Mutex
	activities []entity.SuspiciousActivity
	events     []entity.SecurityEvent
	scanErr    error
	eventsErr  error
	scans      []int
}

func (f *fakeSecurityBackend) Scan(ctx context.Context, windowMinutes int) ([]entity.SuspiciousActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, windowMinutes)
	return f.activities, f.scanErr
}

func (f *fakeSecurityBackend) Cleanup(ctx context.Context) error {
	return nil
}

func (f *fakeSecurityBackend) LogEvent(ctx context.Context, eventType string, details map[string]any, severity entity.Severity) error {
	return nil
}

func (f *fakeSecurityBackend) CheckIPRateLimit(ctx context.Context, ip, operation string, maxAttempts, windowMinutes, blockMinutes int) (*entity.RateLimitResult, error) {
	return &entity.RateLimitResult{Allowed: true}, nil
}

func (f *fakeSecurityBackend) RecentEvents(ctx context.Context, limit int) ([]entity.SecurityEvent, error) {
	return f.events, f.eventsErr
}
