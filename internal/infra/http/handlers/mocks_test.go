package handlers_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/worker"
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

type fakeBackend struct {
	activities []entity.SuspiciousActivity
	events     []entity.SecurityEvent
	err        error
}

func (f *fakeBackend) Scan(context.Context, int) ([]entity.SuspiciousActivity, error) {
	return f.activities, f.err
}

func (f *fakeBackend) Cleanup(context.Context) error { return nil }

func (f *fakeBackend) LogEvent(context.Context, string, map[string]any, entity.Severity) error {
	return nil
}

func (f *fakeBackend) CheckIPRateLimit(context.Context, string, string, int, int, int) (*entity.RateLimitResult, error) {
	return &entity.RateLimitResult{Allowed: true}, nil
}

func (f *fakeBackend) RecentEvents(context.Context, int) ([]entity.SecurityEvent, error) {
	return f.events, nil
}

type fakeTasks struct {
	mu      sync.Mutex
	running map[string]bool
}

func (f *fakeTasks) Running() []worker.TaskInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []worker.TaskInfo
	for _, name := range []string{worker.TaskCleanup, worker.TaskMonitoring, worker.TaskPerformance} {
		if f.running[name] {
			out = append(out, worker.TaskInfo{Name: name, Interval: 1})
		}
	}
	return out
}

func (f *fakeTasks) Stop(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running[name] {
		return false
	}
	delete(f.running, name)
	return true
}
