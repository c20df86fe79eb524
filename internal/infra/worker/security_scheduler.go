package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/metrics"
	"github.com/xavierca1/gestion-leads/internal/usecase"
)

const (
	TaskCleanup     = "cleanup"
	TaskMonitoring  = "monitoring"
	TaskPerformance = "performance"
)

const (
	EventTaskFailed             = "scheduled_task_failed"
	EventSecurityAlert          = "security_alert"
	EventPerformanceMaintenance = "performance_maintenance"
	defaultCleanupEvery         = 24 * time.Hour
	defaultMonitorEvery         = 60 * time.Minute
	defaultScanWindow           = 60 * time.Minute
	defaultPerfMaintEvery       = 7 * 24 * time.Hour
)

var ErrSchedulerRunning = errors.New("security scheduler já está rodando")

type SchedulerConfig struct {
	CleanupInterval     time.Duration
	MonitoringInterval  time.Duration
	ScanWindow          time.Duration
	PerformanceInterval time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = defaultCleanupEvery
	}
	if c.MonitoringInterval <= 0 {
		c.MonitoringInterval = defaultMonitorEvery
	}
	if c.ScanWindow <= 0 {
		c.ScanWindow = defaultScanWindow
	}
	if c.PerformanceInterval <= 0 {
		c.PerformanceInterval = defaultPerfMaintEvery
	}
	return c
}

// TaskInfo descreve um timer ativo.
type TaskInfo struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	StartedAt time.Time     `json:"started_at"`
}

type task struct {
	info   TaskInfo
	cancel context.CancelFunc
}

// SecurityScheduler roda os jobs de segurança, um goroutine por tarefa.
type SecurityScheduler struct {
	backend entity.SecurityBackend
	cfg     SchedulerConfig
	logger  *zap.Logger

	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

func NewSecurityScheduler(backend entity.SecurityBackend, cfg SchedulerConfig, logger *zap.Logger) *SecurityScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityScheduler{
		backend: backend,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		tasks:   make(map[string]*task),
	}
}

// Start agenda as três tarefas. Limpeza e monitoramento rodam já na partida;
// a manutenção semanal só no primeiro tick.
func (s *SecurityScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) > 0 {
		return ErrSchedulerRunning
	}

	s.startTask(ctx, TaskCleanup, s.cfg.CleanupInterval, true, s.RunCleanup)
	s.startTask(ctx, TaskMonitoring, s.cfg.MonitoringInterval, true, s.RunMonitoring)
	s.startTask(ctx, TaskPerformance, s.cfg.PerformanceInterval, false, s.RunPerformance)

	s.logger.Info("🛡️ Security scheduler iniciado",
		zap.Duration("cleanup", s.cfg.CleanupInterval),
		zap.Duration("monitoring", s.cfg.MonitoringInterval),
		zap.Duration("performance", s.cfg.PerformanceInterval),
	)
	return nil
}

// startTask exige s.mu travado.
func (s *SecurityScheduler) startTask(parent context.Context, name string, interval time.Duration, immediate bool, job func(context.Context) error) {
	ctx, cancel := context.WithCancel(parent)
	t := &task{
		info:   TaskInfo{Name: name, Interval: interval, StartedAt: time.Now().UTC()},
		cancel: cancel,
	}
	s.tasks[name] = t

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(name, t)
		s.loop(ctx, name, interval, immediate, job)
	}()
}

func (s *SecurityScheduler) loop(ctx context.Context, name string, interval time.Duration, immediate bool, job func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		s.run(ctx, name, job)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("⚠️ Tarefa de segurança encerrada", zap.String("task", name))
			return
		case <-ticker.C:
			s.run(ctx, name, job)
		}
	}
}

// run executa um tick. Nenhum erro ou panic sai daqui.
func (s *SecurityScheduler) run(ctx context.Context, name string, job func(context.Context) error) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		metrics.RecordSecurityJob(name, err)
		if err != nil {
			s.logger.Error("❌ Falha na tarefa de segurança", zap.String("task", name), zap.Error(err))
			s.reportFailure(ctx, name, err)
		}
	}()

	err = job(ctx)
}

func (s *SecurityScheduler) reportFailure(ctx context.Context, name string, cause error) {
	if ctx.Err() != nil {
		return
	}
	details := map[string]any{
		"task":  name,
		"error": cause.Error(),
	}
	if err := s.backend.LogEvent(ctx, EventTaskFailed, details, entity.SeverityMedium); err != nil {
		s.logger.Warn("não foi possível registrar a falha da tarefa", zap.String("task", name), zap.Error(err))
	}
}

func (s *SecurityScheduler) RunCleanup(ctx context.Context) error {
	if err := s.backend.Cleanup(ctx); err != nil {
		return err
	}
	s.logger.Info("🧹 Limpeza de segurança concluída")
	return nil
}

// RunMonitoring varre a janela recente e promove high/critical a security_alert.
func (s *SecurityScheduler) RunMonitoring(ctx context.Context) error {
	window := int(s.cfg.ScanWindow.Minutes())
	activities, err := s.backend.Scan(ctx, window)
	if err != nil {
		return err
	}

	score := usecase.CalculateSecurityScore(activities)
	metrics.SetSecurityScore(score.Score)

	summary := usecase.ClassifyActivities(activities)
	if len(summary.Alerts) == 0 {
		s.logger.Debug("monitoramento sem alertas",
			zap.Int("activities", summary.Total()),
			zap.Int("score", score.Score),
		)
		return nil
	}

	s.logger.Warn("🚨 Atividade suspeita detectada",
		zap.Int("critical", summary.Critical),
		zap.Int("high", summary.High),
		zap.Int("score", score.Score),
		zap.String("level", string(score.Level)),
	)

	var errs []error
	for _, a := range summary.Alerts {
		details := map[string]any{
			"activity_type":  a.ActivityType,
			"identifier":     a.Identifier,
			"attempt_count":  a.AttemptCount,
			"first_seen":     a.FirstSeen,
			"last_seen":      a.LastSeen,
			"recommendation": a.Recommendation,
		}
		if err := s.backend.LogEvent(ctx, EventSecurityAlert, details, a.Severity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *SecurityScheduler) RunPerformance(ctx context.Context) error {
	if err := s.backend.Cleanup(ctx); err != nil {
		return err
	}
	details := map[string]any{"task": TaskPerformance}
	if err := s.backend.LogEvent(ctx, EventPerformanceMaintenance, details, entity.SeverityLow); err != nil {
		return err
	}
	s.logger.Info("⚙️ Manutenção de performance concluída")
	return nil
}

// Stop cancela uma tarefa pelo nome. Retorna false se ela não estava rodando.
func (s *SecurityScheduler) Stop(name string) bool {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	t.cancel()
	return true
}

// StopAll cancela tudo e espera os goroutines saírem.
func (s *SecurityScheduler) StopAll() {
	s.mu.Lock()
	for name, t := range s.tasks {
		t.cancel()
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Security scheduler parado")
}

func (s *SecurityScheduler) Running() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *SecurityScheduler) forget(name string, t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks[name] == t {
		delete(s.tasks, name)
	}
}
