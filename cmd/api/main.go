package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/config"
	"github.com/xavierca1/gestion-leads/internal/infra/database"
	"github.com/xavierca1/gestion-leads/internal/infra/http/handlers"
	"github.com/xavierca1/gestion-leads/internal/infra/http/middleware"
	"github.com/xavierca1/gestion-leads/internal/infra/http/router"
	"github.com/xavierca1/gestion-leads/internal/infra/integration/kommo"
	"github.com/xavierca1/gestion-leads/internal/infra/integration/whatsapp"
	"github.com/xavierca1/gestion-leads/internal/infra/mail"
	"github.com/xavierca1/gestion-leads/internal/infra/queue"
	"github.com/xavierca1/gestion-leads/internal/infra/worker"
	"github.com/xavierca1/gestion-leads/internal/ratelimit"
	"github.com/xavierca1/gestion-leads/internal/usecase"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger ainda não existe
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("servidor encerrado com erro", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger.With(zap.String("service", "gestion-leads"))
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("✅ Banco conectado")

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db)
	securityRepo := database.NewSecurityRepository(db).WithSchema(cfg.SecuritySchema)

	// 2. Canais de aviso
	var emailNotifier *mail.LeadNotifier
	if cfg.MailEnabled() {
		sender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.NotifyTo)
		emailNotifier = mail.NewLeadNotifier(sender, logger)
	} else {
		logger.Warn("⚠️ MAIL_HOST/NOTIFY_TO não configurados, avisos por email desligados")
	}

	var notifiers usecase.MultiNotifier
	var channels []string
	var broker handlers.BrokerHealth

	if cfg.AMQPURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()
		broker = rabbitMQ

		// o email sai pelo worker; o formulário só publica
		notifiers = append(notifiers, queue.NewProducer(rabbitMQ.Ch))
		channels = append(channels, "queue")
		if emailNotifier != nil {
			channels = append(channels, "email")
			consumer := queue.NewWorker(rabbitMQ.Ch, emailNotifier, logger)
			go func() {
				if err := consumer.Run(ctx, queue.QueueName); err != nil {
					logger.Error("worker da fila parou", zap.Error(err))
				}
			}()
		}
	} else if emailNotifier != nil {
		notifiers = append(notifiers, emailNotifier)
		channels = append(channels, "email")
	}

	if cfg.KommoEnabled() {
		notifiers = append(notifiers, kommo.NewClient(cfg.KommoBaseURL, cfg.KommoAPIToken, cfg.KommoStatusID, &http.Client{Timeout: 10 * time.Second}, logger))
		channels = append(channels, "kommo")
	}

	if cfg.WhatsAppEnabled() {
		notifiers = append(notifiers, whatsapp.NewClient(whatsapp.Config{
			BaseURL:     cfg.WhatsAppBaseURL,
			AccessToken: cfg.WhatsAppAccessToken,
			PhoneID:     cfg.WhatsAppPhoneID,
			NotifyTo:    cfg.WhatsAppNotifyTo,
			Template:    cfg.WhatsAppTemplate,
		}, &http.Client{Timeout: 10 * time.Second}, logger))
		channels = append(channels, "whatsapp")
	}
	if len(channels) == 0 {
		logger.Warn("⚠️ nenhum canal de notificação configurado, leads só serão salvos")
	}

	// 3. UseCases
	limiter := ratelimit.New(ratelimit.Policy{
		MaxAttempts: cfg.LeadRateLimitMax,
		Window:      cfg.LeadRateLimitWindow,
	})

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("timezone inválida, usando UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}

	submitUC := usecase.NewSubmitLeadUseCase(leadRepo, notifiers, limiter, logger)
	if cfg.IPRateLimitEnabled {
		// roda depois do limite em memória: bloqueio por email não chega ao banco
		submitUC.WithIPRateLimit(securityRepo, usecase.IPRatePolicy{
			Operation:     usecase.IPOperationLeadSubmit,
			MaxAttempts:   cfg.IPRateLimitMax,
			WindowMinutes: cfg.IPRateLimitWindowMinutes,
			BlockMinutes:  cfg.IPRateLimitBlockMinutes,
		})
	}
	exportUC := usecase.NewExportLeadsUseCase(leadRepo, loc, logger)
	statusUC := usecase.NewUpdateLeadStatusUseCase(leadRepo, logger)
	dashboardUC := usecase.NewSecurityDashboardUseCase(securityRepo, cfg.SecurityScanWindow, logger)

	// 4. Scheduler de segurança
	var tasks handlers.TaskController
	if cfg.SecuritySchedulerEnabled {
		scheduler := worker.NewSecurityScheduler(securityRepo, worker.SchedulerConfig{
			CleanupInterval:     cfg.SecurityCleanupInterval,
			MonitoringInterval:  cfg.SecurityMonitoringInterval,
			ScanWindow:          cfg.SecurityScanWindow,
			PerformanceInterval: cfg.SecurityPerformanceInterval,
		}, logger)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.StopAll()
		tasks = scheduler
	}

	// 5. Router
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	h := router.New(router.Config{
		Logger:         logger,
		AdminToken:     cfg.AdminAPIToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies: trusted,
		Health:         handlers.NewHealthHandler(db, broker, version).WithChannels(channels...),
		Leads:          handlers.NewLeadHandler(submitUC, logger),
		Export:         handlers.NewExportHandler(exportUC, logger),
		LeadStatus:     handlers.NewLeadStatusHandler(statusUC, logger),
		Security:       handlers.NewSecurityHandler(dashboardUC, tasks, logger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🔥 Server de leads rodando", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("sinal recebido, encerrando")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
