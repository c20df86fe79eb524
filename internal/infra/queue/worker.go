package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

// Consumer é satisfeito por *amqp.Channel.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// LeadHandler recebe o aviso já decodificado (ex: o notifier de email).
type LeadHandler interface {
	Notify(ctx context.Context, n entity.LeadNotification) error
}

type Worker struct {
	Channel Consumer
	Handler LeadHandler
	Logger  *zap.Logger
}

func NewWorker(ch Consumer, handler LeadHandler, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Channel: ch,
		Handler: handler,
		Logger:  logger,
	}
}

// Run consome a fila até o contexto acabar ou o canal fechar.
func (w *Worker) Run(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual é mais seguro)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	w.Logger.Info("[*] Worker rodando e aguardando na fila", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("Worker encerrado", zap.String("queue", queueName))
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("canal de entregas da fila %s foi fechado", queueName)
			}
			w.handleDelivery(ctx, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var n entity.LeadNotification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		w.Logger.Error("❌ [WORKER] JSON inválido", zap.Error(err))
		// Mensagem podre. Rejeita sem requeue para não travar a fila.
		w.settle(d.Nack(false, false))
		return
	}

	if err := w.Handler.Notify(ctx, n); err != nil {
		// sem requeue: vai para a DLQ e pode ser reprocessada manualmente
		w.Logger.Error("❌ [WORKER] Falha ao enviar aviso de lead",
			zap.String("lead_id", n.LeadID),
			zap.Error(err),
		)
		w.settle(d.Nack(false, false))
		return
	}

	w.Logger.Info("✅ [WORKER] Aviso de lead enviado", zap.String("lead_id", n.LeadID))
	w.settle(d.Ack(false))
}

func (w *Worker) settle(err error) {
	if err != nil {
		w.Logger.Warn("falha ao confirmar mensagem", zap.Error(err))
	}
}
