package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/metrics"
)

// Publisher é satisfeito por *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// LeadProducer coloca o aviso de lead na fila; o Worker faz o envio de fato.
type LeadProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *LeadProducer {
	return &LeadProducer{Ch: ch}
}

func (p *LeadProducer) Notify(ctx context.Context, n entity.LeadNotification) (err error) {
	defer func() { metrics.RecordNotification("queue", err) }()

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName, // ex.leads
		RoutingKey,   // k.lead.created
		false,        // Mandatory
		false,        // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    n.LeadID,
			Type:         n.FormType,
			Body:         body,
			DeliveryMode: amqp.Persistent, // Mensagem salva no disco
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}

	return nil
}
