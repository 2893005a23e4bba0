package consumers

import (
	"context"
	"log/slog"

	"fastpayment/internal/config"
		"fastpayment/internal/mailer"
	"fastpayment/internal/messaging"
	"fastpayment/internal/models"
	"fastpayment/internal/search"

	"github.com/nats-io/stan.go"
)

const queueGroup = "fastpayment-consumers"

type ConsumerService struct {
	nats     *messaging.NATSClient
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	var indexer HistoryIndexer
	if cfg.Elasticsearch.Enabled {
		esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			slog.Warn("Elasticsearch unavailable, history indexing disabled", "error", err)
		} else {
			indexer = esClient
		}
	}

	return &ConsumerService{
		nats:     natsClient,
		handlers: NewHandlers(mailer.New(cfg.Mail), indexer),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	routes := map[string]stan.MsgHandler{
		models.EventOTPIssued:             cs.handlers.HandleOTPIssued,
		models.EventRegistrationConfirmed: cs.handlers.HandleRegistrationConfirmed,
		models.EventRegistrationNoVacancy: cs.handlers.HandleRegistrationNoVacancy,
		models.EventHistoryAppended:       cs.handlers.HandleHistoryAppended,
	}

	for subject, handler := range routes {
		sub, err := cs.nats.SubscribeQueue(subject, queueGroup, handler)
		if err != nil {
			return err
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subscriptions", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
			return err
		}
	}

	return ctx.Err()
}
