package services

import (
	"context"

	"haushalt/internal/amqp"
	"haushalt/internal/log"
)

// ChangePublisher is the part of the AMQP client the observer needs.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// BrokerObserver forwards ledger changes to a message broker. Publish
// failures are logged and never reach the caller of the mutation.
type BrokerObserver struct {
	publisher ChangePublisher
	logger    *log.Logger
}

var _ Observer = (*BrokerObserver)(nil)

// NewBrokerObserver returns nil when publisher is nil; a nil observer is a no-op.
func NewBrokerObserver(publisher ChangePublisher, logger *log.Logger) *BrokerObserver {
	if publisher == nil {
		return nil
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BrokerObserver{publisher: publisher, logger: logger.WithComponent(log.ComponentAMQP)}
}

func (o *BrokerObserver) OnChange(ctx context.Context, c Change) {
	if o == nil || o.publisher == nil {
		return
	}
	msg := amqp.NewChangeMessage(string(c.Op), c.IDs, c.Count, c.At)
	if err := o.publisher.PublishChange(ctx, msg); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish change message",
			log.NewFields().WithOperation(log.OpPublish).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	}
}
