package worker

import (
	"context"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// ProcessedLog records which events have already been handled, so redelivered
// messages do not resend receipts
type ProcessedLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Mailer sends the order receipt email
type Mailer interface {
	SendOrderReceipt(ctx context.Context, event *models.OrderCompletedEvent) error
}

// TicketRenderer produces the ticket document for an order
type TicketRenderer interface {
	RenderTickets(ctx context.Context, orderReference string) error
}

// PostOrderWorker runs the asynchronous post-order side effects (receipt
// email, ticket PDF) detached from the buyer-visible request. A task failure
// skips the commit so the broker redelivers; the committed order is never
// rolled back.
type PostOrderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	processed    ProcessedLog
	mailer       Mailer
	renderer     TicketRenderer
	logger       *zap.Logger
}

// NewPostOrderWorker creates a new post-order worker
func NewPostOrderWorker(
	consumer *broker.Consumer,
	processed ProcessedLog,
	mailer Mailer,
	renderer TicketRenderer,
) *PostOrderWorker {
	w := &PostOrderWorker{
		consumer:  consumer,
		processed: processed,
		mailer:    mailer,
		renderer:  renderer,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCompleted(w.handleOrderCompleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *PostOrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting post-order worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PostOrderWorker) Stop() error {
	w.logger.Info("Stopping post-order worker")
	return w.consumer.Close()
}

func (w *PostOrderWorker) handleOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error {
	done, err := w.processed.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if done {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Info("Running post-order tasks",
		zap.Int64("order_id", event.OrderID),
		zap.String("reference", event.OrderReference))

	if err := w.mailer.SendOrderReceipt(ctx, event); err != nil {
		w.logger.Error("Failed to send order receipt",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
		return err
	}

	if err := w.renderer.RenderTickets(ctx, event.OrderReference); err != nil {
		w.logger.Error("Failed to render tickets",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
		return err
	}

	return w.processed.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// LogMailer is the default Mailer used until a real email dispatcher is
// plugged in: it records the send in the log and succeeds.
type LogMailer struct{}

func (LogMailer) SendOrderReceipt(ctx context.Context, event *models.OrderCompletedEvent) error {
	util.GetLogger().Info("Order receipt dispatched",
		zap.String("reference", event.OrderReference),
		zap.String("email", event.BuyerEmail),
		zap.String("amount", event.Amount))
	return nil
}

// LogRenderer is the default TicketRenderer counterpart of LogMailer
type LogRenderer struct{}

func (LogRenderer) RenderTickets(ctx context.Context, orderReference string) error {
	util.GetLogger().Info("Tickets rendered", zap.String("reference", orderReference))
	return nil
}
