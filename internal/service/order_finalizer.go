package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderFinalizer is the single atomic commit boundary: it turns a paid (or
// free) workspace into a durable order and schedules the post-order work
type OrderFinalizer struct {
	orders     OrderStore
	workspaces WorkspaceStore
	publisher  EventPublisher
	logger     *zap.Logger
}

// NewOrderFinalizer creates a new order finalizer
func NewOrderFinalizer(orders OrderStore, workspaces WorkspaceStore, publisher EventPublisher) *OrderFinalizer {
	return &OrderFinalizer{
		orders:     orders,
		workspaces: workspaces,
		publisher:  publisher,
		logger:     util.GetLogger(),
	}
}

// Complete commits the workspace as an order. The persistence layer runs the
// whole write set in one transaction, so a failure anywhere leaves no
// partially-visible order and the workspace stays intact for a wholesale
// retry. On success the workspace is released and the receipt/ticket tasks
// are enqueued fire-and-forget.
func (f *OrderFinalizer) Complete(ctx context.Context, ws *models.Workspace) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderFinalizer.Complete")
	defer span.End()

	cmd, err := BuildFinalizeCommand(ws)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_workspace").Inc()
		return nil, err
	}

	order, err := f.orders.FinalizeOrder(ctx, cmd)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("commit_failed").Inc()
		return nil, fmt.Errorf("failed to finalize order: %w", err)
	}

	if err := f.workspaces.DeleteWorkspace(ctx, ws.EventID, ws.SessionID); err != nil {
		// The order is committed; a lingering workspace only costs its TTL.
		f.logger.Warn("Failed to clear workspace after commit",
			zap.Int64("event_id", ws.EventID),
			zap.String("session_id", ws.SessionID),
			zap.Error(err))
	}

	event := &models.OrderCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCompleted,
			Timestamp: time.Now(),
		},
		OrderID:         order.ID,
		OrderReference:  order.Reference,
		CheckoutEventID: order.EventID,
		BuyerEmail:      order.Email,
		Amount:          order.Amount.StringFixed(2),
		Currency:        order.Currency,
		AttendeeCount:   cmd.TotalTicketQuantity,
	}
	if err := f.publisher.PublishOrderCompleted(ctx, event); err != nil {
		f.logger.Error("Failed to publish OrderCompleted event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}

	util.OrdersCompletedTotal.Inc()
	f.logger.Info("Order completed",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.Int64("event_id", order.EventID),
		zap.Int("attendees", cmd.TotalTicketQuantity))

	return order, nil
}

// BuildFinalizeCommand derives the full commit write set from a workspace:
// the order row, denormalized line snapshots, per-unit attendee identities,
// non-empty question answers and every counter increment.
func BuildFinalizeCommand(ws *models.Workspace) (*store.FinalizeOrderCommand, error) {
	if len(ws.Lines) == 0 {
		return nil, fmt.Errorf("workspace has no ticket lines")
	}
	// The first recorded submission is authoritative, like the first
	// continuation: a redirect started by attempt 1 commits attempt 1's data.
	form := ws.FirstBuyerForm()
	if form == nil {
		return nil, fmt.Errorf("workspace has no buyer submission")
	}

	reference := NewOrderReference()
	mirror := form[FieldMirrorBuyer] == "on"

	order := models.Order{
		Reference:           reference,
		FirstName:           form[FieldBuyerFirstName],
		LastName:            form[FieldBuyerLastName],
		Email:               form[FieldBuyerEmail],
		Status:              models.OrderStatusComplete,
		Amount:              ws.OrderTotal,
		BookingFee:          ws.BookingFee,
		OrganiserBookingFee: ws.OrganiserBookingFee,
		Currency:            ws.Currency,
		AccountID:           ws.AccountID,
		EventID:             ws.EventID,
	}
	if ws.RequiresPayment {
		order.TransactionID = ws.FirstTransactionID()
		order.PaymentGatewayID = ws.GatewayID
	}

	cmd := &store.FinalizeOrderCommand{
		Order:               order,
		TotalTicketQuantity: ws.TotalQuantity,
		RequiresPayment:     ws.RequiresPayment,
		AffiliateRef:        ws.AffiliateRef,
		SessionID:           ws.SessionID,
	}

	attendeeIncrement := 1
	for _, line := range ws.Lines {
		qtyDec := decimal.NewFromInt(int64(line.Quantity))

		cmd.Counters = append(cmd.Counters, store.TicketCounter{
			TicketTypeID:  line.TicketTypeID,
			Quantity:      line.Quantity,
			SalesVolume:   line.UnitPrice.Mul(qtyDec),
			OrganiserFees: line.UnitOrganiserFee.Mul(qtyDec),
		})

		cmd.Items = append(cmd.Items, models.OrderItem{
			Title:          line.Title,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			UnitBookingFee: line.UnitBookingFee.Add(line.UnitOrganiserFee),
		})

		for slot := 0; slot < line.Quantity; slot++ {
			attendee := models.Attendee{
				EventID:      ws.EventID,
				TicketTypeID: line.TicketTypeID,
				AccountID:    ws.AccountID,
				Reference:    fmt.Sprintf("%s-%d", reference, attendeeIncrement),
			}

			if ws.AskForAllAttendeesInfo && !mirror {
				attendee.FirstName = form[attendeeFirstNameField(slot, line.TicketTypeID)]
				attendee.LastName = form[attendeeLastNameField(slot, line.TicketTypeID)]
				attendee.Email = form[attendeeEmailField(slot, line.TicketTypeID)]
			} else {
				attendee.FirstName = order.FirstName
				attendee.LastName = order.LastName
				attendee.Email = order.Email
			}

			var answers []models.QuestionAnswer
			for _, question := range line.Questions {
				answer := strings.TrimSpace(form[questionAnswerField(line.TicketTypeID, slot, question.ID)])
				if answer == "" {
					continue
				}
				answers = append(answers, models.QuestionAnswer{
					EventID:    ws.EventID,
					AccountID:  ws.AccountID,
					QuestionID: question.ID,
					AnswerText: answer,
				})
			}

			cmd.Attendees = append(cmd.Attendees, store.AttendeeWithAnswers{
				Attendee: attendee,
				Answers:  answers,
			})
			attendeeIncrement++
		}
	}

	return cmd, nil
}

// NewOrderReference generates a unique human-readable order reference
func NewOrderReference() string {
	return fmt.Sprintf("ORD-%s", strings.ToUpper(uuid.New().String()[:8]))
}
