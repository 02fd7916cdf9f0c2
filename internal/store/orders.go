package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

// TicketCounter carries the per-ticket-type commit increments
type TicketCounter struct {
	TicketTypeID  int64
	Quantity      int
	SalesVolume   decimal.Decimal
	OrganiserFees decimal.Decimal
}

// AttendeeWithAnswers pairs an attendee row with its question answers
type AttendeeWithAnswers struct {
	Attendee models.Attendee
	Answers  []models.QuestionAnswer
}

// FinalizeOrderCommand is everything the commit transaction writes. The
// finalizer service builds it from a workspace; this layer only persists it.
type FinalizeOrderCommand struct {
	Order               models.Order
	Items               []models.OrderItem
	Attendees           []AttendeeWithAnswers
	Counters            []TicketCounter
	TotalTicketQuantity int
	RequiresPayment     bool
	AffiliateRef        string
	SessionID           string
}

// FinalizeOrder commits a paid (or free) workspace as a durable order. The
// whole sequence is one transaction: order, items, attendees, answers,
// ticket/event/affiliate/daily-stats counters, and the release of the
// session's holds either all become visible together or not at all. Counter
// updates are atomic increments so concurrent orders on the same event never
// lose updates.
func (s *Store) FinalizeOrder(ctx context.Context, cmd *FinalizeOrderCommand) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order := cmd.Order
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO orders (reference, first_name, last_name, email, status, amount, booking_fee,
			organiser_booking_fee, currency, transaction_id, payment_gateway_id, account_id, event_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, 0), $12, $13)
		 RETURNING id, created_at`,
		order.Reference, order.FirstName, order.LastName, order.Email, order.Status,
		order.Amount, order.BookingFee, order.OrganiserBookingFee, order.Currency,
		order.TransactionID, order.PaymentGatewayID, order.AccountID, order.EventID,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE events SET sales_volume = sales_volume + $1,
			organiser_fees_volume = organiser_fees_volume + $2 WHERE id = $3`,
		order.Amount, order.OrganiserBookingFee, order.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to update event volumes: %w", err)
	}

	if cmd.AffiliateRef != "" {
		// Only a live affiliate for this event gets credited; an unknown
		// referral tag is silently ignored.
		_, err = tx.ExecContext(ctx,
			`UPDATE affiliates SET sales_volume = sales_volume + $1, tickets_sold = tickets_sold + $2
			 WHERE event_id = $3 AND name = $4`,
			order.Amount.Add(order.OrganiserBookingFee), cmd.TotalTicketQuantity,
			order.EventID, cmd.AffiliateRef)
		if err != nil {
			return nil, fmt.Errorf("failed to update affiliate stats: %w", err)
		}
	}

	statsSales := decimal.Zero
	statsFees := decimal.Zero
	if cmd.RequiresPayment {
		statsSales = order.Amount
		statsFees = order.OrganiserBookingFee
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_stats (event_id, date, tickets_sold, sales_volume, organiser_fees_volume)
		 VALUES ($1, CURRENT_DATE, $2, $3, $4)
		 ON CONFLICT (event_id, date) DO UPDATE SET
			tickets_sold = event_stats.tickets_sold + EXCLUDED.tickets_sold,
			sales_volume = event_stats.sales_volume + EXCLUDED.sales_volume,
			organiser_fees_volume = event_stats.organiser_fees_volume + EXCLUDED.organiser_fees_volume`,
		order.EventID, cmd.TotalTicketQuantity, statsSales, statsFees)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert event stats: %w", err)
	}

	for _, counter := range cmd.Counters {
		_, err = tx.ExecContext(ctx,
			`UPDATE ticket_types SET quantity_sold = quantity_sold + $1,
				sales_volume = sales_volume + $2, organiser_fees_volume = organiser_fees_volume + $3
			 WHERE id = $4`,
			counter.Quantity, counter.SalesVolume, counter.OrganiserFees, counter.TicketTypeID)
		if err != nil {
			return nil, fmt.Errorf("failed to update ticket counters: %w", err)
		}
	}

	for _, item := range cmd.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, title, quantity, unit_price, unit_booking_fee)
			 VALUES ($1, $2, $3, $4, $5)`,
			order.ID, item.Title, item.Quantity, item.UnitPrice, item.UnitBookingFee)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	for i := range cmd.Attendees {
		attendee := &cmd.Attendees[i].Attendee
		attendee.OrderID = order.ID
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO attendees (order_id, event_id, ticket_type_id, account_id, first_name, last_name, email, reference)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			attendee.OrderID, attendee.EventID, attendee.TicketTypeID, attendee.AccountID,
			attendee.FirstName, attendee.LastName, attendee.Email, attendee.Reference,
		).Scan(&attendee.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert attendee: %w", err)
		}

		for _, answer := range cmd.Attendees[i].Answers {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO question_answers (attendee_id, event_id, account_id, question_id, answer_text)
				 VALUES ($1, $2, $3, $4, $5)`,
				attendee.ID, answer.EventID, answer.AccountID, answer.QuestionID, answer.AnswerText)
			if err != nil {
				return nil, fmt.Errorf("failed to insert question answer: %w", err)
			}
		}
	}

	// The holds are consumed by the sale, inside the same transaction.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM reservations WHERE session_id = $1 AND event_id = $2",
		cmd.SessionID, order.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to release reservations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return &order, nil
}

// GetOrderByReference retrieves an order by its human-readable reference.
// payment_gateway_id is NULL for free orders, hence the COALESCE.
func (s *Store) GetOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		`SELECT id, reference, first_name, last_name, email, status, amount, booking_fee,
			organiser_booking_fee, currency, COALESCE(transaction_id, '') AS transaction_id,
			COALESCE(payment_gateway_id, 0) AS payment_gateway_id, account_id, event_id, created_at
		 FROM orders WHERE reference = $1`, reference)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all line items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetAttendeesByOrder retrieves all attendees for an order, in reference order
func (s *Store) GetAttendeesByOrder(ctx context.Context, orderID int64) ([]models.Attendee, error) {
	var attendees []models.Attendee
	err := s.db.SelectContext(ctx, &attendees,
		"SELECT * FROM attendees WHERE order_id = $1 ORDER BY id", orderID)
	return attendees, err
}
