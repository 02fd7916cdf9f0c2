package store

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ReservationItem is one requested hold within a selection
type ReservationItem struct {
	TicketTypeID int64
	Quantity     int
}

// InsufficientStockError reports a hold that could not be placed because the
// remaining quantity (net of other sessions' active holds) is too low.
type InsufficientStockError struct {
	TicketTypeID int64
	Remaining    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for ticket type %d: %d remaining", e.TicketTypeID, e.Remaining)
}

// lockOrder returns the items sorted by ticket type id. Rows are always
// locked in this order so two concurrent multi-line selections cannot
// deadlock by taking the same locks in opposite orders.
func lockOrder(items []ReservationItem) []ReservationItem {
	sorted := make([]ReservationItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TicketTypeID < sorted[j].TicketTypeID
	})
	return sorted
}

// ReserveSelection atomically replaces the session's holds for an event with
// holds for the given selection. The ticket rows are locked FOR UPDATE so the
// availability check and the hold insertion are strictly ordered across
// sessions: two buyers racing for the last unit cannot both succeed.
func (s *Store) ReserveSelection(ctx context.Context, sessionID string, eventID int64, items []ReservationItem, expiresAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lazy sweep: stale holds for this event stop counting before anything
	// else looks at remaining quantity.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM reservations WHERE event_id = $1 AND expires_at <= NOW()", eventID)
	if err != nil {
		return fmt.Errorf("failed to sweep stale reservations: %w", err)
	}

	// A new selection supersedes whatever this session held before.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM reservations WHERE session_id = $1 AND event_id = $2", sessionID, eventID)
	if err != nil {
		return fmt.Errorf("failed to clear prior reservations: %w", err)
	}

	for _, item := range lockOrder(items) {
		var quantity, sold int
		err = tx.QueryRowxContext(ctx,
			"SELECT quantity, quantity_sold FROM ticket_types WHERE id = $1 FOR UPDATE",
			item.TicketTypeID).Scan(&quantity, &sold)
		if err != nil {
			return fmt.Errorf("failed to lock ticket type %d: %w", item.TicketTypeID, err)
		}

		var heldByOthers int
		err = tx.GetContext(ctx, &heldByOthers,
			`SELECT COALESCE(SUM(quantity), 0) FROM reservations
			 WHERE ticket_type_id = $1 AND session_id <> $2 AND expires_at > NOW()`,
			item.TicketTypeID, sessionID)
		if err != nil {
			return fmt.Errorf("failed to count active holds: %w", err)
		}

		remaining := quantity - sold - heldByOthers
		if item.Quantity > remaining {
			return &InsufficientStockError{TicketTypeID: item.TicketTypeID, Remaining: remaining}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO reservations (ticket_type_id, event_id, quantity, session_id, expires_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			item.TicketTypeID, eventID, item.Quantity, sessionID, expiresAt)
		if err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}
	}

	return tx.Commit()
}

// ReleaseSession removes all holds owned by a session for an event
func (s *Store) ReleaseSession(ctx context.Context, sessionID string, eventID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM reservations WHERE session_id = $1 AND event_id = $2", sessionID, eventID)
	return err
}

// ExpireStale removes reservations whose expiry has passed and returns the
// number released. Safe to run concurrently with ReserveSelection: the delete
// only ever removes rows ReserveSelection already ignores.
func (s *Store) ExpireStale(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reservations WHERE expires_at <= NOW()")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetRemaining returns the purchasable quantity for a ticket type from the
// caller's point of view: total minus sold minus other sessions' active holds.
// Advisory only; ReserveSelection re-checks under lock.
func (s *Store) GetRemaining(ctx context.Context, ticketTypeID int64, excludeSessionID string) (int, error) {
	var remaining int
	err := s.db.GetContext(ctx, &remaining,
		`SELECT t.quantity - t.quantity_sold - COALESCE((
			SELECT SUM(r.quantity) FROM reservations r
			WHERE r.ticket_type_id = t.id AND r.session_id <> $2 AND r.expires_at > NOW()
		 ), 0)
		 FROM ticket_types t WHERE t.id = $1`,
		ticketTypeID, excludeSessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute remaining quantity: %w", err)
	}
	return remaining, nil
}
