package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService owns the reservation ledger operations and the
// pending-order workspace lifecycle
type CheckoutService struct {
	catalog    TicketCatalog
	ledger     ReservationLedger
	workspaces WorkspaceStore
	publisher  EventPublisher
	timeout    time.Duration
	retention  time.Duration
	logger     *zap.Logger
}

// NewCheckoutService creates a new checkout service. timeout bounds the
// reservation hold; retention bounds how long a workspace survives in the
// store so off-site payment returns can still find it.
func NewCheckoutService(
	catalog TicketCatalog,
	ledger ReservationLedger,
	workspaces WorkspaceStore,
	publisher EventPublisher,
	timeout time.Duration,
	retention time.Duration,
) *CheckoutService {
	return &CheckoutService{
		catalog:    catalog,
		ledger:     ledger,
		workspaces: workspaces,
		publisher:  publisher,
		timeout:    timeout,
		retention:  retention,
		logger:     util.GetLogger(),
	}
}

// ReserveSelectionRequest is a buyer's ticket selection for one event
type ReserveSelectionRequest struct {
	EventID      int64
	SessionID    string
	Selections   map[int64]string // ticket type id -> requested quantity, as submitted
	AffiliateRef string
	IsEmbedded   bool
}

// ReserveSelection validates a ticket selection, places holds on the
// inventory and opens the pending-order workspace. Field-level failures come
// back as a *ValidationError; anything else is a fault.
func (s *CheckoutService) ReserveSelection(ctx context.Context, req *ReserveSelectionRequest) (*models.Workspace, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.ReserveSelection")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReservationLatency.Observe(time.Since(start).Seconds())
	}()

	event, err := s.catalog.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	quantities, ve := parseSelections(req.Selections)
	if ve != nil {
		util.ReservationsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, ve
	}
	if len(quantities) == 0 {
		util.ReservationsFailedTotal.WithLabelValues("empty_selection").Inc()
		return nil, NewValidationError("tickets", "No tickets selected.")
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	tickets, err := s.catalog.GetTicketTypesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket types: %w", err)
	}
	if len(tickets) != len(ids) {
		return nil, NewValidationError("tickets", "One or more selected tickets no longer exist.")
	}

	fieldErrors := map[string]string{}
	items := make([]store.ReservationItem, 0, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		if ticket.EventID != req.EventID {
			return nil, NewValidationError(ticketQuantityField(ticket.ID), "This ticket does not belong to this event.")
		}

		qty := quantities[ticket.ID]

		remaining, err := s.ledger.GetRemaining(ctx, ticket.ID, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check availability: %w", err)
		}

		// The tighter of max-per-person and remaining quantity wins.
		maxAllowed := ticket.MaxPerPerson
		if remaining < maxAllowed {
			maxAllowed = remaining
		}

		switch {
		case qty < ticket.MinPerPerson:
			fieldErrors[ticketQuantityField(ticket.ID)] =
				fmt.Sprintf("You must select at least %d tickets.", ticket.MinPerPerson)
		case qty > maxAllowed:
			fieldErrors[ticketQuantityField(ticket.ID)] =
				fmt.Sprintf("The maximum number of tickets you can register is %d", remaining)
		default:
			items = append(items, store.ReservationItem{TicketTypeID: ticket.ID, Quantity: qty})
		}
	}
	if len(fieldErrors) > 0 {
		util.ReservationsFailedTotal.WithLabelValues("quantity_bounds").Inc()
		return nil, &ValidationError{Fields: fieldErrors}
	}

	expiresAt := time.Now().Add(s.timeout)
	if err := s.ledger.ReserveSelection(ctx, req.SessionID, req.EventID, items, expiresAt); err != nil {
		var insufficient *store.InsufficientStockError
		if errors.As(err, &insufficient) {
			// Lost the race for the last units between the advisory check
			// and the locked insert.
			util.ReservationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, NewValidationError(
				ticketQuantityField(insufficient.TicketTypeID),
				fmt.Sprintf("The maximum number of tickets you can register is %d", insufficient.Remaining))
		}
		util.ReservationsFailedTotal.WithLabelValues("ledger_error").Inc()
		return nil, fmt.Errorf("failed to reserve tickets: %w", err)
	}

	// An affiliate ref only sticks when it names a live affiliate for this
	// event; anything else is silently dropped.
	if req.AffiliateRef != "" {
		affiliate, err := s.catalog.GetAffiliateByName(ctx, req.EventID, req.AffiliateRef)
		if err != nil {
			return nil, fmt.Errorf("failed to look up affiliate: %w", err)
		}
		if affiliate == nil {
			req.AffiliateRef = ""
		}
	}

	ws := s.openWorkspace(event, tickets, quantities, req, expiresAt)

	if ws.RequiresPayment {
		pg, err := s.catalog.GetActivePaymentGateway(ctx, event.AccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve payment gateway: %w", err)
		}
		if pg != nil {
			ws.GatewayID = pg.ID
			ws.GatewayName = pg.Name
			ws.GatewayProviderName = pg.ProviderName
			ws.GatewayConfig = pg.Config
		}
	}

	if err := s.workspaces.SaveWorkspace(ctx, ws, s.retention); err != nil {
		return nil, fmt.Errorf("failed to store workspace: %w", err)
	}

	util.ReservationsTotal.Inc()
	s.logger.Info("Tickets reserved",
		zap.Int64("event_id", req.EventID),
		zap.String("session_id", req.SessionID),
		zap.Int("total_quantity", ws.TotalQuantity),
		zap.String("order_total", ws.OrderTotal.StringFixed(2)))

	return ws, nil
}

func parseSelections(selections map[int64]string) (map[int64]int, *ValidationError) {
	quantities := make(map[int64]int, len(selections))
	fieldErrors := map[string]string{}

	for ticketTypeID, raw := range selections {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		qty, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrors[ticketQuantityField(ticketTypeID)] = "Ticket quantity must be a number."
			continue
		}
		if qty < 1 {
			continue
		}
		quantities[ticketTypeID] = qty
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}
	return quantities, nil
}

func (s *CheckoutService) openWorkspace(
	event *models.Event,
	tickets []models.TicketType,
	quantities map[int64]int,
	req *ReserveSelectionRequest,
	expiresAt time.Time,
) *models.Workspace {
	ws := &models.Workspace{
		EventID:                event.ID,
		AccountID:              event.AccountID,
		SessionID:              req.SessionID,
		Currency:               event.Currency,
		ExpiresAt:              expiresAt,
		AffiliateRef:           req.AffiliateRef,
		AskForAllAttendeesInfo: event.AskForAllAttendeesInfo,
		OrganiserName:          event.OrganiserName,
		IsEmbedded:             req.IsEmbedded,
	}

	ws.Rules = append(ws.Rules,
		models.FieldRule{Field: FieldBuyerFirstName, Kind: models.RuleRequired, Message: "First name is required"},
		models.FieldRule{Field: FieldBuyerLastName, Kind: models.RuleRequired, Message: "Last name is required"},
		models.FieldRule{Field: FieldBuyerEmail, Kind: models.RuleRequired, Message: "Email is required"},
		models.FieldRule{Field: FieldBuyerEmail, Kind: models.RuleEmail, Message: "Email appears to be invalid"},
	)

	for i := range tickets {
		ticket := &tickets[i]
		qty := quantities[ticket.ID]
		qtyDec := decimal.NewFromInt(int64(qty))

		line := models.WorkspaceLine{
			TicketTypeID:     ticket.ID,
			Title:            ticket.Title,
			Quantity:         qty,
			UnitPrice:        ticket.Price,
			UnitBookingFee:   ticket.BookingFee,
			UnitOrganiserFee: ticket.OrganiserBookingFee,
			LinePrice:        ticket.Price.Mul(qtyDec),
			LineBookingFee:   ticket.BookingFee.Mul(qtyDec),
			LineOrganiserFee: ticket.OrganiserBookingFee.Mul(qtyDec),
			Questions:        ticket.Questions,
		}
		ws.Lines = append(ws.Lines, line)

		ws.TotalQuantity += qty
		ws.OrderTotal = ws.OrderTotal.Add(line.LinePrice)
		ws.BookingFee = ws.BookingFee.Add(line.LineBookingFee)
		ws.OrganiserBookingFee = ws.OrganiserBookingFee.Add(line.LineOrganiserFee)

		for slot := 0; slot < qty; slot++ {
			holder := slot + 1
			ws.Rules = append(ws.Rules,
				models.FieldRule{
					Field: attendeeFirstNameField(slot, ticket.ID), Kind: models.RuleRequired,
					Message:     fmt.Sprintf("Ticket holder %d's first name is required", holder),
					PerAttendee: true, AttendeeSlot: slot, TicketTypeID: ticket.ID,
				},
				models.FieldRule{
					Field: attendeeLastNameField(slot, ticket.ID), Kind: models.RuleRequired,
					Message:     fmt.Sprintf("Ticket holder %d's last name is required", holder),
					PerAttendee: true, AttendeeSlot: slot, TicketTypeID: ticket.ID,
				},
				models.FieldRule{
					Field: attendeeEmailField(slot, ticket.ID), Kind: models.RuleRequired,
					Message:     fmt.Sprintf("Ticket holder %d's email is required", holder),
					PerAttendee: true, AttendeeSlot: slot, TicketTypeID: ticket.ID,
				},
				models.FieldRule{
					Field: attendeeEmailField(slot, ticket.ID), Kind: models.RuleEmail,
					Message:     fmt.Sprintf("Ticket holder %d's email appears to be invalid", holder),
					PerAttendee: true, AttendeeSlot: slot, TicketTypeID: ticket.ID,
				},
			)

			for _, question := range ticket.Questions {
				if !question.IsRequired {
					continue
				}
				ws.Rules = append(ws.Rules, models.FieldRule{
					Field: questionAnswerField(ticket.ID, slot, question.ID), Kind: models.RuleRequired,
					Message:     "This question is required",
					PerAttendee: true, AttendeeSlot: slot, TicketTypeID: ticket.ID,
				})
			}
		}
	}

	ws.RequiresPayment = ws.OrderTotal.Ceil().Sign() > 0
	return ws
}

// GetWorkspace loads the workspace for the selection and form-submission
// legs. Expiry is enforced here; an expired or absent workspace sends the
// buyer back to ticket selection.
func (s *CheckoutService) GetWorkspace(ctx context.Context, eventID int64, sessionID string) (*models.Workspace, error) {
	ws, err := s.workspaces.GetWorkspace(ctx, eventID, sessionID)
	if err != nil {
		if errors.Is(err, redisclient.ErrNotFound) {
			return nil, ErrWorkspaceExpiredOrMissing
		}
		return nil, err
	}
	if ws.Expired(time.Now()) {
		util.WorkspacesExpiredTotal.Inc()
		return nil, ErrWorkspaceExpiredOrMissing
	}
	return ws, nil
}

// GetWorkspaceForCompletion loads the workspace for the payment-return leg.
// The business expiry is deliberately not enforced: once the buyer is
// off-site the gateway, not the timer, owns the hold.
func (s *CheckoutService) GetWorkspaceForCompletion(ctx context.Context, eventID int64, sessionID string) (*models.Workspace, error) {
	ws, err := s.workspaces.GetWorkspace(ctx, eventID, sessionID)
	if err != nil {
		if errors.Is(err, redisclient.ErrNotFound) {
			return nil, ErrWorkspaceExpiredOrMissing
		}
		return nil, err
	}
	return ws, nil
}

// RecordBuyerSubmission validates the buyer/attendee form against the
// workspace's stored rule set and appends the sanitized snapshot. The first
// recorded submission stays authoritative for finalization, matching the
// first-continuation rule. Raw card data never reaches the workspace.
func (s *CheckoutService) RecordBuyerSubmission(ctx context.Context, ws *models.Workspace, form map[string]string) error {
	mirror := form[FieldMirrorBuyer] == "on"

	fieldErrors := map[string]string{}
	for _, rule := range ws.Rules {
		if rule.PerAttendee && (mirror || !ws.AskForAllAttendeesInfo) {
			continue
		}
		value := strings.TrimSpace(form[rule.Field])

		switch rule.Kind {
		case models.RuleRequired:
			if value == "" {
				fieldErrors[rule.Field] = rule.Message
			}
		case models.RuleEmail:
			if value == "" {
				continue // required rule reports the empty case
			}
			if _, err := mail.ParseAddress(value); err != nil {
				fieldErrors[rule.Field] = rule.Message
			}
		}
	}
	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}

	sanitized := make(map[string]string, len(form))
	for k, v := range form {
		sanitized[k] = v
	}
	for _, field := range scrubbedFields {
		delete(sanitized, field)
	}

	ws.BuyerForms = append(ws.BuyerForms, sanitized)
	if err := s.workspaces.SaveWorkspace(ctx, ws, s.retention); err != nil {
		return fmt.Errorf("failed to store buyer submission: %w", err)
	}
	return nil
}

// AppendPaymentContext appends a gateway transaction id and/or continuation
// data to the workspace. Prior entries are never overwritten: the off-site
// round trip may revisit this workspace, and the first continuation stays
// authoritative.
func (s *CheckoutService) AppendPaymentContext(ctx context.Context, ws *models.Workspace, transactionID string, continuation map[string]string) error {
	if transactionID != "" {
		ws.TransactionIDs = append(ws.TransactionIDs, transactionID)
	}
	if len(continuation) > 0 {
		ws.Continuations = append(ws.Continuations, continuation)
	}
	if err := s.workspaces.SaveWorkspace(ctx, ws, s.retention); err != nil {
		return fmt.Errorf("failed to store payment context: %w", err)
	}
	return nil
}

// Discard abandons the workspace and releases its holds
func (s *CheckoutService) Discard(ctx context.Context, eventID int64, sessionID string) error {
	if err := s.workspaces.DeleteWorkspace(ctx, eventID, sessionID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if err := s.ledger.ReleaseSession(ctx, sessionID, eventID); err != nil {
		return fmt.Errorf("failed to release reservations: %w", err)
	}
	return nil
}

// RunReservationSweeper periodically removes stale holds until ctx is done.
// The ledger also sweeps lazily inside each reservation, so this only bounds
// how long dead holds linger on idle events.
func (s *CheckoutService) RunReservationSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Reservation sweeper started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reservation sweeper stopped")
			return
		case <-ticker.C:
			released, err := s.ledger.ExpireStale(ctx)
			if err != nil {
				s.logger.Error("Reservation sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				util.ReservationsExpiredTotal.Add(float64(released))
				s.logger.Info("Stale reservations released", zap.Int64("count", released))

				event := &models.ReservationExpiredEvent{
					BaseEvent: models.BaseEvent{
						EventID:   uuid.New().String(),
						EventType: models.EventTypeReservationExpired,
						Timestamp: time.Now(),
					},
					Released: released,
				}
				if err := s.publisher.PublishReservationExpired(ctx, event); err != nil {
					s.logger.Error("Failed to publish ReservationExpired event", zap.Error(err))
				}
			}
		}
	}
}
