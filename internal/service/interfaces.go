package service

import (
	"context"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
)

// TicketCatalog reads events, ticket types and gateway configuration
type TicketCatalog interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	GetTicketTypesByIDs(ctx context.Context, ids []int64) ([]models.TicketType, error)
	GetActivePaymentGateway(ctx context.Context, accountID int64) (*models.PaymentGateway, error)
	GetAffiliateByName(ctx context.Context, eventID int64, name string) (*models.Affiliate, error)
}

// ReservationLedger holds and releases time-boxed inventory claims
type ReservationLedger interface {
	ReserveSelection(ctx context.Context, sessionID string, eventID int64, items []store.ReservationItem, expiresAt time.Time) error
	ReleaseSession(ctx context.Context, sessionID string, eventID int64) error
	ExpireStale(ctx context.Context) (int64, error)
	GetRemaining(ctx context.Context, ticketTypeID int64, excludeSessionID string) (int, error)
}

// WorkspaceStore persists pending-order workspaces between request cycles
type WorkspaceStore interface {
	SaveWorkspace(ctx context.Context, ws *models.Workspace, retention time.Duration) error
	GetWorkspace(ctx context.Context, eventID int64, sessionID string) (*models.Workspace, error)
	DeleteWorkspace(ctx context.Context, eventID int64, sessionID string) error
}

// OrderStore commits and reads durable orders
type OrderStore interface {
	FinalizeOrder(ctx context.Context, cmd *store.FinalizeOrderCommand) (*models.Order, error)
	GetOrderByReference(ctx context.Context, reference string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetAttendeesByOrder(ctx context.Context, orderID int64) ([]models.Attendee, error)
}

// GatewayResolver turns a stored gateway identity into a capability instance
type GatewayResolver interface {
	Resolve(name string, config map[string]string) (gateway.Gateway, error)
}

// EventPublisher emits domain events for post-order side effects and
// operational visibility
type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error
	PublishReservationExpired(ctx context.Context, event *models.ReservationExpiredEvent) error
}
