package service

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/store"
)

type fakeCatalog struct {
	events       map[int64]*models.Event
	tickets      map[int64]models.TicketType
	gateway      *models.PaymentGateway
	affiliates   map[string]*models.Affiliate
	gatewayCalls int
}

func (f *fakeCatalog) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("event not found: %d", id)
	}
	return event, nil
}

func (f *fakeCatalog) GetTicketTypesByIDs(_ context.Context, ids []int64) ([]models.TicketType, error) {
	var tickets []models.TicketType
	for _, id := range ids {
		if t, ok := f.tickets[id]; ok {
			tickets = append(tickets, t)
		}
	}
	return tickets, nil
}

func (f *fakeCatalog) GetActivePaymentGateway(_ context.Context, _ int64) (*models.PaymentGateway, error) {
	f.gatewayCalls++
	return f.gateway, nil
}

func (f *fakeCatalog) GetAffiliateByName(_ context.Context, _ int64, name string) (*models.Affiliate, error) {
	return f.affiliates[name], nil
}

type fakeLedger struct {
	remaining  map[int64]int
	reserveErr error
	reserved   []store.ReservationItem
	releases   int
	expired    int64
}

func (f *fakeLedger) ReserveSelection(_ context.Context, _ string, _ int64, items []store.ReservationItem, _ time.Time) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.reserved = items
	return nil
}

func (f *fakeLedger) ReleaseSession(_ context.Context, _ string, _ int64) error {
	f.releases++
	return nil
}

func (f *fakeLedger) ExpireStale(_ context.Context) (int64, error) {
	return f.expired, nil
}

func (f *fakeLedger) GetRemaining(_ context.Context, ticketTypeID int64, _ string) (int, error) {
	if r, ok := f.remaining[ticketTypeID]; ok {
		return r, nil
	}
	return 1000, nil
}

type fakeWorkspaceStore struct {
	workspaces map[string]*models.Workspace
	deletes    int
}

func newFakeWorkspaceStore() *fakeWorkspaceStore {
	return &fakeWorkspaceStore{workspaces: map[string]*models.Workspace{}}
}

func wsKey(eventID int64, sessionID string) string {
	return fmt.Sprintf("%d:%s", eventID, sessionID)
}

func (f *fakeWorkspaceStore) SaveWorkspace(_ context.Context, ws *models.Workspace, _ time.Duration) error {
	f.workspaces[wsKey(ws.EventID, ws.SessionID)] = ws
	return nil
}

func (f *fakeWorkspaceStore) GetWorkspace(_ context.Context, eventID int64, sessionID string) (*models.Workspace, error) {
	ws, ok := f.workspaces[wsKey(eventID, sessionID)]
	if !ok {
		return nil, redisclient.ErrNotFound
	}
	return ws, nil
}

func (f *fakeWorkspaceStore) DeleteWorkspace(_ context.Context, eventID int64, sessionID string) error {
	f.deletes++
	delete(f.workspaces, wsKey(eventID, sessionID))
	return nil
}

type fakeOrderStore struct {
	cmd         *store.FinalizeOrderCommand
	finalizeErr error
}

func (f *fakeOrderStore) FinalizeOrder(_ context.Context, cmd *store.FinalizeOrderCommand) (*models.Order, error) {
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	f.cmd = cmd
	order := cmd.Order
	order.ID = 1
	order.CreatedAt = time.Now()
	return &order, nil
}

func (f *fakeOrderStore) GetOrderByReference(_ context.Context, _ string) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) GetOrderItems(_ context.Context, _ int64) ([]models.OrderItem, error) {
	return nil, nil
}

func (f *fakeOrderStore) GetAttendeesByOrder(_ context.Context, _ int64) ([]models.Attendee, error) {
	return nil, nil
}

type fakePublisher struct {
	events  []*models.OrderCompletedEvent
	expired []*models.ReservationExpiredEvent
}

func (f *fakePublisher) PublishOrderCompleted(_ context.Context, event *models.OrderCompletedEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) PublishReservationExpired(_ context.Context, event *models.ReservationExpiredEvent) error {
	f.expired = append(f.expired, event)
	return nil
}

type fakeGateway struct {
	family           gateway.Family
	purchaseResult   *gateway.Result
	purchaseErr      error
	completeResult   *gateway.Result
	completeErr      error
	purchaseCalls    int
	lastRequest      *gateway.PurchaseRequest
	lastContinuation map[string]string
}

func (f *fakeGateway) Name() string           { return "fake" }
func (f *fakeGateway) Family() gateway.Family { return f.family }

func (f *fakeGateway) Purchase(_ context.Context, req *gateway.PurchaseRequest) (*gateway.Result, error) {
	f.purchaseCalls++
	f.lastRequest = req
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return f.purchaseResult, nil
}

func (f *fakeGateway) CompletePurchase(_ context.Context, continuation map[string]string) (*gateway.Result, error) {
	f.lastContinuation = continuation
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.completeResult, nil
}

type fakeResolver struct {
	gw       gateway.Gateway
	err      error
	resolved int
}

func (f *fakeResolver) Resolve(_ string, _ map[string]string) (gateway.Gateway, error) {
	f.resolved++
	if f.err != nil {
		return nil, f.err
	}
	return f.gw, nil
}
