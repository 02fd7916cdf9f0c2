package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetEvent retrieves an event by ID
func (s *Store) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := s.db.GetContext(ctx, &event, "SELECT * FROM events WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetTicketTypesByIDs retrieves multiple ticket types with their questions
func (s *Store) GetTicketTypesByIDs(ctx context.Context, ids []int64) ([]models.TicketType, error) {
	if len(ids) == 0 {
		return []models.TicketType{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM ticket_types WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var tickets []models.TicketType
	if err := s.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, err
	}

	refs := make([]*models.TicketType, len(tickets))
	for i := range tickets {
		refs[i] = &tickets[i]
	}
	if err := s.loadQuestions(ctx, refs); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) loadQuestions(ctx context.Context, tickets []*models.TicketType) error {
	if len(tickets) == 0 {
		return nil
	}

	ids := make([]int64, len(tickets))
	byID := make(map[int64]*models.TicketType, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	query, args, err := sqlx.In("SELECT * FROM questions WHERE ticket_type_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var questions []models.Question
	if err := s.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return err
	}

	for _, q := range questions {
		t := byID[q.TicketTypeID]
		t.Questions = append(t.Questions, q)
	}
	return nil
}

type paymentGatewayRow struct {
	ID           int64  `db:"id"`
	AccountID    int64  `db:"account_id"`
	Name         string `db:"name"`
	ProviderName string `db:"provider_name"`
	Config       []byte `db:"config"`
	IsActive     bool   `db:"is_active"`
}

// GetActivePaymentGateway retrieves the account's active payment gateway, or
// nil when the account has none configured (free events still check out).
func (s *Store) GetActivePaymentGateway(ctx context.Context, accountID int64) (*models.PaymentGateway, error) {
	var row paymentGatewayRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM payment_gateways WHERE account_id = $1 AND is_active = TRUE LIMIT 1", accountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	gateway := &models.PaymentGateway{
		ID:           row.ID,
		AccountID:    row.AccountID,
		Name:         row.Name,
		ProviderName: row.ProviderName,
		Config:       map[string]string{},
	}
	if len(row.Config) > 0 {
		if err := json.Unmarshal(row.Config, &gateway.Config); err != nil {
			return nil, fmt.Errorf("invalid gateway config for account %d: %w", accountID, err)
		}
	}
	return gateway, nil
}

// GetAffiliateByName retrieves a live affiliate for an event, nil if unknown
func (s *Store) GetAffiliateByName(ctx context.Context, eventID int64, name string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := s.db.GetContext(ctx, &affiliate,
		"SELECT * FROM affiliates WHERE event_id = $1 AND name = $2", eventID, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// IsEventProcessed checks if an async event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an async event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
