package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when no workspace exists for a key
var ErrNotFound = errors.New("workspace not found")

// Client wraps Redis access for the pending-order workspace store. Workspaces
// are stored as JSON under an event+session key. The Redis TTL is a generous
// operator bound, not the business expiry: the stored ExpiresAt field is what
// the checkout legs enforce, so an off-site payment return can still find the
// workspace after the business expiry has passed.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func workspaceKey(eventID int64, sessionID string) string {
	return fmt.Sprintf("workspace:%d:%s", eventID, sessionID)
}

// SaveWorkspace stores a workspace, replacing any existing one for the same
// event and session
func (c *Client) SaveWorkspace(ctx context.Context, ws *models.Workspace, retention time.Duration) error {
	payload, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	key := workspaceKey(ws.EventID, ws.SessionID)
	if err := c.rdb.Set(ctx, key, payload, retention).Err(); err != nil {
		return fmt.Errorf("failed to store workspace: %w", err)
	}
	return nil
}

// GetWorkspace loads the workspace for an event and session. Returns
// ErrNotFound when absent; expiry enforcement is the caller's concern.
func (c *Client) GetWorkspace(ctx context.Context, eventID int64, sessionID string) (*models.Workspace, error) {
	payload, err := c.rdb.Get(ctx, workspaceKey(eventID, sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	var ws models.Workspace
	if err := json.Unmarshal(payload, &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace: %w", err)
	}
	return &ws, nil
}

// DeleteWorkspace removes the workspace for an event and session
func (c *Client) DeleteWorkspace(ctx context.Context, eventID int64, sessionID string) error {
	return c.rdb.Del(ctx, workspaceKey(eventID, sessionID)).Err()
}

// SetFlashMessage stores a one-shot message for the next checkout page render
// (used by the payment-return leg)
func (c *Client) SetFlashMessage(ctx context.Context, eventID int64, sessionID, message string) error {
	key := fmt.Sprintf("flash:%d:%s", eventID, sessionID)
	return c.rdb.Set(ctx, key, message, 10*time.Minute).Err()
}

// PopFlashMessage retrieves and clears the flash message, if any
func (c *Client) PopFlashMessage(ctx context.Context, eventID int64, sessionID string) (string, error) {
	key := fmt.Sprintf("flash:%d:%s", eventID, sessionID)
	msg, err := c.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return msg, nil
}
