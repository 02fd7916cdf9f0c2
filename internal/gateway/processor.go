package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// processorClient speaks the provider-proxy protocol: POST JSON to the
// configured endpoint, get a Result back. Each resolved gateway instance owns
// one, built from the account's stored config.
type processorClient struct {
	endpoint string
	apiKey   string
	testMode bool
	http     *http.Client
}

func newProcessorClient(config map[string]string, testMode bool) (*processorClient, error) {
	endpoint := config["endpoint"]
	if endpoint == "" {
		return nil, fmt.Errorf("gateway config missing endpoint")
	}
	apiKey := config["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("gateway config missing api_key")
	}

	return &processorClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		testMode: testMode,
		http:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *processorClient) send(ctx context.Context, path string, payload map[string]interface{}) (*Result, error) {
	payload["test_mode"] = c.testMode

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return &result, nil
}
