package gateway

import (
	"context"
	"fmt"
)

// redirectGateway implements the redirect family: purchase answers with a
// redirect URL and continuation data; completion replays that data once the
// buyer returns.
type redirectGateway struct {
	name   string
	client *processorClient
}

func newRedirectGateway(name string, config map[string]string, testMode bool) (Gateway, error) {
	client, err := newProcessorClient(config, testMode)
	if err != nil {
		return nil, err
	}
	return &redirectGateway{name: name, client: client}, nil
}

func (g *redirectGateway) Name() string   { return g.name }
func (g *redirectGateway) Family() Family { return FamilyRedirect }

func (g *redirectGateway) Purchase(ctx context.Context, req *PurchaseRequest) (*Result, error) {
	if req.ReturnURL == "" || req.CancelURL == "" {
		return nil, fmt.Errorf("%s requires return and cancel URLs", g.name)
	}

	return g.client.send(ctx, "/purchase", map[string]interface{}{
		"amount":      req.Amount.StringFixed(2),
		"currency":    req.Currency,
		"description": req.Description,
		"return_url":  req.ReturnURL,
		"cancel_url":  req.CancelURL,
		"brand_name":  req.BrandName,
	})
}

func (g *redirectGateway) CompletePurchase(ctx context.Context, continuation map[string]string) (*Result, error) {
	if len(continuation) == 0 {
		return nil, fmt.Errorf("%s completion requires continuation data", g.name)
	}

	payload := make(map[string]interface{}, len(continuation))
	for k, v := range continuation {
		payload[k] = v
	}
	return g.client.send(ctx, "/complete", payload)
}

// tokenGateway implements the token family: the client collects card details
// against the provider and submits an opaque token, which is charged in one
// round trip. There is no off-site leg, so no completion step.
type tokenGateway struct {
	name   string
	client *processorClient
}

func newTokenGateway(name string, config map[string]string, testMode bool) (Gateway, error) {
	client, err := newProcessorClient(config, testMode)
	if err != nil {
		return nil, err
	}
	return &tokenGateway{name: name, client: client}, nil
}

func (g *tokenGateway) Name() string   { return g.name }
func (g *tokenGateway) Family() Family { return FamilyToken }

func (g *tokenGateway) Purchase(ctx context.Context, req *PurchaseRequest) (*Result, error) {
	if req.Token == "" {
		return &Result{Status: StatusFailed, Message: "Payment token is missing."}, nil
	}

	return g.client.send(ctx, "/purchase", map[string]interface{}{
		"amount":      req.Amount.StringFixed(2),
		"currency":    req.Currency,
		"description": req.Description,
		"token":       req.Token,
	})
}

func (g *tokenGateway) CompletePurchase(ctx context.Context, continuation map[string]string) (*Result, error) {
	return nil, fmt.Errorf("%s has no off-site completion step", g.name)
}
