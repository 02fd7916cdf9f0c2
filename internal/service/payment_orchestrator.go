package service

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Outcome statuses for one payment attempt
const (
	OutcomeCompleted = "completed"
	OutcomeRedirect  = "redirect"
	OutcomeDeclined  = "declined"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Outcome is the orchestrator's answer to an authorization or completion
// attempt. Declined and failed outcomes leave the workspace intact so the
// buyer can retry.
type Outcome struct {
	Status       string            `json:"status"`
	Order        *models.Order     `json:"order,omitempty"`
	RedirectURL  string            `json:"redirect_url,omitempty"`
	RedirectData map[string]string `json:"redirect_data,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// PaymentOrchestrator drives the gateway capability through its three
// outcomes and correlates off-site returns back to the correct workspace
type PaymentOrchestrator struct {
	checkout  *CheckoutService
	resolver  GatewayResolver
	finalizer *OrderFinalizer
	baseURL   string
	logger    *zap.Logger
}

// NewPaymentOrchestrator creates a new payment orchestrator. baseURL is the
// public origin used to build gateway return and cancel URLs.
func NewPaymentOrchestrator(
	checkout *CheckoutService,
	resolver GatewayResolver,
	finalizer *OrderFinalizer,
	baseURL string,
) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		checkout:  checkout,
		resolver:  resolver,
		finalizer: finalizer,
		baseURL:   baseURL,
		logger:    util.GetLogger(),
	}
}

// Authorize runs one payment attempt for a workspace whose buyer form has
// already been recorded. Free orders skip the gateway entirely.
func (o *PaymentOrchestrator) Authorize(ctx context.Context, ws *models.Workspace) (*Outcome, error) {
	ctx, span := util.StartSpan(ctx, "PaymentOrchestrator.Authorize")
	defer span.End()

	if !ws.RequiresPayment {
		order, err := o.finalizer.Complete(ctx, ws)
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: OutcomeCompleted, Order: order}, nil
	}

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if ws.GatewayName == "" {
		o.logger.Error("No payment gateway configured",
			zap.Int64("event_id", ws.EventID),
			zap.Int64("account_id", ws.AccountID))
		return &Outcome{Status: OutcomeFailed, Message: "No payment gateway configured."}, nil
	}

	gw, err := o.resolver.Resolve(ws.GatewayName, ws.GatewayConfig)
	if err != nil {
		o.logger.Error("Payment gateway misconfigured",
			zap.String("gateway", ws.GatewayName),
			zap.Error(err))
		util.PaymentFaultsTotal.Inc()
		return &Outcome{Status: OutcomeFailed, Message: GenericPaymentErrorMessage}, nil
	}

	req := o.buildPurchaseRequest(ws, gw)

	result, err := gw.Purchase(ctx, req)
	if err != nil {
		// Unexpected capability fault: full detail stays server-side, the
		// buyer gets the generic retry message.
		o.logger.Error("Payment gateway fault",
			zap.String("gateway", ws.GatewayName),
			zap.Int64("event_id", ws.EventID),
			zap.Error(err))
		util.PaymentFaultsTotal.Inc()
		return &Outcome{Status: OutcomeFailed, Message: GenericPaymentErrorMessage}, nil
	}

	switch {
	case result.Successful():
		if err := o.checkout.AppendPaymentContext(ctx, ws, result.TransactionRef, nil); err != nil {
			return nil, err
		}
		util.PaymentSuccessTotal.Inc()
		order, err := o.finalizer.Complete(ctx, ws)
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: OutcomeCompleted, Order: order}, nil

	case result.Redirect():
		continuation := continuationFromRequest(req, result)
		if err := o.checkout.AppendPaymentContext(ctx, ws, "", continuation); err != nil {
			return nil, err
		}
		util.PaymentRedirectsTotal.Inc()
		return &Outcome{
			Status:       OutcomeRedirect,
			RedirectURL:  result.RedirectURL,
			RedirectData: result.RedirectData,
			Message:      fmt.Sprintf("Redirecting to %s", ws.GatewayProviderName),
		}, nil

	default:
		util.PaymentDeclinedTotal.Inc()
		return &Outcome{Status: OutcomeDeclined, Message: result.Message}, nil
	}
}

// CompleteRedirectedPayment handles the buyer's return from an off-site
// provider. A cancelled return leaves the workspace and its holds intact.
func (o *PaymentOrchestrator) CompleteRedirectedPayment(ctx context.Context, eventID int64, sessionID string, cancelled bool) (*Outcome, error) {
	ctx, span := util.StartSpan(ctx, "PaymentOrchestrator.CompleteRedirectedPayment")
	defer span.End()

	if cancelled {
		return &Outcome{
			Status:  OutcomeCancelled,
			Message: "You cancelled your payment. You may try again.",
		}, nil
	}

	ws, err := o.checkout.GetWorkspaceForCompletion(ctx, eventID, sessionID)
	if err != nil {
		return nil, err
	}

	gw, err := o.resolver.Resolve(ws.GatewayName, ws.GatewayConfig)
	if err != nil {
		o.logger.Error("Payment gateway misconfigured on completion",
			zap.String("gateway", ws.GatewayName),
			zap.Error(err))
		util.PaymentFaultsTotal.Inc()
		return &Outcome{Status: OutcomeFailed, Message: GenericPaymentErrorMessage}, nil
	}

	continuation := ws.FirstContinuation()
	if continuation == nil {
		o.logger.Error("Payment return with no stored continuation data",
			zap.Int64("event_id", eventID),
			zap.String("session_id", sessionID))
		return &Outcome{Status: OutcomeFailed, Message: GenericPaymentErrorMessage}, nil
	}

	result, err := gw.CompletePurchase(ctx, continuation)
	if err != nil {
		o.logger.Error("Payment completion fault",
			zap.String("gateway", ws.GatewayName),
			zap.Error(err))
		util.PaymentFaultsTotal.Inc()
		return &Outcome{Status: OutcomeFailed, Message: GenericPaymentErrorMessage}, nil
	}

	if !result.Successful() {
		util.PaymentDeclinedTotal.Inc()
		return &Outcome{Status: OutcomeDeclined, Message: result.Message}, nil
	}

	if err := o.checkout.AppendPaymentContext(ctx, ws, result.TransactionRef, nil); err != nil {
		return nil, err
	}
	util.PaymentSuccessTotal.Inc()

	order, err := o.finalizer.Complete(ctx, ws)
	if err != nil {
		return nil, err
	}
	return &Outcome{Status: OutcomeCompleted, Order: order}, nil
}

func (o *PaymentOrchestrator) buildPurchaseRequest(ws *models.Workspace, gw gateway.Gateway) *gateway.PurchaseRequest {
	form := ws.FirstBuyerForm()
	req := &gateway.PurchaseRequest{
		Amount:      ws.ChargeAmount(),
		Currency:    ws.Currency,
		Description: fmt.Sprintf("Order for customer: %s", form[FieldBuyerEmail]),
	}

	switch gw.Family() {
	case gateway.FamilyRedirect:
		req.ReturnURL = fmt.Sprintf("%s/api/v1/events/%d/payment-return?is_payment_successful=1", o.baseURL, ws.EventID)
		req.CancelURL = fmt.Sprintf("%s/api/v1/events/%d/payment-return?is_payment_cancelled=1", o.baseURL, ws.EventID)
		req.BrandName = ws.GatewayConfig["brandingName"]
		if req.BrandName == "" {
			req.BrandName = ws.OrganiserName
		}
	case gateway.FamilyToken:
		req.Token = form[FieldPaymentToken]
	}
	return req
}

// continuationFromRequest captures everything the completion step needs to
// replay the purchase once the buyer returns from the provider
func continuationFromRequest(req *gateway.PurchaseRequest, result *gateway.Result) map[string]string {
	continuation := map[string]string{
		"amount":      req.Amount.StringFixed(2),
		"currency":    req.Currency,
		"description": req.Description,
		"return_url":  req.ReturnURL,
		"cancel_url":  req.CancelURL,
		"brand_name":  req.BrandName,
	}
	if result.TransactionRef != "" {
		continuation["transaction_ref"] = result.TransactionRef
	}
	for k, v := range result.RedirectData {
		continuation[k] = v
	}
	return continuation
}
