// Package gateway models the payment capability behind checkout: a provider
// is resolved by its stored name and driven through a purchase/redirect/
// complete protocol. Provider SDK internals stay behind this interface.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Family describes how a gateway collects payment
type Family string

const (
	// FamilyRedirect providers send the buyer off-site and back via
	// return/cancel callback URLs
	FamilyRedirect Family = "redirect"
	// FamilyToken providers charge a client-submitted payment token directly
	FamilyToken Family = "token"
)

// Result statuses
const (
	StatusSuccessful = "successful"
	StatusRedirect   = "redirect"
	StatusFailed     = "failed"
)

// PurchaseRequest is the gateway-agnostic purchase. Which optional fields are
// required depends on the resolved gateway's family.
type PurchaseRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string

	// Token-family gateways
	Token string

	// Redirect-family gateways
	ReturnURL string
	CancelURL string
	BrandName string
}

// Result is the capability's answer to a purchase or completion attempt
type Result struct {
	Status         string            `json:"status"`
	TransactionRef string            `json:"transaction_ref,omitempty"`
	RedirectURL    string            `json:"redirect_url,omitempty"`
	RedirectData   map[string]string `json:"redirect_data,omitempty"`
	Message        string            `json:"message,omitempty"`
}

// Successful reports a captured payment carrying a transaction reference
func (r *Result) Successful() bool { return r.Status == StatusSuccessful }

// Redirect reports that the buyer must be sent to the provider
func (r *Result) Redirect() bool { return r.Status == StatusRedirect }

// Gateway is the payment capability a specific provider implements
type Gateway interface {
	Name() string
	Family() Family
	Purchase(ctx context.Context, req *PurchaseRequest) (*Result, error)
	CompletePurchase(ctx context.Context, continuation map[string]string) (*Result, error)
}
