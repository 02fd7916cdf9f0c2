package gateway

import (
	"errors"
	"fmt"
)

// ErrUnknownGateway is returned when no driver is registered for a stored
// gateway name
var ErrUnknownGateway = errors.New("unknown payment gateway")

// Driver builds a gateway instance from an account's stored config
type Driver func(name string, config map[string]string, testMode bool) (Gateway, error)

// Resolver maps stored gateway identifiers to capability instances
type Resolver struct {
	drivers  map[string]Driver
	testMode bool
}

// NewResolver creates a resolver with the built-in provider families
// registered: stripe charges tokens directly, paypal and coinbase round-trip
// the buyer off-site.
func NewResolver(testMode bool) *Resolver {
	r := &Resolver{
		drivers:  make(map[string]Driver),
		testMode: testMode,
	}
	r.Register("stripe", func(name string, config map[string]string, testMode bool) (Gateway, error) {
		return newTokenGateway(name, config, testMode)
	})
	r.Register("paypal", func(name string, config map[string]string, testMode bool) (Gateway, error) {
		return newRedirectGateway(name, config, testMode)
	})
	r.Register("coinbase", func(name string, config map[string]string, testMode bool) (Gateway, error) {
		return newRedirectGateway(name, config, testMode)
	})
	return r
}

// Register adds or replaces a driver for a gateway name
func (r *Resolver) Register(name string, driver Driver) {
	r.drivers[name] = driver
}

// Resolve builds the gateway for a stored name and config. A missing driver
// yields ErrUnknownGateway; a driver rejecting its config is a
// misconfiguration surfaced verbatim.
func (r *Resolver) Resolve(name string, config map[string]string) (Gateway, error) {
	driver, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return driver(name, config, r.testMode)
}
