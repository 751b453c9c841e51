// services/routing-service/internal/errors/errors.domain.go
package errors

import "errors"

// Standard Sentinel Errors
// The transport layer (gRPC/HTTP) maps these to status codes, so every
// lower layer wraps them with %w instead of inventing new strings.

var (
	// Reference data integrity
	ErrZoneIndexOutOfRange = errors.New("zone matrix index out of range")
	ErrMalformedZoneEntry  = errors.New("malformed zone matrix entry")
	ErrInvalidZip          = errors.New("invalid zip code")

	// Routing
	ErrUnknownCarrier = errors.New("unknown carrier")
	ErrUnroutable     = errors.New("shipment is not routable")
	ErrNoIntegration  = errors.New("no integration registered for carrier")

	// Lookups
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrOrderNotFound        = errors.New("order not found")

	// System/Validation Errors
	ErrInvalidInput        = errors.New("invalid input arguments")
	ErrInvalidState        = errors.New("invalid state")
)
