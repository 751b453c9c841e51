package httphandler

import (
	"context"
	stdErrors "errors"
	"net/http"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapError translates domain errors into transport-safe status errors.
// Reference data problems are reported as internal errors; their text
// describes our tables and stays in the logs.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case stdErrors.Is(err, domainErr.ErrInvalidInput),
		stdErrors.Is(err, domainErr.ErrInvalidZip),
		stdErrors.Is(err, domainErr.ErrUnknownCarrier):
		return status.Error(codes.InvalidArgument, err.Error())
	case stdErrors.Is(err, domainErr.ErrOrganizationNotFound):
		return status.Error(codes.NotFound, "organization not found")
	case stdErrors.Is(err, domainErr.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case stdErrors.Is(err, domainErr.ErrUnroutable):
		return status.Error(codes.FailedPrecondition, "no carrier can serve this shipment")
	case stdErrors.Is(err, domainErr.ErrNoIntegration):
		return status.Error(codes.Unimplemented, "carrier has no integration")
	case stdErrors.Is(err, domainErr.ErrInvalidState):
		return status.Error(codes.Aborted, "order changed concurrently")
	case stdErrors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case stdErrors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}

	// Fallback (never leak internals)
	return status.Error(codes.Internal, "internal error")
}

var httpStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.NotFound:           http.StatusNotFound,
	codes.FailedPrecondition: http.StatusUnprocessableEntity,
	codes.Unimplemented:      http.StatusNotImplemented,
	codes.Aborted:            http.StatusConflict,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Canceled:           499,
	codes.Unauthenticated:    http.StatusUnauthorized,
}

// HTTPError maps err to a status code and a client-facing message.
func HTTPError(err error) (int, string) {
	st, _ := status.FromError(MapError(err))
	if code, ok := httpStatus[st.Code()]; ok {
		return code, st.Message()
	}
	return http.StatusInternalServerError, st.Message()
}
