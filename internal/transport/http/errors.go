package httptransport

import (
	"net/http"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
)

// kindToStatus maps error classification kinds
// to HTTP status codes. Kinds not listed are remote
// step failures and answer 502.
var kindToStatus = map[string]int{
	"":                            http.StatusOK,
	apperr.KindInvalidInput:       http.StatusBadRequest,
	apperr.KindUnknownTicket:      http.StatusBadRequest,
	apperr.KindStatusNotFound:     http.StatusFailedDependency,
	apperr.KindGatewayUnavailable: http.StatusServiceUnavailable,
	apperr.KindTimeout:            http.StatusGatewayTimeout,
	apperr.KindCanceled:           http.StatusRequestTimeout,
	apperr.KindInternal:           http.StatusInternalServerError,
}

// errorKind returns the kind of an error.
func errorKind(err error) string {
	return apperr.Kind(err)
}

func httpStatus(err error) int {
	if s, ok := kindToStatus[errorKind(err)]; ok {
		return s
	}
	return http.StatusBadGateway
}
